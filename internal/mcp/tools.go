// Package mcp exposes the sales question answering stack as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ventas-cli/internal/config"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
)

// ToolManager manages the MCP tools backed by the answer service
type ToolManager struct {
	answers    *service.AnswerService
	config     *config.MCPServerConfig
	log        logger.Logger
	registered []string
}

// NewToolManager creates a new tool manager. A nil config enables every tool.
func NewToolManager(answers *service.AnswerService, cfg *config.MCPServerConfig, log logger.Logger) *ToolManager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ToolManager{answers: answers, config: cfg, log: log}
}

// Registered returns the names of the tools added by RegisterTools.
func (tm *ToolManager) Registered() []string {
	return tm.registered
}

func (tm *ToolManager) add(s *server.MCPServer, tool mcp.Tool, handler server.ToolHandlerFunc) {
	if !tm.config.IsToolEnabled(tool.Name) {
		tm.log.Info("tool disabled", map[string]interface{}{"tool": tool.Name})
		return
	}
	s.AddTool(tool, handler)
	tm.registered = append(tm.registered, tool.Name)
}

// RegisterTools registers all enabled tools with the MCP server
func (tm *ToolManager) RegisterTools(s *server.MCPServer) error {
	tm.add(s, mcp.NewTool("compile_question",
		mcp.WithDescription("Compile a Spanish question about sales into parameterized SQL without running it"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question in natural language, e.g. 'top 5 productos en Medellín'"),
		),
	), tm.handleCompileTool)

	tm.add(s, mcp.NewTool("ask_ventas",
		mcp.WithDescription("Answer a Spanish question about sales using the rule-based compiler"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question in natural language"),
		),
	), tm.handleAskTool)

	tm.add(s, mcp.NewTool("query_database",
		mcp.WithDescription("Run a read-only SELECT against the ventas table"),
		mcp.WithString("sql_query",
			mcp.Required(),
			mcp.Description("SELECT statement over ventas(id, vendedor, sede, producto, cantidad, precio, fecha, total)"),
		),
	), tm.handleQueryTool)

	tm.add(s, mcp.NewTool("generate_chart",
		mcp.WithDescription("Render the rows of a SELECT as a PNG chart. The first column gives labels, the second values"),
		mcp.WithString("sql_query",
			mcp.Required(),
			mcp.Description("SELECT statement returning at least two columns"),
		),
		mcp.WithString("chart_type",
			mcp.Required(),
			mcp.Enum("bar", "line", "pie"),
			mcp.Description("Chart type"),
		),
		mcp.WithString("title",
			mcp.Description("Optional chart title"),
		),
	), tm.handleChartTool)

	tm.add(s, mcp.NewTool("export_to_file",
		mcp.WithDescription("Save the rows of a SELECT as a CSV or Excel file"),
		mcp.WithString("sql_query",
			mcp.Required(),
			mcp.Description("SELECT statement to export"),
		),
		mcp.WithString("format",
			mcp.Enum("csv", "excel"),
			mcp.Description("File format (defaults to csv)"),
		),
	), tm.handleExportTool)

	tm.add(s, mcp.NewTool("get_database_schema",
		mcp.WithDescription("Describe the columns of the ventas table"),
	), tm.handleSchemaTool)

	return nil
}

func (tm *ToolManager) handleCompileTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	compiler := tm.answers.Compiler()
	plan := compiler.Compile(question)
	out := map[string]interface{}{
		"plan":     plan,
		"entities": compiler.Extract(question),
		"safe":     compiler.Validate(plan.SQL) == nil,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode plan: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (tm *ToolManager) handleAskTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := tm.answers.Answer(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var output strings.Builder
	fmt.Fprintf(&output, "Intent: %s\nSQL: %s\n\n", answer.Plan.Intent, answer.Plan.SQL)
	switch {
	case answer.File != "":
		fmt.Fprintf(&output, "Archivo generado: %s\n", answer.File)
	case answer.Text != "":
		output.WriteString(answer.Text + "\n")
	case answer.Result.Empty():
		output.WriteString(render.EmptyMessage + "\n")
	default:
		if err := render.WriteCSV(&output, answer.Result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(output.String()), nil
}

func (tm *ToolManager) handleQueryTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := request.RequireString("sql_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := tm.answers.QuerySQL(ctx, sql)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Empty() {
		return mcp.NewToolResultText(render.EmptyMessage), nil
	}

	var output strings.Builder
	if err := render.WriteCSV(&output, res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fmt.Fprintf(&output, "\nTotal de filas: %d", len(res.Rows))
	return mcp.NewToolResultText(output.String()), nil
}

func (tm *ToolManager) handleChartTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := request.RequireString("sql_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := nlsql.ChartKind(request.GetString("chart_type", string(nlsql.ChartBar)))
	switch kind {
	case nlsql.ChartBar, nlsql.ChartLine, nlsql.ChartPie:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unsupported chart_type '%s'", kind)), nil
	}

	path, err := tm.answers.ChartSQL(ctx, sql, kind, request.GetString("title", ""))
	if errors.Is(err, render.ErrNoData) {
		return mcp.NewToolResultError(service.NoChartDataMessage), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Gráfico guardado en: %s", path)), nil
}

func (tm *ToolManager) handleExportTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := request.RequireString("sql_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := nlsql.ExportKind(request.GetString("format", string(nlsql.ExportCSV)))
	switch kind {
	case nlsql.ExportCSV, nlsql.ExportExcel:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unsupported format '%s'", kind)), nil
	}

	out, err := tm.answers.ExportSQL(ctx, sql, kind)
	if errors.Is(err, render.ErrNoData) {
		return mcp.NewToolResultError(service.NoExportDataMessage), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Archivo guardado en: %s (%d filas, %d bytes)", out.Path, out.RecordCount, out.BytesWritten)), nil
}

func (tm *ToolManager) handleSchemaTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(tm.answers.Schema().String()), nil
}
