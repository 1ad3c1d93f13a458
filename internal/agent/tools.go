package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/tmc/langchaingo/tools"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/store"
)

// Backend is what the tools run against. *service.AnswerService satisfies it.
type Backend interface {
	QuerySQL(ctx context.Context, sql string) (*store.Result, error)
	ChartSQL(ctx context.Context, sql string, kind nlsql.ChartKind, title string) (string, error)
	ExportSQL(ctx context.Context, sql string, kind nlsql.ExportKind) (*render.ExportResult, error)
	Schema() store.Schema
}

// Tool is a langchaingo tool that also describes its JSON arguments.
type Tool interface {
	tools.Tool
	Parameters() map[string]any
}

// NewTools returns the tool set offered to the model.
func NewTools(backend Backend, guard *Guard) []Tool {
	return []Tool{
		&QueryDatabaseTool{backend: backend, guard: guard},
		&GenerateChartTool{backend: backend, guard: guard},
		&ExportToFileTool{backend: backend, guard: guard},
		&SchemaTool{backend: backend},
	}
}

// parseArgs decodes a tool call's JSON arguments. Blank input means no arguments.
func parseArgs(input string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(input) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return args, nil
}

// getString reads $.<key> from args, returning "" when absent or not a string.
func getString(args map[string]interface{}, key string) string {
	v, err := jsonpath.JsonPathLookup(args, "$."+key)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func requireSQL(args map[string]interface{}, guard *Guard) (string, error) {
	sql := getString(args, "sql_query")
	if sql == "" {
		return "", errors.New("sql_query parameter is required")
	}
	if err := guard.Check(sql); err != nil {
		return "", err
	}
	return sql, nil
}

func sqlParameter() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Consulta SQL SELECT sobre la tabla ventas",
	}
}

// QueryDatabaseTool runs a SELECT and returns the rows as CSV text.
type QueryDatabaseTool struct {
	backend Backend
	guard   *Guard
}

func (t *QueryDatabaseTool) Name() string {
	return "query_database"
}

func (t *QueryDatabaseTool) Description() string {
	return `Ejecuta una consulta SQL SELECT sobre la tabla 'ventas' y devuelve los resultados.
Columnas: id, vendedor, sede, producto, cantidad, precio, fecha, total.
Solo se permiten consultas SELECT.`
}

func (t *QueryDatabaseTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"sql_query": sqlParameter()},
		"required":   []string{"sql_query"},
	}
}

func (t *QueryDatabaseTool) Call(ctx context.Context, input string) (string, error) {
	args, err := parseArgs(input)
	if err != nil {
		return "", err
	}
	sql, err := requireSQL(args, t.guard)
	if err != nil {
		return "", err
	}

	res, err := t.backend.QuerySQL(ctx, sql)
	if err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}
	if res.Empty() {
		return "La consulta no devolvió resultados.", nil
	}

	total := len(res.Rows)
	res, truncated := t.guard.Truncate(res)
	var b strings.Builder
	b.WriteString("Consulta ejecutada exitosamente. Resultados:\n\n")
	if err := render.WriteCSV(&b, res); err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "\nTotal de filas: %d", total)
	if truncated {
		fmt.Fprintf(&b, " (se muestran %d)", len(res.Rows))
	}
	return b.String(), nil
}

// GenerateChartTool draws the rows of a SELECT as a PNG chart.
type GenerateChartTool struct {
	backend Backend
	guard   *Guard
}

func (t *GenerateChartTool) Name() string {
	return "generate_chart"
}

func (t *GenerateChartTool) Description() string {
	return `Genera un gráfico a partir de una consulta SQL y lo guarda como imagen PNG.
La consulta debe devolver al menos 2 columnas: etiquetas y valores numéricos.
chart_type: "bar" (barras), "line" (líneas) o "pie" (torta).`
}

func (t *GenerateChartTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sql_query": sqlParameter(),
			"chart_type": map[string]any{
				"type":        "string",
				"enum":        []string{"bar", "line", "pie"},
				"description": "Tipo de gráfico",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Título opcional del gráfico",
			},
		},
		"required": []string{"sql_query", "chart_type"},
	}
}

func (t *GenerateChartTool) Call(ctx context.Context, input string) (string, error) {
	args, err := parseArgs(input)
	if err != nil {
		return "", err
	}
	sql, err := requireSQL(args, t.guard)
	if err != nil {
		return "", err
	}

	kind := nlsql.ChartKind(getString(args, "chart_type"))
	switch kind {
	case nlsql.ChartBar, nlsql.ChartLine, nlsql.ChartPie:
	case "":
		kind = nlsql.ChartBar
	default:
		return "", fmt.Errorf("unsupported chart_type: %s", kind)
	}

	path, err := t.backend.ChartSQL(ctx, sql, kind, getString(args, "title"))
	if errors.Is(err, render.ErrNoData) {
		return "La consulta debe devolver al menos 2 columnas con datos para generar un gráfico.", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate chart: %w", err)
	}
	return fmt.Sprintf("Gráfico generado exitosamente.\nArchivo: %s", path), nil
}

// ExportToFileTool saves the rows of a SELECT as CSV or Excel.
type ExportToFileTool struct {
	backend Backend
	guard   *Guard
}

func (t *ExportToFileTool) Name() string {
	return "export_to_file"
}

func (t *ExportToFileTool) Description() string {
	return `Exporta los resultados de una consulta SQL a un archivo.
format: "csv" o "excel".`
}

func (t *ExportToFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sql_query": sqlParameter(),
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"csv", "excel"},
				"description": "Formato del archivo",
			},
		},
		"required": []string{"sql_query"},
	}
}

func (t *ExportToFileTool) Call(ctx context.Context, input string) (string, error) {
	args, err := parseArgs(input)
	if err != nil {
		return "", err
	}
	sql, err := requireSQL(args, t.guard)
	if err != nil {
		return "", err
	}

	kind := nlsql.ExportKind(getString(args, "format"))
	switch kind {
	case nlsql.ExportCSV, nlsql.ExportExcel:
	case "":
		kind = nlsql.ExportCSV
	default:
		return "", fmt.Errorf("unsupported format: %s", kind)
	}

	out, err := t.backend.ExportSQL(ctx, sql, kind)
	if errors.Is(err, render.ErrNoData) {
		return "La consulta no devolvió datos para exportar.", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to export: %w", err)
	}
	return fmt.Sprintf("Archivo exportado exitosamente.\nRuta: %s\nFilas exportadas: %d", out.Path, out.RecordCount), nil
}

// SchemaTool describes the sales table.
type SchemaTool struct {
	backend Backend
}

func (t *SchemaTool) Name() string {
	return "get_database_schema"
}

func (t *SchemaTool) Description() string {
	return "Devuelve el esquema de la tabla 'ventas' con la descripción de cada columna."
}

func (t *SchemaTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

func (t *SchemaTool) Call(ctx context.Context, input string) (string, error) {
	return t.backend.Schema().String(), nil
}
