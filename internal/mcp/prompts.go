package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ventas-cli/internal/service"
)

// PromptManager provides prompt templates for sales analysis
type PromptManager struct {
	answers *service.AnswerService
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(answers *service.AnswerService) *PromptManager {
	return &PromptManager{answers: answers}
}

// RegisterPrompts registers all available prompts with the MCP server
func (pm *PromptManager) RegisterPrompts(s *server.MCPServer) error {
	s.AddPrompt(mcp.NewPrompt("ventas_analysis",
		mcp.WithPromptDescription("Guide an analysis of the sales table"),
		mcp.WithArgument("focus", mcp.ArgumentDescription("What to analyse: productos, vendedores, sedes or tendencia")),
		mcp.WithArgument("sede", mcp.ArgumentDescription("Optional city to filter by")),
	), pm.handleAnalysisPrompt)
	return nil
}

func (pm *PromptManager) handleAnalysisPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := getStringArg(req.Params.Arguments, "focus", "productos")
	sede := getStringArg(req.Params.Arguments, "sede", "")

	var prompt strings.Builder
	prompt.WriteString("Analiza la tabla de ventas usando solo consultas SELECT.\n\n")
	prompt.WriteString(pm.answers.Schema().String())
	prompt.WriteString("\n")

	switch focus {
	case "vendedores":
		prompt.WriteString("Identifica los vendedores con más y menos ventas y la diferencia entre ellos.\n")
	case "sedes":
		prompt.WriteString("Compara las ventas totales y el ticket promedio por sede.\n")
	case "tendencia":
		prompt.WriteString("Describe la evolución mensual de las ventas y genera un gráfico de líneas.\n")
	default:
		prompt.WriteString("Identifica los productos más y menos vendidos por unidades y por ingresos.\n")
	}
	if sede != "" {
		fmt.Fprintf(&prompt, "Limita el análisis a la sede %s.\n", sede)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Análisis de ventas: %s", focus),
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.NewTextContent(prompt.String()),
			},
		},
	}, nil
}

func getStringArg(args map[string]string, key, defaultValue string) string {
	if v, ok := args[key]; ok && v != "" {
		return v
	}
	return defaultValue
}
