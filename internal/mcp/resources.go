package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/service"
)

const (
	schemaURI = "ventas://schema"
	citiesURI = "ventas://cities"
)

// ResourceManager serves read-only descriptions of the dataset
type ResourceManager struct {
	answers *service.AnswerService
}

// NewResourceManager creates a new resource manager
func NewResourceManager(answers *service.AnswerService) *ResourceManager {
	return &ResourceManager{answers: answers}
}

// RegisterResources registers the schema and cities resources
func (rm *ResourceManager) RegisterResources(s *server.MCPServer) error {
	s.AddResource(mcp.NewResource(
		schemaURI,
		"Esquema de ventas",
		mcp.WithResourceDescription("Columns of the ventas table"),
		mcp.WithMIMEType("application/json"),
	), rm.handleSchemaResource)

	s.AddResource(mcp.NewResource(
		citiesURI,
		"Sedes",
		mcp.WithResourceDescription("Cities recognised in questions"),
		mcp.WithMIMEType("text/plain"),
	), rm.handleCitiesResource)

	return nil
}

func (rm *ResourceManager) handleSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(rm.answers.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (rm *ResourceManager) handleCitiesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(nlsql.Cities(), "\n"),
		},
	}, nil
}
