package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"ventas-cli/internal/app"
	"ventas-cli/internal/config"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/mcp"
)

func main() {
	var (
		configPath = flag.String("config", config.DefaultConfigPath, "Path to configuration file")
		csvPath    = flag.String("csv", "", "CSV file to load (overrides data.csv_candidates)")
		disabled   = flag.String("disable", "", "Comma separated tools to disable")
	)
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *csvPath != "" {
		cfg.Data.CSVCandidates = []string{*csvPath}
	}
	if cfg.MCPServer == nil {
		cfg.MCPServer = &config.MCPServerConfig{Name: "Ventas MCP Server"}
	}
	if *disabled != "" {
		cfg.MCPServer.DisabledTools = append(cfg.MCPServer.DisabledTools, splitList(*disabled)...)
	}

	// stdout carries the protocol; logs go to stderr
	lg := logger.NewStructured(cfg.LogLevel, "json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()
	if a.DatasetErr != nil {
		log.Fatalf("Dataset not available: %v", a.DatasetErr)
	}

	mcpServer := server.NewMCPServer(
		cfg.MCPServer.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)

	toolManager := mcp.NewToolManager(a.Answers, cfg.MCPServer, lg)
	if err := toolManager.RegisterTools(mcpServer); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}
	if err := mcp.NewPromptManager(a.Answers).RegisterPrompts(mcpServer); err != nil {
		log.Fatalf("Failed to register prompts: %v", err)
	}
	if err := mcp.NewResourceManager(a.Answers).RegisterResources(mcpServer); err != nil {
		log.Fatalf("Failed to register resources: %v", err)
	}

	lg.Info("starting MCP server on stdio", map[string]interface{}{"tools": toolManager.Registered()})
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("STDIO server error: %v", err)
	}
	log.Println("MCP server shutdown complete")
}
