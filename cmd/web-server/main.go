package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"ventas-cli/internal/api"
	"ventas-cli/internal/app"
	"ventas-cli/internal/config"
	"ventas-cli/internal/logger"
)

var (
	configPath  string
	addr        string
	enableAgent bool
	release     bool
)

func init() {
	flag.StringVar(&configPath, "config", config.DefaultConfigPath, "Path to configuration file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides web.addr)")
	flag.BoolVar(&enableAgent, "agent", false, "Enable /api/v1/agent/ask")
	flag.BoolVar(&release, "release", true, "Run gin in release mode")
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if addr != "" {
		cfg.Web.Addr = addr
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	lg := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg, app.Options{EnableAgent: enableAgent})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	deps := api.Deps{
		Answers:    a.Answers,
		DatasetErr: a.DatasetErr,
		Log:        lg,
	}
	if a.Agent != nil {
		deps.Agent = a.Agent
	}
	router := api.SetupRouter(deps)

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("\n🚀 Ventas Web Server starting on http://localhost%s\n", cfg.Web.Addr)
	if a.Report != nil {
		fmt.Printf("   Dataset: %s (%d filas)\n", a.Report.Source, a.Report.Rows)
	}
	if a.DatasetErr != nil {
		fmt.Printf("   ⚠️  %v\n", a.DatasetErr)
	}
	fmt.Printf("\n📋 API Endpoints:\n")
	fmt.Printf("   GET  /health                 - Health check\n")
	fmt.Printf("   GET  /metrics                - Prometheus metrics\n")
	fmt.Printf("   POST /api/v1/ask             - Answer a question\n")
	fmt.Printf("   POST /api/v1/compile         - Show the SQL plan of a question\n")
	fmt.Printf("   GET  /api/v1/schema          - Table schema\n")
	fmt.Printf("   GET  /api/v1/files/:name     - Download a chart or export\n")
	if a.Agent != nil {
		fmt.Printf("   POST /api/v1/agent/ask       - Answer with the LLM agent\n")
	}
	fmt.Println()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal, shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
