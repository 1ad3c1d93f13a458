// Package api wires the HTTP routes of the web server.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ventas-cli/internal/api/handlers"
	"ventas-cli/internal/api/middleware"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/service"
)

// Version is reported by the root and health routes.
const Version = "1.0.0"

// Deps are the collaborators the router needs.
type Deps struct {
	Answers *service.AnswerService
	// Agent enables /api/v1/agent/ask when set.
	Agent        handlers.Asker
	AgentTimeout time.Duration
	// DatasetErr is the bootstrap failure, if any. Data routes answer 503 while it is set.
	DatasetErr error
	Log        logger.Logger
}

// SetupRouter configures and returns a Gin router with all API routes
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Log))
	r.Use(middleware.CORS())
	r.Use(gin.Recovery())

	answerHandler := handlers.NewAnswerHandler(deps.Answers)
	renderer := deps.Answers.Renderer()
	filesHandler := handlers.NewFilesHandler(renderer.Fs(), renderer.Dir())
	requireData := handlers.RequireDataset(deps.DatasetErr)

	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if deps.DatasetErr != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": Version,
			"agent":   deps.Agent != nil,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/compile", answerHandler.Compile)
		v1.GET("/schema", answerHandler.Schema)

		v1.POST("/ask", requireData, answerHandler.Ask)
		v1.GET("/files/:name", filesHandler.Download)

		if deps.Agent != nil {
			agentHandler := handlers.NewAgentHandler(deps.Agent, deps.AgentTimeout)
			v1.POST("/agent/ask", requireData, agentHandler.Ask)
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Ventas API",
			"version": Version,
			"docs":    "/api/v1",
		})
	})

	return r
}
