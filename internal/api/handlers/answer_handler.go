package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/service"
)

// AnswerHandler serves the rule-based question endpoints
type AnswerHandler struct {
	answers *service.AnswerService
}

// NewAnswerHandler creates a new AnswerHandler
func NewAnswerHandler(answers *service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// QuestionRequest is the body of /ask, /compile and /agent/ask
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// AnswerResponse is the JSON form of a service.Answer
type AnswerResponse struct {
	Question      string     `json:"question"`
	Intent        string     `json:"intent"`
	Plan          nlsql.Plan `json:"plan"`
	Columns       []string   `json:"columns"`
	Rows          [][]any    `json:"rows"`
	Text          string     `json:"text,omitempty"`
	File          string     `json:"file,omitempty"`
	FileURL       string     `json:"file_url,omitempty"`
	ExecutionTime string     `json:"execution_time"`
}

// CompileResponse describes how a question was understood
type CompileResponse struct {
	Plan     nlsql.Plan     `json:"plan"`
	Entities nlsql.Entities `json:"entities"`
	Safe     bool           `json:"safe"`
}

// NewAnswerResponse converts an answer for the wire. Files are reported by
// base name together with their download URL.
func NewAnswerResponse(answer *service.Answer, elapsed time.Duration) AnswerResponse {
	resp := AnswerResponse{
		Question:      answer.Question,
		Intent:        answer.Plan.Intent,
		Plan:          answer.Plan,
		Columns:       []string{},
		Rows:          [][]any{},
		Text:          answer.Text,
		ExecutionTime: elapsed.String(),
	}
	if answer.Result != nil {
		resp.Columns = answer.Result.Columns
		resp.Rows = answer.Result.Rows
	}
	if answer.File != "" {
		resp.File = filepath.Base(answer.File)
		resp.FileURL = "/api/v1/files/" + resp.File
	}
	return resp
}

// Ask compiles, runs and renders a question
// @Summary Answer a question about sales
// @Tags Ventas
// @Accept json
// @Produce json
// @Param question body QuestionRequest true "Question in Spanish"
// @Success 200 {object} AnswerResponse
// @Router /api/v1/ask [post]
func (h *AnswerHandler) Ask(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start := time.Now()
	answer, err := h.answers.Answer(c.Request.Context(), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAnswerResponse(answer, time.Since(start)))
}

// Compile returns the plan for a question without running it
// @Summary Explain how a question is compiled
// @Tags Ventas
// @Accept json
// @Produce json
// @Param question body QuestionRequest true "Question in Spanish"
// @Success 200 {object} CompileResponse
// @Router /api/v1/compile [post]
func (h *AnswerHandler) Compile(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	compiler := h.answers.Compiler()
	plan := compiler.Compile(req.Question)
	c.JSON(http.StatusOK, CompileResponse{
		Plan:     plan,
		Entities: compiler.Extract(req.Question),
		Safe:     compiler.Validate(plan.SQL) == nil,
	})
}

// Schema describes the sales table
// @Summary Get the table schema
// @Tags Ventas
// @Produce json
// @Success 200 {object} store.Schema
// @Router /api/v1/schema [get]
func (h *AnswerHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, h.answers.Schema())
}
