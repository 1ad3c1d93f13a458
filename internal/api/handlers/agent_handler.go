package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ventas-cli/internal/agent"
)

// Asker answers questions, possibly through an LLM.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Result, error)
}

// AgentHandler serves the LLM-assisted question endpoint
type AgentHandler struct {
	agent   Asker
	timeout time.Duration
}

// NewAgentHandler creates a new AgentHandler
func NewAgentHandler(a Asker, timeout time.Duration) *AgentHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AgentHandler{agent: a, timeout: timeout}
}

// AgentResponse is the JSON form of an agent.Result
type AgentResponse struct {
	Question      string          `json:"question"`
	Text          string          `json:"text"`
	Deterministic bool            `json:"deterministic"`
	Answer        *AnswerResponse `json:"answer,omitempty"`
	ToolsUsed     []string        `json:"tools_used,omitempty"`
	ExecutionTime string          `json:"execution_time"`
}

// Ask answers a question through the agent
// @Summary Answer a question with the LLM agent
// @Tags Agent
// @Accept json
// @Produce json
// @Param question body QuestionRequest true "Question in Spanish"
// @Success 200 {object} AgentResponse
// @Router /api/v1/agent/ask [post]
func (h *AgentHandler) Ask(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.agent.Ask(ctx, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := AgentResponse{
		Question:      result.Question,
		Text:          result.Text,
		Deterministic: result.Deterministic,
		ToolsUsed:     result.ToolsUsed,
		ExecutionTime: result.Duration.String(),
	}
	if result.Answer != nil {
		answer := NewAnswerResponse(result.Answer, result.Duration)
		resp.Answer = &answer
	}
	c.JSON(http.StatusOK, resp)
}
