package agent

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"

	"ventas-cli/internal/logger"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
	"ventas-cli/internal/store"
)

const salesCSV = `id,vendedor,sede,producto,cantidad,precio,fecha
1,Ana,Medellín,Café,10,2500,2024-01-15
2,Luis,Bogotá,Arroz,5,3000,2024-02-01
3,Ana,Medellín,Arroz,2,3000,2024-02-10
4,Marta,Cali,Café,7,2500,2024-03-15
`

func newTestAnswers(t *testing.T) (*service.AnswerService, afero.Fs) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ventas.sqlite"), "ventas")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Load(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	compiler := nlsql.New(nlsql.Options{})
	return service.NewAnswerService(compiler, st, render.New(fs, "/out"), logger.NewTestLogger(t)), fs
}

func newTestAudit(t *testing.T) *AuditLogger {
	t.Helper()
	audit, err := NewAuditLogger(afero.NewMemMapFs(), "/audit/agent.log", logger.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })
	return audit
}

// scriptedLLM replays canned responses and records the messages it was sent.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	calls     [][]llms.MessageContent
}

func (s *scriptedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if len(s.responses) == 0 {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "sin guion"}}}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func toolCallResponse(name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call_" + name,
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: arguments},
		}},
	}}}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func lastToolOutput(t *testing.T, messages []llms.MessageContent) string {
	t.Helper()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeTool {
			continue
		}
		resp, ok := messages[i].Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)
		return resp.Content
	}
	t.Fatal("no tool response in conversation")
	return ""
}

func TestAgent_RulesAnswerWithoutLLM(t *testing.T) {
	answers, _ := newTestAnswers(t)
	llm := &scriptedLLM{}
	agent := New(DefaultConfig(), llm, answers, newTestAudit(t), logger.NewTestLogger(t))

	result, err := agent.Ask(context.Background(), "total de ventas")
	require.NoError(t, err)
	assert.True(t, result.Deterministic)
	assert.Equal(t, "Total de ventas: 63,500", result.Text)
	assert.Equal(t, "total_sales", result.Answer.Plan.Intent)
	assert.Empty(t, llm.calls)
}

func TestAgent_OffTopicRefusal(t *testing.T) {
	answers, _ := newTestAnswers(t)
	llm := fake.NewFakeLLM([]string{RefusalMessage})
	agent := New(DefaultConfig(), llm, answers, newTestAudit(t), logger.NewTestLogger(t))

	result, err := agent.Ask(context.Background(), "¿Cómo preparo una arepa?")
	require.NoError(t, err)
	assert.False(t, result.Deterministic)
	assert.Equal(t, RefusalMessage, result.Text)
	assert.Empty(t, result.ToolsUsed)
}

func TestAgent_ToolCallingLoop(t *testing.T) {
	answers, _ := newTestAnswers(t)
	llm := &scriptedLLM{responses: []*llms.ContentResponse{
		toolCallResponse("query_database", `{"sql_query": "SELECT sede, SUM(total) AS t FROM ventas GROUP BY sede ORDER BY t DESC"}`),
		textResponse("Medellín es la sede que más vende."),
	}}
	audit := newTestAudit(t)
	agent := New(DefaultConfig(), llm, answers, audit, logger.NewTestLogger(t))

	result, err := agent.Ask(context.Background(), "¿Qué sede vende mas?")
	require.NoError(t, err)
	assert.Equal(t, "Medellín es la sede que más vende.", result.Text)
	assert.Equal(t, []string{"query_database"}, result.ToolsUsed)

	require.Len(t, llm.calls, 2)
	output := lastToolOutput(t, llm.calls[1])
	assert.Contains(t, output, "Medellín,31000")
	assert.Contains(t, output, "Total de filas: 3")

	tools := audit.GetEventsByType(EventTool, 10)
	require.Len(t, tools, 1)
	assert.True(t, tools[0].Success)
}

func TestAgent_UnsafeToolSQLIsRefused(t *testing.T) {
	answers, _ := newTestAnswers(t)
	llm := &scriptedLLM{responses: []*llms.ContentResponse{
		toolCallResponse("query_database", `{"sql_query": "DELETE FROM ventas"}`),
		textResponse("No puedo hacer eso."),
	}}
	audit := newTestAudit(t)
	agent := New(DefaultConfig(), llm, answers, audit, logger.NewTestLogger(t))

	result, err := agent.Ask(context.Background(), "borra todo por favor")
	require.NoError(t, err)
	assert.Equal(t, "No puedo hacer eso.", result.Text)

	output := lastToolOutput(t, llm.calls[1])
	assert.True(t, strings.HasPrefix(output, "Error: "))
	assert.Contains(t, output, service.RejectedMessage)
	assert.Len(t, audit.GetEventsByType(EventSecurityViolation, 10), 1)

	count, err := answers.QuerySQL(context.Background(), "SELECT COUNT(*) AS n FROM ventas")
	require.NoError(t, err)
	assert.EqualValues(t, 4, count.Rows[0][0])
}

func TestAgent_UnknownTool(t *testing.T) {
	answers, _ := newTestAnswers(t)
	llm := &scriptedLLM{responses: []*llms.ContentResponse{
		toolCallResponse("drop_everything", `{}`),
		textResponse("listo"),
	}}
	agent := New(DefaultConfig(), llm, answers, nil, logger.NewTestLogger(t))

	_, err := agent.Ask(context.Background(), "haz algo raro")
	require.NoError(t, err)
	assert.Contains(t, lastToolOutput(t, llm.calls[1]), "tool not found")
}

func TestAgent_MaxIterations(t *testing.T) {
	answers, _ := newTestAnswers(t)
	schemaCall := toolCallResponse("get_database_schema", "")
	cfg := DefaultConfig()
	cfg.Agent.Loop.MaxIterations = 2
	llm := &scriptedLLM{responses: []*llms.ContentResponse{schemaCall, schemaCall, textResponse("resumen final")}}
	agent := New(cfg, llm, answers, nil, logger.NewTestLogger(t))

	result, err := agent.Ask(context.Background(), "explicame la base")
	require.NoError(t, err)
	assert.Equal(t, "resumen final", result.Text)
	assert.Equal(t, []string{"get_database_schema", "get_database_schema"}, result.ToolsUsed)
	assert.Len(t, llm.calls, 3)
}

func TestAgent_WithoutLLM(t *testing.T) {
	answers, _ := newTestAnswers(t)
	agent := New(nil, nil, answers, nil, nil)
	assert.False(t, agent.Ready())

	_, err := agent.AskLLM(context.Background(), "hola")
	assert.ErrorIs(t, err, ErrAgentNotReady)

	result, err := agent.Ask(context.Background(), "hola")
	require.NoError(t, err)
	assert.True(t, result.Deterministic)
	assert.Equal(t, "fallback", result.Answer.Plan.Intent)
	assert.Contains(t, result.Text, "vendedor")
}

func TestAgent_Tools(t *testing.T) {
	answers, _ := newTestAnswers(t)
	agent := New(nil, nil, answers, nil, nil)
	assert.Equal(t, []string{"query_database", "generate_chart", "export_to_file", "get_database_schema"}, agent.Tools())

	defs := agent.toolDefinitions()
	require.Len(t, defs, 4)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "query_database", defs[0].Function.Name)
}

func TestNewLLM_UnsupportedProvider(t *testing.T) {
	_, err := NewLLM(context.Background(), LLMConfig{Provider: "anthropic", Timeout: time.Second})
	assert.Error(t, err)
}
