// Package agent answers questions the rule compiler cannot place by letting an
// LLM call SQL, chart and export tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ventas-cli/internal/logger"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
)

// ErrAgentNotReady is returned when no model is configured.
var ErrAgentNotReady = errors.New("agent is not initialized")

// RefusalMessage is the fixed reply to questions unrelated to sales.
const RefusalMessage = "Lo siento, soy un asistente especializado en análisis de ventas. Solo puedo ayudarte con consultas sobre la base de datos de ventas, gráficos y reportes. ¿Hay algo sobre las ventas que quieras analizar?"

const systemPrompt = `Eres un asistente experto en análisis de ventas. Tu trabajo es ayudar a los usuarios a analizar datos de ventas mediante consultas SQL y visualizaciones.

IMPORTANTE - Restricción de tema:
SOLO puedes responder preguntas relacionadas con análisis de ventas, consultas a la base de datos, gráficos y exportación de datos. Si el usuario pregunta sobre otros temas, responde exactamente:
"` + RefusalMessage + `"

Base de datos:
SQLite con la tabla 'ventas': id, vendedor, sede, producto, cantidad, precio, fecha (YYYY-MM-DD), total.

Instrucciones:
1. Valida primero que la pregunta sea sobre análisis de ventas.
2. Si necesitas la estructura de la tabla, usa get_database_schema.
3. Construye una única consulta SELECT y ejecútala con query_database.
4. Si el usuario pide un gráfico, usa generate_chart con el tipo correcto.
5. Si el usuario pide guardar o exportar, usa export_to_file.
6. Explica brevemente el resultado en español.

Nunca escribas sentencias que modifiquen datos. Solo SELECT.`

// Result is the agent's reply to one question.
type Result struct {
	Question      string          `json:"question"`
	Text          string          `json:"text"`
	Deterministic bool            `json:"deterministic"`
	Answer        *service.Answer `json:"answer,omitempty"`
	ToolsUsed     []string        `json:"tools_used,omitempty"`
	Duration      time.Duration   `json:"duration"`
}

// Agent routes questions to the rule compiler first and to the LLM only when
// no rule recognises them.
type Agent struct {
	config  *Config
	llm     llms.Model
	answers *service.AnswerService
	tools   []Tool
	audit   *AuditLogger
	log     logger.Logger
}

// New creates an agent around an already constructed model. llm may be nil,
// in which case only rule-based answers are available.
func New(cfg *Config, llm llms.Model, answers *service.AnswerService, audit *AuditLogger, log logger.Logger) *Agent {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	guard := NewGuard(cfg.Agent.Security.MaxRows, audit)
	return &Agent{
		config:  cfg,
		llm:     llm,
		answers: answers,
		tools:   NewTools(answers, guard),
		audit:   audit,
		log:     log,
	}
}

// NewLLM builds the model named by cfg.Provider.
func NewLLM(ctx context.Context, cfg LLMConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "googleai":
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.Model),
		)
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
}

// Ready reports whether questions can reach the LLM.
func (a *Agent) Ready() bool {
	return a.llm != nil
}

// Tools returns the names of the tools offered to the model.
func (a *Agent) Tools() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name()
	}
	return names
}

// Ask answers question, deterministically when a rule matches.
func (a *Agent) Ask(ctx context.Context, question string) (*Result, error) {
	start := time.Now()
	a.audit.LogQuestion(question)

	plan := a.answers.Plan(question)
	if plan.Intent != "fallback" || a.llm == nil {
		answer, err := a.answers.Run(ctx, plan)
		if err != nil {
			a.audit.LogAnswer(question, time.Since(start), nil, err)
			return nil, err
		}
		answer.Question = question
		a.audit.LogAnswer(question, time.Since(start), nil, nil)
		return &Result{
			Question:      question,
			Text:          describe(answer),
			Deterministic: true,
			Answer:        answer,
			Duration:      time.Since(start),
		}, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.config.Agent.LLM.Timeout)
	defer cancel()

	text, toolsUsed, err := a.processWithLLM(timeoutCtx, question)
	a.audit.LogAnswer(question, time.Since(start), toolsUsed, err)
	if err != nil {
		return nil, err
	}
	return &Result{
		Question:  question,
		Text:      text,
		ToolsUsed: toolsUsed,
		Duration:  time.Since(start),
	}, nil
}

// AskLLM skips the rule compiler and sends question straight to the model.
func (a *Agent) AskLLM(ctx context.Context, question string) (*Result, error) {
	if a.llm == nil {
		return nil, ErrAgentNotReady
	}
	start := time.Now()
	a.audit.LogQuestion(question)

	timeoutCtx, cancel := context.WithTimeout(ctx, a.config.Agent.LLM.Timeout)
	defer cancel()

	text, toolsUsed, err := a.processWithLLM(timeoutCtx, question)
	a.audit.LogAnswer(question, time.Since(start), toolsUsed, err)
	if err != nil {
		return nil, err
	}
	return &Result{Question: question, Text: text, ToolsUsed: toolsUsed, Duration: time.Since(start)}, nil
}

func (a *Agent) processWithLLM(ctx context.Context, question string) (string, []string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}
	opts := []llms.CallOption{
		llms.WithTemperature(a.config.Agent.LLM.Temperature),
		llms.WithTools(a.toolDefinitions()),
	}

	var toolsUsed []string
	for i := 0; i < a.config.Agent.Loop.MaxIterations; i++ {
		response, err := a.llm.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", toolsUsed, fmt.Errorf("llm call failed: %w", err)
		}
		if len(response.Choices) == 0 {
			return "", toolsUsed, errors.New("llm returned no choices")
		}

		choice := response.Choices[0]
		calls := choice.ToolCalls
		if len(calls) == 0 && choice.FuncCall != nil {
			calls = []llms.ToolCall{{
				ID:           fmt.Sprintf("call_%d", i),
				Type:         "function",
				FunctionCall: choice.FuncCall,
			}}
		}
		if len(calls) == 0 {
			return strings.TrimSpace(choice.Content), toolsUsed, nil
		}

		for j, call := range calls {
			if call.FunctionCall == nil {
				continue
			}
			if call.ID == "" {
				call.ID = fmt.Sprintf("call_%d_%d", i, j)
			}
			name := call.FunctionCall.Name
			toolsUsed = append(toolsUsed, name)
			output := a.executeTool(ctx, name, call.FunctionCall.Arguments)

			messages = append(messages,
				llms.MessageContent{
					Role:  llms.ChatMessageTypeAI,
					Parts: []llms.ContentPart{call},
				},
				llms.MessageContent{
					Role: llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{
						llms.ToolCallResponse{
							ToolCallID: call.ID,
							Name:       name,
							Content:    output,
						},
					},
				},
			)
		}
	}

	// out of iterations: ask for a final answer without tools
	response, err := a.llm.GenerateContent(ctx, messages, llms.WithTemperature(a.config.Agent.LLM.Temperature))
	if err != nil || len(response.Choices) == 0 {
		return "Se ejecutaron las herramientas pero no se pudo generar una respuesta final.", toolsUsed, nil
	}
	return strings.TrimSpace(response.Choices[0].Content), toolsUsed, nil
}

// executeTool runs the named tool. Failures are returned to the model as text.
func (a *Agent) executeTool(ctx context.Context, name, arguments string) string {
	start := time.Now()
	var target Tool
	for _, t := range a.tools {
		if t.Name() == name {
			target = t
			break
		}
	}
	if target == nil {
		err := fmt.Errorf("tool not found: %s", name)
		a.audit.LogToolExecution(name, arguments, time.Since(start), err)
		return "Error: " + err.Error()
	}

	output, err := target.Call(ctx, arguments)
	a.audit.LogToolExecution(name, arguments, time.Since(start), err)
	if err != nil {
		a.log.Warn("tool failed", map[string]interface{}{"tool": name, "error": err.Error()})
		return "Error: " + err.Error()
	}
	return output
}

func (a *Agent) toolDefinitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// describe renders a rule-based answer as text.
func describe(answer *service.Answer) string {
	switch {
	case answer.File != "":
		return "Archivo generado: " + answer.File
	case answer.Text != "":
		return answer.Text
	}
	var b strings.Builder
	if err := render.Table(&b, answer.Result); err != nil {
		return render.EmptyMessage
	}
	return strings.TrimRight(b.String(), "\n")
}

// Close releases the audit log.
func (a *Agent) Close() error {
	return a.audit.Close()
}
