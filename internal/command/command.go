// Package command interprets one line typed at the REPL.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"ventas-cli/internal/agent"
	"ventas-cli/internal/cache"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
	"ventas-cli/internal/util"
)

// Asker answers a question through the LLM agent.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Result, error)
}

// StatsReporter exposes cache counters.
type StatsReporter interface {
	Stats() cache.Stats
}

// ReplState is the mutable part of a session.
type ReplState struct {
	AgentMode bool
}

// ModeLabel names the active answering path.
func (s *ReplState) ModeLabel() string {
	if s != nil && s.AgentMode {
		return "agente"
	}
	return "reglas"
}

// Handler runs commands and questions. Agent and Cache may be nil.
type Handler struct {
	Answers *service.AnswerService
	Agent   Asker
	Cache   StatsReporter
	State   *ReplState
	Out     io.Writer
}

var (
	errColor   = color.New(color.FgRed)
	infoColor  = color.New(color.FgGreen)
	labelColor = color.New(color.FgCyan)
	fileColor  = color.New(color.FgMagenta)
)

// ExitWords end the session.
var ExitWords = []string{"salir", "exit", "quit"}

const helpText = `Comandos:
  help                 Muestra esta ayuda
  sql <pregunta>       Muestra la consulta generada sin ejecutarla
  schema               Describe la tabla de ventas
  agent on|off         Activa o desactiva el agente LLM
  cache                Muestra estadísticas de la caché
  salir | exit | quit  Termina la sesión

Cualquier otro texto se trata como una pregunta, por ejemplo:
  top 5 productos más vendidos en Medellín
  total de ventas por sede en gráfico de barras
  exporta las ventas de 2024 a excel`

func (h *Handler) out() io.Writer {
	if h.Out == nil {
		return os.Stdout
	}
	return h.Out
}

// Execute handles one line. It returns false when the session should end.
func (h *Handler) Execute(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if h.State == nil {
		h.State = &ReplState{}
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	rest := strings.TrimSpace(input[len(parts[0]):])

	switch cmd {
	case "salir", "exit", "quit":
		return false
	case "help", "ayuda":
		fmt.Fprintln(h.out(), helpText)
	case "sql":
		if rest == "" {
			fmt.Fprintln(h.out(), "Uso: sql <pregunta>")
			return true
		}
		h.printPlan(rest)
	case "schema":
		fmt.Fprint(h.out(), h.Answers.Schema().String())
	case "agent":
		h.switchAgent(strings.ToLower(rest))
	case "cache":
		h.printCacheStats()
	default:
		h.Ask(input)
	}
	return true
}

func (h *Handler) switchAgent(arg string) {
	switch arg {
	case "on":
		if h.Agent == nil {
			errColor.Fprintln(h.out(), "El agente no está configurado.")
			return
		}
		h.State.AgentMode = true
		infoColor.Fprintln(h.out(), "Modo agente activado.")
	case "off":
		h.State.AgentMode = false
		infoColor.Fprintln(h.out(), "Modo reglas activado.")
	default:
		fmt.Fprintf(h.out(), "Uso: agent on|off (modo actual: %s)\n", h.State.ModeLabel())
	}
}

func (h *Handler) printCacheStats() {
	if h.Cache == nil {
		fmt.Fprintln(h.out(), "Caché desactivada.")
		return
	}
	stats := h.Cache.Stats()
	fmt.Fprintf(h.out(), "Aciertos: %d\nFallos: %d\nEntradas: %d\n", stats.Hits, stats.Misses, stats.Entries)
}

// PlanTerms returns the entity values of question worth highlighting.
func PlanTerms(e nlsql.Entities) []string {
	var terms []string
	for _, p := range []*string{e.City, e.Seller, e.Product} {
		if p != nil {
			terms = append(terms, *p)
		}
	}
	return terms
}

func (h *Handler) printPlan(question string) {
	compiler := h.Answers.Compiler()
	plan := compiler.Compile(question)
	entities := compiler.Extract(question)

	labelColor.Fprint(h.out(), "Pregunta: ")
	fmt.Fprintln(h.out(), util.HighlightTerms(question, PlanTerms(entities)...))
	labelColor.Fprint(h.out(), "Intención: ")
	fmt.Fprintln(h.out(), plan.Intent)
	labelColor.Fprint(h.out(), "SQL: ")
	fmt.Fprintln(h.out(), util.HighlightSQL(plan.SQL))
	labelColor.Fprint(h.out(), "Parámetros: ")
	fmt.Fprintf(h.out(), "%v\n", plan.Params)
	labelColor.Fprint(h.out(), "Modo: ")
	fmt.Fprintln(h.out(), plan.Mode)
	if err := compiler.Validate(plan.SQL); err != nil {
		errColor.Fprintln(h.out(), service.RejectedMessage)
	}
}

// Ask answers question and prints the result.
func (h *Handler) Ask(question string) {
	if h.State == nil {
		h.State = &ReplState{}
	}
	ctx := context.Background()
	if h.State.AgentMode && h.Agent != nil {
		result, err := h.Agent.Ask(ctx, question)
		if err != nil {
			h.printError(err)
			return
		}
		if result.Answer != nil {
			h.printAnswer(result.Answer)
			return
		}
		fmt.Fprintln(h.out(), result.Text)
		if len(result.ToolsUsed) > 0 {
			labelColor.Fprintf(h.out(), "Herramientas: %s\n", strings.Join(result.ToolsUsed, ", "))
		}
		return
	}

	answer, err := h.Answers.Answer(ctx, question)
	if err != nil {
		h.printError(err)
		return
	}
	h.printAnswer(answer)
}

func (h *Handler) printError(err error) {
	if errors.Is(err, nlsql.ErrUnsafeQuery) {
		errColor.Fprintln(h.out(), service.RejectedMessage)
		return
	}
	errColor.Fprintf(h.out(), "Error: %v\n", err)
}

func (h *Handler) printAnswer(answer *service.Answer) {
	switch {
	case answer.Mode == nlsql.ModeText:
		fmt.Fprintln(h.out(), answer.Text)
	case answer.Mode.IsChart():
		if answer.File != "" {
			fileColor.Fprintf(h.out(), "Gráfico guardado en: %s\n", answer.File)
		} else if answer.Text != "" {
			fmt.Fprintln(h.out(), answer.Text)
		}
		h.printTable(answer)
	case answer.Mode.IsExport():
		if answer.File != "" {
			fileColor.Fprintf(h.out(), "Archivo guardado en: %s\n", answer.File)
		} else {
			fmt.Fprintln(h.out(), answer.Text)
		}
	default:
		h.printTable(answer)
	}
}

func (h *Handler) printTable(answer *service.Answer) {
	if err := render.Table(h.out(), answer.Result); err != nil {
		h.printError(err)
	}
}
