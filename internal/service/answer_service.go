package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ventas-cli/internal/logger"
	"ventas-cli/internal/metrics"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/store"
)

// RejectedMessage is shown to users when a statement fails the safety check.
const RejectedMessage = "Consulta no permitida."

// Messages returned in place of a file when there is nothing to draw or save.
const (
	NoChartDataMessage  = "Sin datos para graficar."
	NoExportDataMessage = "Nada que exportar."
)

// ErrNotSelect is returned for raw SQL that is not a SELECT statement.
var ErrNotSelect = errors.New("only SELECT statements are allowed")

// Answer is the outcome of one question.
type Answer struct {
	Question string        `json:"question"`
	Plan     nlsql.Plan    `json:"plan"`
	Mode     nlsql.Mode    `json:"mode"`
	Result   *store.Result `json:"result,omitempty"`
	Text     string        `json:"text,omitempty"`
	File     string        `json:"file,omitempty"`
}

// AnswerService compiles questions, runs them and shapes the output. It is
// shared by the CLI, the web API, the MCP server and the agent.
type AnswerService struct {
	compiler *nlsql.Compiler
	querier  store.Querier
	renderer *render.Renderer
	log      logger.Logger
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(compiler *nlsql.Compiler, querier store.Querier, renderer *render.Renderer, log logger.Logger) *AnswerService {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &AnswerService{compiler: compiler, querier: querier, renderer: renderer, log: log}
}

// Compiler returns the underlying compiler.
func (s *AnswerService) Compiler() *nlsql.Compiler {
	return s.compiler
}

// Renderer returns the renderer used for charts and exports.
func (s *AnswerService) Renderer() *render.Renderer {
	return s.renderer
}

// Plan compiles question without running it.
func (s *AnswerService) Plan(question string) nlsql.Plan {
	return s.compiler.Compile(question)
}

// Answer compiles question, executes the plan and presents the rows in the
// plan's mode.
func (s *AnswerService) Answer(ctx context.Context, question string) (*Answer, error) {
	plan := s.compiler.Compile(question)
	answer, err := s.Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	answer.Question = question
	return answer, nil
}

// Run executes an already compiled plan.
func (s *AnswerService) Run(ctx context.Context, plan nlsql.Plan) (*Answer, error) {
	s.log.Debug("running plan", map[string]interface{}{
		"intent": plan.Intent,
		"mode":   string(plan.Mode),
		"params": len(plan.Params),
	})

	res, err := s.query(ctx, plan.Intent, plan.SQL, plan.Params...)
	if err != nil {
		return nil, err
	}
	metrics.ObserveQuestion(plan.Intent, string(plan.Mode))

	answer := &Answer{Plan: plan, Mode: plan.Mode, Result: res}
	switch {
	case plan.Mode == nlsql.ModeText:
		answer.Text = Summarize(res)
	case plan.Mode.IsChart():
		path, err := s.renderer.Chart(nlsql.ChartKind(plan.Mode), res, "")
		if errors.Is(err, render.ErrNoData) {
			answer.Text = NoChartDataMessage
			break
		}
		if err != nil {
			return nil, err
		}
		answer.File = path
	case plan.Mode.IsExport():
		out, err := s.renderer.Export(nlsql.ExportKind(plan.Mode), res)
		if errors.Is(err, render.ErrNoData) {
			answer.Text = NoExportDataMessage
			break
		}
		if err != nil {
			return nil, err
		}
		answer.File = out.Path
	}
	return answer, nil
}

// QuerySQL runs a raw SELECT statement after the same safety check compiled
// plans go through.
func (s *AnswerService) QuerySQL(ctx context.Context, sql string) (*store.Result, error) {
	if err := CheckSelect(sql); err != nil {
		return nil, err
	}
	return s.query(ctx, "raw_sql", sql)
}

// ChartSQL runs sql and draws the rows as kind.
func (s *AnswerService) ChartSQL(ctx context.Context, sql string, kind nlsql.ChartKind, title string) (string, error) {
	res, err := s.QuerySQL(ctx, sql)
	if err != nil {
		return "", err
	}
	return s.renderer.Chart(kind, res, title)
}

// ExportSQL runs sql and saves the rows as kind.
func (s *AnswerService) ExportSQL(ctx context.Context, sql string, kind nlsql.ExportKind) (*render.ExportResult, error) {
	res, err := s.QuerySQL(ctx, sql)
	if err != nil {
		return nil, err
	}
	return s.renderer.Export(kind, res)
}

// Schema describes the table questions are compiled against.
func (s *AnswerService) Schema() store.Schema {
	return store.DescribeSchema(s.compiler.Options().Table)
}

// CheckSelect rejects anything that is not a single read-only SELECT.
func CheckSelect(sql string) error {
	trimmed := strings.TrimSpace(strings.ToLower(sql))
	if !strings.HasPrefix(trimmed, "select") {
		return fmt.Errorf("%s %w", RejectedMessage, ErrNotSelect)
	}
	if err := nlsql.Validate(sql); err != nil {
		return fmt.Errorf("%s %w", RejectedMessage, err)
	}
	return nil
}

func (s *AnswerService) query(ctx context.Context, intent, sql string, params ...any) (*store.Result, error) {
	if err := s.compiler.Validate(sql); err != nil {
		metrics.ObserveUnsafe()
		s.log.Warn("query rejected", map[string]interface{}{"intent": intent, "sql": sql, "error": err.Error()})
		return nil, fmt.Errorf("%s %w", RejectedMessage, err)
	}
	start := time.Now()
	res, err := s.querier.Query(ctx, sql, params...)
	metrics.ObserveQuery(intent, start)
	if err != nil {
		s.log.Error("query failed", map[string]interface{}{"intent": intent, "error": err.Error()})
		return nil, err
	}
	return res, nil
}
