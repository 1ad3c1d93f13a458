// Package app assembles the services shared by the CLI, the web server and
// the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"ventas-cli/internal/agent"
	"ventas-cli/internal/cache"
	"ventas-cli/internal/config"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/metrics"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
	"ventas-cli/internal/store"
)

// Options adjusts how New assembles the application.
type Options struct {
	// EnableAgent builds the LLM agent even when no agent config is set.
	EnableAgent bool
	// SkipBootstrap opens the SQLite file as is.
	SkipBootstrap bool
	// Fs receives charts, exports and the audit log. Defaults to the OS filesystem.
	Fs afero.Fs
}

// App holds the wired services. Agent is nil unless requested.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Store   *store.Store
	Querier *cache.CachedQuerier
	Answers *service.AnswerService
	Agent   *agent.Agent

	// Report describes the CSV loaded at startup, if any.
	Report *store.LoadReport
	// DatasetErr is set when no dataset could be loaded and the table is empty.
	DatasetErr error

	closers []func() error
}

// New opens the store, loads the dataset and wires the answer service.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	a := &App{Config: cfg, Log: log}

	if err := os.MkdirAll(filepath.Dir(cfg.Data.SQLitePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.Data.SQLitePath, cfg.Compiler.Table)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	if !opts.SkipBootstrap {
		if err := a.bootstrap(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	resultCache := a.buildCache(ctx)
	a.Querier = cache.NewCachedQuerier(st, resultCache).OnLookup(metrics.ObserveCache)

	compiler := nlsql.New(CompilerOptions(cfg))
	renderer := render.New(opts.Fs, cfg.Data.OutputDir)
	a.Answers = service.NewAnswerService(compiler, a.Querier, renderer, log)

	if opts.EnableAgent || cfg.AgentConfig != "" {
		if err := a.buildAgent(ctx, opts.Fs); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// CompilerOptions maps the compiler section of cfg.
func CompilerOptions(cfg *config.Config) nlsql.Options {
	return nlsql.Options{
		Table:        cfg.Compiler.Table,
		DefaultLimit: cfg.Compiler.DefaultLimit,
		ListingCap:   cfg.Compiler.ListingCap,
		FallbackCap:  cfg.Compiler.FallbackCap,
		EmptyCap:     cfg.Compiler.EmptyCap,
	}
}

func (a *App) bootstrap(ctx context.Context) error {
	report, err := a.Store.Bootstrap(ctx, a.Config.Data.CSVCandidates)
	if err == nil {
		a.Report = report
		a.Log.Info("dataset loaded", map[string]interface{}{
			"source": report.Source,
			"rows":   report.Rows,
		})
		return nil
	}
	if !errors.Is(err, store.ErrDatasetNotFound) {
		return err
	}

	// A previous load may have left the table in place.
	if n, countErr := a.Store.Count(ctx); countErr == nil && n > 0 {
		a.Log.Warn("no CSV found, using existing table", map[string]interface{}{
			"sqlite_path": a.Config.Data.SQLitePath,
			"rows":        n,
		})
		return nil
	}
	a.DatasetErr = err
	a.Log.Warn("dataset not available", map[string]interface{}{"error": err.Error()})
	return nil
}

func (a *App) buildCache(ctx context.Context) cache.Cache {
	cc := a.Config.Cache
	switch cc.Backend {
	case "none":
		return nil
	case "redis":
		client := cache.NewRedisClient(cc.RedisAddr, cc.RedisDB)
		rc := cache.NewRedis(client, cc.TTL)
		if err := rc.Ping(ctx); err != nil {
			a.Log.Warn("redis unavailable, using in-memory cache", map[string]interface{}{
				"addr":  cc.RedisAddr,
				"error": err.Error(),
			})
			client.Close()
			return cache.NewLRU(cc.Size, cc.TTL)
		}
		a.closers = append(a.closers, client.Close)
		return rc
	}
	return cache.NewLRU(cc.Size, cc.TTL)
}

func (a *App) buildAgent(ctx context.Context, fs afero.Fs) error {
	agentCfg, err := agent.LoadConfig(a.Config.AgentConfig)
	if err != nil {
		return fmt.Errorf("failed to load agent config: %w", err)
	}

	auditPath := ""
	if agentCfg.Agent.Security.EnableAudit {
		auditPath = agentCfg.Agent.Security.AuditLogPath
	}
	audit, err := agent.NewAuditLogger(fs, auditPath, a.Log)
	if err != nil {
		return err
	}

	llm, err := agent.NewLLM(ctx, agentCfg.Agent.LLM)
	if err != nil {
		audit.Close()
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	a.Agent = agent.New(agentCfg, llm, a.Answers, audit, a.Log)
	a.closers = append(a.closers, a.Agent.Close)
	a.Log.Info("agent ready", map[string]interface{}{
		"provider": agentCfg.Agent.LLM.Provider,
		"model":    agentCfg.Agent.LLM.Model,
	})
	return nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
