package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"ventas-cli/internal/app"
	"ventas-cli/internal/command"
	"ventas-cli/internal/config"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/repl"
	"ventas-cli/internal/store"
)

type rootOptions struct {
	configPath string
	envFile    string
	agent      bool

	cfg *config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ventas-cli",
		Short: "Preguntas en español sobre la tabla de ventas",
		Long: `ventas-cli traduce preguntas en español a consultas SQL de solo lectura
sobre la tabla de ventas y muestra el resultado como texto, tabla, gráfico o archivo.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to configuration file (YAML or JSON)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().BoolVar(&opts.agent, "agent", false, "Answer with the LLM agent when no rule matches")

	root.AddCommand(newAskCommand(opts))
	root.AddCommand(newSQLCommand(opts))
	root.AddCommand(newLoadCommand(opts))
	root.AddCommand(newInitConfigCommand())

	return root
}

func (o *rootOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.log = logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (o *rootOptions) newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, o.log, app.Options{EnableAgent: o.agent})
}

func newHandler(cmd *cobra.Command, a *app.App, agentMode bool) *command.Handler {
	h := &command.Handler{
		Answers: a.Answers,
		Cache:   a.Querier,
		State:   &command.ReplState{},
		Out:     cmd.OutOrStdout(),
	}
	if a.Agent != nil {
		h.Agent = a.Agent
		h.State.AgentMode = agentMode
	}
	return h
}

func runREPL(cmd *cobra.Command, opts *rootOptions) error {
	a, err := opts.newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if a.DatasetErr != nil {
		return a.DatasetErr
	}

	repl.Start(newHandler(cmd, a, opts.agent))
	return nil
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <pregunta>",
		Short: "Responde una pregunta y termina",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.DatasetErr != nil {
				return a.DatasetErr
			}

			newHandler(cmd, a, opts.agent).Ask(strings.Join(args, " "))
			return nil
		},
	}
}

// planOutput is what `sql` prints.
type planOutput struct {
	Plan     nlsql.Plan     `json:"plan"`
	Entities nlsql.Entities `json:"entities"`
	Safe     bool           `json:"safe"`
}

func newSQLCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <pregunta>",
		Short: "Muestra el plan SQL de una pregunta sin ejecutarlo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			compiler := nlsql.New(app.CompilerOptions(opts.cfg))
			plan := compiler.Compile(question)

			data, err := json.MarshalIndent(planOutput{
				Plan:     plan,
				Entities: compiler.Extract(question),
				Safe:     compiler.Validate(plan.SQL) == nil,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newLoadCommand(opts *rootOptions) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Carga el CSV de ventas en SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			candidates := cfg.Data.CSVCandidates
			if csvPath != "" {
				candidates = []string{csvPath}
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Data.SQLitePath), 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			st, err := store.Open(cfg.Data.SQLitePath, cfg.Compiler.Table)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := st.Bootstrap(cmd.Context(), candidates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cargadas %d filas desde %s en %s\n", report.Rows, report.Source, cfg.Data.SQLitePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load instead of the configured candidates")
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [ruta]",
		Short: "Escribe un archivo de configuración con los valores por defecto",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.DefaultConfigPath
			if len(args) == 1 {
				target = args[0]
			}
			path, err := homedir.Expand(target)
			if err != nil {
				return fmt.Errorf("failed to expand config path: %w", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuración escrita en %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
