package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"marketcast/internal/config"
	"marketcast/internal/logging"
	"marketcast/internal/queue"
	"marketcast/internal/workflow"
)

// commandContext lazily loads configuration and shares it across
// subcommands. Logging goes to stderr so table output on stdout stays
// pipeable.
type commandContext struct {
	configFlag *string

	cfg        *config.Config
	configPath string
	exists     bool
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	_ = godotenv.Load()

	cfg, path, exists, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}

	c.cfg = cfg
	c.configPath = path
	c.exists = exists
	c.logger = logger
	return cfg, nil
}

// openRunner builds the store and workflow runner. Callers own closing the
// returned store.
func (c *commandContext) openRunner() (*workflow.Runner, *queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	runner := workflow.NewRunner(cfg, c.logger, store, workflow.NewDefaultDeps(cfg, c.logger))
	return runner, store, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "marketcast",
		Short:         "Market content pipeline CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newPostCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
