package commands

import (
	"context"
	"fmt"

	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/app"
	"github.com/docsmcp/docs-mcp-server/internal/config"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
	"github.com/docsmcp/docs-mcp-server/internal/ingest"
	"github.com/docsmcp/docs-mcp-server/internal/logging"
)

// ConfigFlags are accepted by every subcommand
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "environment file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "TOML configuration file",
		},
	}
}

// WithConfigFlags prepends the config flags to flags
func WithConfigFlags(flags ...cli.Flag) []cli.Flag {
	return append(ConfigFlags(), flags...)
}

// loadConfig reads configuration for commands that do not touch the engine
func loadConfig(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("env"), cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logging.New(cfg.Logging), nil
}

// openApp loads configuration and opens the engine and ledger
func openApp(ctx context.Context, cmd *cli.Command) (*app.Context, error) {
	return app.New(ctx, app.Options{
		EnvFile:     cmd.String("env"),
		ConfigFiles: []string{cmd.String("config")},
	})
}

func normalizeOptions(cfg *config.Config) indexing.NormalizeOptions {
	return indexing.NormalizeOptions{
		MaxContentChars: cfg.Normalize.MaxContentChars,
		DefaultModule:   cfg.Normalize.DefaultModule,
	}
}

func pollOptions(cfg *config.Config) (ingest.PollOptions, error) {
	interval, err := cfg.Ingest.PollIntervalDuration()
	if err != nil {
		return ingest.PollOptions{}, err
	}
	return ingest.PollOptions{
		MaxAttempts: cfg.Ingest.PollAttempts,
		Interval:    interval,
	}, nil
}
