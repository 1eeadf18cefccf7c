package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/phuslu/log"

	"github.com/docsmcp/docs-mcp-server/internal/config"
	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/ingest"
	"github.com/docsmcp/docs-mcp-server/internal/logging"
)

// Context holds what every binary needs after startup
type Context struct {
	Config *config.Config
	Logger *log.Logger
	Engine engine.Engine
	Ledger *ingest.Ledger // nil when no ledger path is configured
}

// Options points at the configuration sources
type Options struct {
	EnvFile     string
	ConfigFiles []string
}

// New loads configuration, builds the logger and opens the engine and the
// run ledger
func New(ctx context.Context, opts Options) (*Context, error) {
	cfg, err := config.Load(opts.EnvFile, opts.ConfigFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return NewWithConfig(ctx, cfg, logging.New(cfg.Logging))
}

// NewWithConfig opens the engine and ledger for an already loaded config
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Context, error) {
	e, err := engine.Open(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s engine: %w", cfg.Engine.Backend, err)
	}

	if m, ok := e.(*engine.Meilisearch); ok {
		if err := m.EnsureIndex(ctx); err != nil {
			// an index created elsewhere still serves searches
			logger.Warn().Err(err).Str("index", cfg.Engine.Index).Msg("could not prepare meilisearch index")
		}
	}

	appCtx := &Context{
		Config: cfg,
		Logger: logger,
		Engine: e,
	}

	if cfg.Ingest.LedgerPath != "" {
		ledger, err := ingest.OpenLedger(cfg.Ingest.LedgerPath)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to open run ledger: %w", err)
		}
		appCtx.Ledger = ledger
	}

	logger.Info().
		Str("backend", cfg.Engine.Backend).
		Str("index", cfg.Engine.Index).
		Bool("ledger", appCtx.Ledger != nil).
		Msg("✓ engine ready")

	return appCtx, nil
}

// Close releases the ledger and the engine
func (c *Context) Close() error {
	var errs []error
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if c.Engine != nil {
		if err := c.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
	}
	return errors.Join(errs...)
}
