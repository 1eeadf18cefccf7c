package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/app"
	"github.com/docsmcp/docs-mcp-server/tools"
)

const (
	version    = "0.3.0"
	serverName = "docs-mcp-server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    serverName,
		Usage:   "MCP server for product documentation search over stdio",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML configuration file",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serverName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := app.New(ctx, app.Options{
		EnvFile:     cmd.String("env"),
		ConfigFiles: []string{cmd.String("config")},
	})
	if err != nil {
		return err
	}
	logger := appCtx.Logger

	logger.Info().Str("version", version).Msgf("%s starting...", serverName)

	// Set up cleanup on shutdown
	defer func() {
		if err := appCtx.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing engine")
		}
	}()

	docSearch := tools.NewDocSearch(appCtx.Config, appCtx.Engine, appCtx.Ledger, logger)
	server := createMCPServer(docSearch, logger)

	logger.Info().Msg("✓ Server ready and waiting for connections")

	// Run server with stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// createMCPServer initializes the MCP server
func createMCPServer(docSearch *tools.DocSearch, logger *log.Logger) *mcp.Server {
	return tools.NewServer(serverName, version, docSearch, logger)
}
