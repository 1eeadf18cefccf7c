package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/api"
	"github.com/docsmcp/docs-mcp-server/internal/app"
	"github.com/docsmcp/docs-mcp-server/internal/query"
	"github.com/docsmcp/docs-mcp-server/tools"
)

const (
	version    = "0.3.0"
	serverName = "docs-searchd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    serverName,
		Usage:   "HTTP search API and MCP over streamable HTTP",
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
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP port (default from config)",
			},
		},
		Action: serve,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serverName, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := app.New(ctx, app.Options{
		EnvFile:     cmd.String("env"),
		ConfigFiles: []string{cmd.String("config")},
	})
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}

	docSearch := tools.NewDocSearch(cfg, appCtx.Engine, appCtx.Ledger, appCtx.Logger)
	mcpServer := tools.NewServer(serverName, version, docSearch, appCtx.Logger)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	srv := api.New(api.Options{
		Search:   docSearch.Service(),
		Health:   appCtx.Engine,
		Defaults: query.Defaults{Limit: cfg.Search.DefaultLimit, MaxLimit: cfg.Search.MaxLimit},
		MCP:      mcpHandler,
		Logger:   appCtx.Logger,
	})

	return srv.Start(ctx, cfg.Server.Address())
}
