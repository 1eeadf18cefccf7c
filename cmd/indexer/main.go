package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/cmd/indexer/commands"
	"github.com/docsmcp/docs-mcp-server/internal/engine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "indexer",
		Usage:   "Normalize, validate and ingest documentation into the search index",
		Version: fmt.Sprintf("index schema v%d", engine.IndexSchemaVersion),
		Commands: []*cli.Command{
			{
				Name:      "normalize",
				Usage:     "Convert scraped pages into normalized document records",
				ArgsUsage: "<raw.jsonl> <out.jsonl>",
				Flags: commands.WithConfigFlags(
					&cli.StringFlag{
						Name:  "module",
						Usage: "product module assigned to every record",
					},
				),
				Action: commands.NormalizeAction,
			},
			{
				Name:      "validate",
				Usage:     "Check a document JSONL file against the record schema",
				ArgsUsage: "<file.jsonl>",
				Flags:     commands.ConfigFlags(),
				Action:    commands.ValidateAction,
			},
			{
				Name:      "ingest",
				Usage:     "Submit a document JSONL file to the search engine in batches",
				ArgsUsage: "[file.jsonl]",
				Flags: commands.WithConfigFlags(
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "records per bulk request (default from config)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "batches submitted in parallel (default from config)",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "poll until the documents are searchable",
					},
				),
				Action: commands.IngestAction,
			},
			{
				Name:  "wait",
				Usage: "Poll the engine until it reports the expected number of documents",
				Flags: commands.WithConfigFlags(
					&cli.IntFlag{
						Name:     "expected",
						Usage:    "document count to wait for",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "attempts",
						Usage: "maximum number of checks (default from config)",
					},
				),
				Action: commands.WaitAction,
			},
			{
				Name:  "runs",
				Usage: "List recorded ingestion runs",
				Flags: commands.WithConfigFlags(
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of runs to show",
						Value: 20,
					},
				),
				Action: commands.RunsAction,
			},
			{
				Name:  "retry",
				Usage: "Re-submit only the failed batches of a recorded run",
				Flags: commands.WithConfigFlags(
					&cli.StringFlag{
						Name:     "run",
						Usage:    "ID of the run to retry",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "JSONL file holding the same records (default: the run's source)",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "poll until the documents are searchable",
					},
				),
				Action: commands.RetryAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
}
