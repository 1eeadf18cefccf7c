package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/app"
	"github.com/docsmcp/docs-mcp-server/internal/ingest"
)

// IngestAction submits a JSONL file to the engine in batches
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	opts, err := fileOptions(appCtx, cmd)
	if err != nil {
		return err
	}
	if source := cmd.Args().First(); source != "" {
		opts.Source = source
	}

	logger := appCtx.Logger
	logger.Info().
		Str("source", opts.Source).
		Int("batch_size", opts.Batch.BatchSize).
		Int("concurrency", opts.Batch.Concurrency).
		Msg("starting ingestion")

	start := time.Now()
	result, err := ingest.IngestFile(ctx, appCtx.Engine, appCtx.Ledger, opts, logger)
	if result != nil {
		logResult(logger, result, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

// RetryAction re-submits the failed batches of a recorded run
func RetryAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if appCtx.Ledger == nil {
		return fmt.Errorf("retry needs ingest.ledger_path to be configured")
	}

	opts, err := fileOptions(appCtx, cmd)
	if err != nil {
		return err
	}
	// The parent run's source wins unless one is given explicitly
	opts.Source = cmd.String("source")

	runID := cmd.String("run")
	start := time.Now()
	result, err := ingest.RetryRun(ctx, appCtx.Engine, appCtx.Ledger, runID, opts, appCtx.Logger)
	if result != nil {
		logResult(appCtx.Logger, result, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("retry of run %s failed: %w", runID, err)
	}
	return nil
}

// WaitAction polls the engine until it reports the expected document count
func WaitAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	opts, err := pollOptions(appCtx.Config)
	if err != nil {
		return err
	}
	if attempts := int(cmd.Int("attempts")); attempts > 0 {
		opts.MaxAttempts = attempts
	}

	expected := int64(cmd.Int("expected"))
	result := ingest.Poll(ctx, appCtx.Engine, expected, opts, appCtx.Logger)

	level := log.InfoLevel
	if result.Status != ingest.PollConfirmed {
		level = log.WarnLevel
	}
	appCtx.Logger.WithLevel(level).
		Str("status", string(result.Status)).
		Int64("expected", result.Expected).
		Int64("observed", result.Observed).
		Int("attempts", result.Attempts).
		Msg("visibility check finished")
	return nil
}

// RunsAction lists recorded ingestion runs, newest first
func RunsAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if appCtx.Ledger == nil {
		return fmt.Errorf("no run ledger configured (ingest.ledger_path)")
	}

	runs, err := appCtx.Ledger.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return printRuns(os.Stdout, runs)
}

func fileOptions(appCtx *app.Context, cmd *cli.Command) (ingest.FileOptions, error) {
	cfg := appCtx.Config
	poll, err := pollOptions(cfg)
	if err != nil {
		return ingest.FileOptions{}, err
	}

	opts := ingest.FileOptions{
		Source: cfg.Ingest.Source,
		Batch: ingest.Options{
			BatchSize:   cfg.Ingest.BatchSize,
			Concurrency: cfg.Ingest.Concurrency,
		},
		Normalize: normalizeOptions(cfg),
		Wait:      cmd.Bool("wait"),
		Poll:      poll,
	}
	if cmd.IsSet("batch-size") {
		opts.Batch.BatchSize = int(cmd.Int("batch-size"))
	}
	if cmd.IsSet("concurrency") {
		opts.Batch.Concurrency = int(cmd.Int("concurrency"))
	}
	if opts.Batch.BatchSize < 1 {
		return ingest.FileOptions{}, ingest.ErrInvalidBatchSize
	}

	return opts, nil
}

func logResult(logger *log.Logger, result *ingest.FileResult, elapsed time.Duration) {
	run := result.Run
	report := run.Report

	level := log.InfoLevel
	if len(report.Failures) > 0 {
		level = log.WarnLevel
	}
	logger.WithLevel(level).
		Str("run", run.ID).
		Int("submitted", report.Submitted).
		Int("confirmed", report.Confirmed).
		Int("batches", report.Batches).
		Int("failed_batches", len(report.Failures)).
		Int("skipped_lines", len(result.LineErrors)).
		Dur("elapsed", elapsed.Round(time.Millisecond)).
		Msg("✓ ingestion finished")

	for _, f := range report.Failures {
		logger.Warn().Int("batch", f.BatchIndex).Int("size", f.Size).Str("reason", f.Reason).Msg("batch failed")
	}
	if len(report.Failures) > 0 {
		logger.Info().Msgf("retry with: indexer retry --run %s", run.ID)
	}

	if result.Poll != nil {
		logger.Info().
			Str("status", string(result.Poll.Status)).
			Int64("expected", result.Poll.Expected).
			Int64("observed", result.Poll.Observed).
			Msg("visibility")
	}
}

func printRuns(w io.Writer, runs []ingest.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no ingestion runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSOURCE\tSUBMITTED\tCONFIRMED\tFAILED BATCHES\tPARENT")
	for _, run := range runs {
		failed := make([]string, 0, len(run.Report.Failures))
		for _, idx := range run.Report.FailedIndexes() {
			failed = append(failed, fmt.Sprint(idx))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Source,
			run.Report.Submitted,
			run.Report.Confirmed,
			dashIfEmpty(strings.Join(failed, ",")),
			dashIfEmpty(run.ParentID),
		)
	}
	return tw.Flush()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
