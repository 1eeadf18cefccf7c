package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/phuslu/log"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// Engine is what a full ingestion run needs from the search engine
type Engine interface {
	Submitter
	Counter
}

// FileOptions configures IngestFile and RetryRun
type FileOptions struct {
	Source    string
	Batch     Options
	Normalize indexing.NormalizeOptions

	// Wait polls the engine after submission until the documents are visible
	Wait bool
	Poll PollOptions
}

// FileResult is the outcome of one ingestion run
type FileResult struct {
	Run        *Run                 `json:"run"`
	LineErrors []indexing.LineError `json:"-"`
	Poll       *PollResult          `json:"poll,omitempty"`
}

// IngestFile reads a JSONL source, submits every batch and records the run
// in ledger when one is given
func IngestFile(ctx context.Context, e Engine, ledger *Ledger, opts FileOptions, logger *log.Logger) (*FileResult, error) {
	return ingestFile(ctx, e, ledger, opts, nil, "", logger)
}

// RetryRun re-submits only the failed batches of a previous run. The source
// must still hold the same records in the same order.
func RetryRun(ctx context.Context, e Engine, ledger *Ledger, runID string, opts FileOptions, logger *log.Logger) (*FileResult, error) {
	if ledger == nil {
		return nil, fmt.Errorf("retry needs a ledger")
	}

	parent, err := ledger.Get(runID)
	if err != nil {
		return nil, err
	}

	failed := parent.Report.FailedIndexes()
	if len(failed) == 0 {
		logger.Info().Str("run", runID).Msg("run has no failed batches")
		return &FileResult{Run: parent}, nil
	}

	if opts.Source == "" {
		opts.Source = parent.Source
	}
	opts.Batch.BatchSize = parent.BatchSize

	return ingestFile(ctx, e, ledger, opts, failed, parent.ID, logger)
}

func ingestFile(ctx context.Context, e Engine, ledger *Ledger, opts FileOptions, indexes []int, parentID string, logger *log.Logger) (*FileResult, error) {
	f, err := os.Open(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	records, lineErrs, err := indexing.ReadRecordsWith(f, opts.Normalize)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", opts.Source, err)
	}
	for _, le := range lineErrs {
		logger.Warn().Int("line", le.Line).Err(le.Err).Str("source", opts.Source).Msg("skipping undecodable line")
	}
	if distinct := expectedDocuments(records); distinct < int64(len(records)) {
		logger.Warn().
			Int("records", len(records)).
			Int64("distinct_ids", distinct).
			Str("source", opts.Source).
			Msg("records share ids; the engine keeps the last of each")
	}

	batcher := NewBatcher(e, opts.Batch, logger)
	run := NewRun(opts.Source, batcher.opts.BatchSize)
	run.ParentID = parentID

	report, err := batcher.IngestBatches(ctx, records, indexes)
	if err != nil && report == nil {
		return nil, err
	}
	run.Finish(report)

	if ledger != nil {
		if saveErr := ledger.Save(run); saveErr != nil {
			logger.Error().Err(saveErr).Str("run", run.ID).Msg("failed to record run")
		}
	}
	if err != nil {
		return &FileResult{Run: run, LineErrors: lineErrs}, err
	}

	result := &FileResult{Run: run, LineErrors: lineErrs}

	if opts.Wait {
		poll := Poll(ctx, e, expectedDocuments(records), opts.Poll, logger)
		result.Poll = &poll
	}

	return result, nil
}

// expectedDocuments counts distinct ids, since the engine upserts by id
func expectedDocuments(records []indexing.DocumentRecord) int64 {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		seen[rec.ID] = struct{}{}
	}
	return int64(len(seen))
}
