// Package ingest submits normalized records to the search engine in
// fixed-size batches and tracks what the engine accepted.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// DefaultBatchSize is the number of records per bulk request
const DefaultBatchSize = 100

// ErrInvalidBatchSize is returned for a batch size below one
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// Submitter is the write side of an engine
type Submitter interface {
	AddDocuments(ctx context.Context, docs []indexing.DocumentRecord) (engine.Ack, error)
}

// Options tunes a Batcher
type Options struct {
	BatchSize int

	// Concurrency bounds in-flight batch submissions. 1 submits strictly in order.
	Concurrency int
}

// BatchAck is the engine's acknowledgement of one batch
type BatchAck struct {
	BatchIndex int    `json:"batch_index"`
	TaskID     int64  `json:"task_id"`
	Status     string `json:"status"`
	Size       int    `json:"size"`
}

// BatchFailure records a batch the engine did not accept
type BatchFailure struct {
	BatchIndex int    `json:"batch_index"`
	Size       int    `json:"size"`
	Reason     string `json:"reason"`
}

// Report summarizes one ingestion pass.
// Submitted counts records handed to the engine; Confirmed counts records in
// acknowledged batches. Acknowledged is not the same as searchable.
type Report struct {
	Submitted int            `json:"submitted"`
	Confirmed int            `json:"confirmed"`
	Batches   int            `json:"batches"`
	Failures  []BatchFailure `json:"failures"`
	Acks      []BatchAck     `json:"acks"`
}

// FailedIndexes returns the batch indexes that failed, ascending
func (r *Report) FailedIndexes() []int {
	indexes := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		indexes = append(indexes, f.BatchIndex)
	}
	return indexes
}

// Batcher partitions records and submits each batch to the engine
type Batcher struct {
	engine Submitter
	opts   Options
	logger *log.Logger
}

// NewBatcher returns a Batcher; zero options take the defaults
func NewBatcher(e Submitter, opts Options, logger *log.Logger) *Batcher {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Batcher{engine: e, opts: opts, logger: logger}
}

// Partition splits records into contiguous batches of at most size records,
// preserving order. Only the last batch may be short.
func Partition(records []indexing.DocumentRecord, size int) ([][]indexing.DocumentRecord, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}

	batches := make([][]indexing.DocumentRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches, nil
}

// Ingest submits every batch. A failed batch is recorded and the rest still
// go out; the error return is reserved for invalid arguments and
// cancellation.
func (b *Batcher) Ingest(ctx context.Context, records []indexing.DocumentRecord) (*Report, error) {
	return b.IngestBatches(ctx, records, nil)
}

// IngestBatches submits only the listed batch indexes of records, as
// partitioned with the same batch size. nil means every batch.
func (b *Batcher) IngestBatches(ctx context.Context, records []indexing.DocumentRecord, indexes []int) (*Report, error) {
	batches, err := Partition(records, b.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	selected, err := selectBatches(len(batches), indexes)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Batches:  len(batches),
		Failures: []BatchFailure{},
		Acks:     []BatchAck{},
	}

	b.logger.Info().Int("records", len(records)).Int("batches", len(batches)).Int("selected", len(selected)).Int("batch_size", b.opts.BatchSize).Msg("ingest started")

	var mu sync.Mutex
	submit := func(ctx context.Context, idx int) {
		batch := batches[idx]
		ack, err := b.engine.AddDocuments(ctx, batch)

		mu.Lock()
		defer mu.Unlock()

		report.Submitted += len(batch)
		if err != nil {
			b.logger.Warn().Err(err).Int("batch", idx).Int("size", len(batch)).Msg("batch rejected")
			report.Failures = append(report.Failures, BatchFailure{BatchIndex: idx, Size: len(batch), Reason: err.Error()})
			return
		}

		b.logger.Debug().Int("batch", idx).Int64("task_id", ack.TaskID).Str("status", ack.Status).Msg("batch accepted")
		report.Confirmed += len(batch)
		report.Acks = append(report.Acks, BatchAck{BatchIndex: idx, TaskID: ack.TaskID, Status: ack.Status, Size: len(batch)})
	}

	if b.opts.Concurrency == 1 {
		for _, idx := range selected {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			submit(ctx, idx)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.opts.Concurrency)
		for _, idx := range selected {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				submit(gctx, idx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			sortReport(report)
			return report, err
		}
	}

	sortReport(report)

	b.logger.Info().Int("submitted", report.Submitted).Int("confirmed", report.Confirmed).Int("failed_batches", len(report.Failures)).Msg("ingest finished")

	return report, nil
}

func selectBatches(total int, indexes []int) ([]int, error) {
	if indexes == nil {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool, len(indexes))
	selected := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= total {
			return nil, fmt.Errorf("batch index %d out of range [0, %d)", idx, total)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		selected = append(selected, idx)
	}
	sort.Ints(selected)
	return selected, nil
}

func sortReport(r *Report) {
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].BatchIndex < r.Failures[j].BatchIndex })
	sort.Slice(r.Acks, func(i, j int) bool { return r.Acks[i].BatchIndex < r.Acks[j].BatchIndex })
}
