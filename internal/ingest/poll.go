package ingest

import (
	"context"
	"time"

	"github.com/phuslu/log"
)

// PollStatus is the outcome of waiting for documents to become searchable
type PollStatus string

const (
	// PollConfirmed means the engine reported at least the expected count
	PollConfirmed PollStatus = "confirmed"

	// PollTimedOut means attempts ran out. The state is unknown, not failed.
	PollTimedOut PollStatus = "timed_out"

	// PollCancelled means the context ended first
	PollCancelled PollStatus = "cancelled"
)

// Counter reports how many documents the engine can currently search
type Counter interface {
	DocumentCount(ctx context.Context) (int64, error)
}

// PollOptions bounds the wait
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollOptions waits up to 30 attempts one second apart
func DefaultPollOptions() PollOptions {
	return PollOptions{MaxAttempts: 30, Interval: time.Second}
}

// PollResult reports what the poll observed
type PollResult struct {
	Status   PollStatus `json:"status"`
	Expected int64      `json:"expected"`
	Observed int64      `json:"observed"`
	Attempts int        `json:"attempts"`
}

// Poll checks the document count at a fixed interval until it reaches
// expected or attempts run out. Counter errors are logged and count as an
// attempt. The result is advisory; a timeout is not an error.
func Poll(ctx context.Context, counter Counter, expected int64, opts PollOptions, logger *log.Logger) PollResult {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultPollOptions().MaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollOptions().Interval
	}

	result := PollResult{Status: PollTimedOut, Expected: expected}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result.Attempts = attempt

		count, err := counter.DocumentCount(ctx)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = PollCancelled
				return result
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("document count failed")
		} else {
			result.Observed = count
			logger.Debug().Int64("observed", count).Int64("expected", expected).Int("attempt", attempt).Msg("poll")
			if count >= expected {
				result.Status = PollConfirmed
				return result
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			result.Status = PollCancelled
			return result
		case <-ticker.C:
		}
	}

	logger.Warn().Int64("observed", result.Observed).Int64("expected", expected).Int("attempts", result.Attempts).Msg("documents not visible yet, verify independently")
	return result
}
