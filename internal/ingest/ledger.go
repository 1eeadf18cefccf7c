package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// ErrRunNotFound is returned when a run ID is unknown to the ledger
var ErrRunNotFound = errors.New("ingestion run not found")

// Run is one recorded ingestion pass
type Run struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id,omitempty"` // set on retries
	Source     string    `json:"source"`
	BatchSize  int       `json:"batch_size"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Report     Report    `json:"report"`
}

// NewRun starts a run record for source
func NewRun(source string, batchSize int) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		BatchSize: batchSize,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the run with its report
func (r *Run) Finish(report *Report) {
	r.FinishedAt = time.Now().UTC()
	if report != nil {
		r.Report = *report
	}
}

// Ledger persists ingestion runs in Badger
type Ledger struct {
	store *badgerhold.Store
}

// OpenLedger opens or creates the ledger database in dir
func OpenLedger(dir string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(dir)), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil // silence badger

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	return &Ledger{store: store}, nil
}

// Save inserts or replaces a run
func (l *Ledger) Save(run *Run) error {
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	if err := l.store.Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get loads a run by ID
func (l *Ledger) Get(id string) (*Run, error) {
	var run Run
	if err := l.store.Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (l *Ledger) List(limit int) ([]Run, error) {
	var runs []Run
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := l.store.Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// FailedBatches returns the batch indexes the run could not submit
func (l *Ledger) FailedBatches(id string) ([]int, error) {
	run, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	return run.Report.FailedIndexes(), nil
}

// Close closes the database
func (l *Ledger) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
