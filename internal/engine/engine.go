// Package engine adapts full-text search engines to the small surface the
// ingestion and query paths need.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docsmcp/docs-mcp-server/internal/config"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// ErrUnavailable wraps every failure to reach or use the engine.
// A search that fails is never reported as a search with zero hits.
var ErrUnavailable = errors.New("search engine unavailable")

// Engine is a document index that accepts batches and answers literal queries
type Engine interface {
	// AddDocuments submits one batch. Acceptance does not mean the documents
	// are searchable yet.
	AddDocuments(ctx context.Context, docs []indexing.DocumentRecord) (Ack, error)

	// Search runs a literal query as produced by the query package
	Search(ctx context.Context, req Request) (*Response, error)

	// DocumentCount returns the number of searchable documents
	DocumentCount(ctx context.Context) (int64, error)

	// Healthy returns nil when the engine answers
	Healthy(ctx context.Context) error

	Close() error
}

// Filter restricts results to documents whose Field equals Value
type Filter struct {
	Field string
	Value string
}

// Request is an engine search request
type Request struct {
	Query   string
	Limit   int
	Filters []Filter
}

// Hit is an engine-native result. Fields holds the stored document fields as
// the engine returns them, so sequences may come back as a single string.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// Response is an engine search response
type Response struct {
	Hits               []Hit
	EstimatedTotalHits int64
	ProcessingTime     time.Duration
}

// Ack is the engine's acknowledgement of a submitted batch
type Ack struct {
	TaskID int64  `json:"task_id"`
	Status string `json:"status"`
}

// Searchable fields, in the order the bleve phrase query visits them
var textFields = []string{"title", "headers", "paragraphs", "content", "breadcrumb"}

// Open builds the engine selected by cfg.Backend
func Open(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Backend {
	case "bleve", "":
		return OpenBleve(cfg.Bleve.Path)
	case "meilisearch":
		timeout, err := cfg.Meilisearch.TimeoutDuration()
		if err != nil {
			return nil, fmt.Errorf("invalid meilisearch timeout: %w", err)
		}
		return NewMeilisearch(MeilisearchOptions{
			URL:     cfg.Meilisearch.URL,
			APIKey:  cfg.Meilisearch.APIKey,
			Index:   cfg.Index,
			Timeout: timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}

// recordFields flattens a record into the document body sent to the engine
func recordFields(rec indexing.DocumentRecord) map[string]any {
	return map[string]any{
		"id":         rec.ID,
		"title":      rec.Title,
		"module":     rec.Module,
		"breadcrumb": rec.Breadcrumb,
		"headers":    rec.Headers,
		"paragraphs": rec.Paragraphs,
		"content":    rec.Content,
		"url":        rec.URL,
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
