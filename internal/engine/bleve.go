package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// IndexSchemaVersion must be bumped whenever NewIndexMapping changes
const IndexSchemaVersion = 1

const indexVersionFile = ".index_version"

// Index abstracts the bleve.Index operations the backend uses
// This allows for easier testing with mocks
type Index interface {
	// SearchInContext executes a search request
	SearchInContext(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)

	// NewBatch starts an empty batch
	NewBatch() *bleve.Batch

	// Batch applies a batch atomically
	Batch(b *bleve.Batch) error

	// DocCount returns the number of documents in the index
	DocCount() (uint64, error)

	// Close closes the index
	Close() error
}

// Bleve is the local, embedded engine backend
type Bleve struct {
	index   Index
	taskSeq atomic.Int64
}

var _ Engine = (*Bleve)(nil)

// NewIndexMapping returns the document mapping: module is an exact-match
// keyword, everything else is dynamic text
func NewIndexMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("module", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("url", bleve.NewKeywordFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// OpenBleve opens the index at path, creating it when missing. An index
// written with another schema version is discarded and recreated.
func OpenBleve(path string) (*Bleve, error) {
	if path == "" {
		return nil, errors.New("bleve index path is empty")
	}

	if _, err := os.Stat(path); err == nil {
		if version := readIndexVersion(path); version == IndexSchemaVersion {
			index, err := bleve.Open(path)
			if err == nil {
				return NewBleveWithIndex(index), nil
			}
			// Corrupted index, rebuild it
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale index: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.New(path, NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	if err := writeIndexVersion(path); err != nil {
		index.Close()
		return nil, err
	}

	return NewBleveWithIndex(index), nil
}

// NewMemBleve returns an in-memory index
func NewMemBleve() (*Bleve, error) {
	index, err := bleve.NewMemOnly(NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	return NewBleveWithIndex(index), nil
}

// NewBleveWithIndex wraps an already open index
func NewBleveWithIndex(index Index) *Bleve {
	return &Bleve{index: index}
}

// AddDocuments indexes docs as one bleve batch. Bleve applies batches
// synchronously, so the ack is already final.
func (b *Bleve) AddDocuments(ctx context.Context, docs []indexing.DocumentRecord) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, recordFields(doc)); err != nil {
			return Ack{}, fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return Ack{}, unavailable("bleve batch", err)
	}

	return Ack{TaskID: b.taskSeq.Add(1), Status: "succeeded"}, nil
}

// Search runs a literal query
func (b *Bleve) Search(ctx context.Context, req Request) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	search := bleve.NewSearchRequestOptions(bleveQuery(req.Query, req.Filters), limit, 0, false)
	search.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, unavailable("bleve search", err)
	}

	resp := &Response{
		Hits:               make([]Hit, 0, len(result.Hits)),
		EstimatedTotalHits: int64(result.Total),
		ProcessingTime:     result.Took,
	}
	for _, hit := range result.Hits {
		fields := hit.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		resp.Hits = append(resp.Hits, Hit{
			ID:     hit.ID,
			Score:  hit.Score,
			Fields: fields,
		})
	}

	return resp, nil
}

// DocumentCount returns the number of indexed documents
func (b *Bleve) DocumentCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := b.index.DocCount()
	if err != nil {
		return 0, unavailable("bleve doc count", err)
	}
	return int64(count), nil
}

// Healthy reports whether the index can be read
func (b *Bleve) Healthy(ctx context.Context) error {
	_, err := b.DocumentCount(ctx)
	return err
}

func (b *Bleve) Close() error {
	return b.index.Close()
}

func readIndexVersion(path string) int {
	data, err := os.ReadFile(filepath.Join(path, indexVersionFile))
	if err != nil {
		return 0
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return version
}

func writeIndexVersion(path string) error {
	versionPath := filepath.Join(path, indexVersionFile)
	if err := os.WriteFile(versionPath, []byte(strconv.Itoa(IndexSchemaVersion)), 0644); err != nil {
		return fmt.Errorf("failed to write index version: %w", err)
	}
	return nil
}
