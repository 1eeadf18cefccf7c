package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// filterableAttributes are the fields Filter may name
var filterableAttributes = []string{"module"}

// MeilisearchOptions configures the remote engine backend
type MeilisearchOptions struct {
	URL     string
	APIKey  string
	Index   string
	Timeout time.Duration
}

// meiliIndex is the subset of *meilisearch.Index the backend calls
type meiliIndex interface {
	AddDocuments(documentsPtr interface{}, primaryKey ...string) (*meilisearch.TaskInfo, error)
	Search(query string, request *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error)
	GetStats() (*meilisearch.StatsIndex, error)
	UpdateFilterableAttributes(request *[]string) (*meilisearch.TaskInfo, error)
}

// meiliClient is the subset of *meilisearch.Client the backend calls
type meiliClient interface {
	Health() (*meilisearch.Health, error)
	CreateIndex(config *meilisearch.IndexConfig) (*meilisearch.TaskInfo, error)
}

// Meilisearch is the remote engine backend. Writes are asynchronous: an ack
// carries the enqueued task, and documents become searchable later.
type Meilisearch struct {
	uid    string
	client meiliClient
	index  meiliIndex
}

var _ Engine = (*Meilisearch)(nil)

// NewMeilisearch connects lazily; no request is made until first use
func NewMeilisearch(opts MeilisearchOptions) *Meilisearch {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:    opts.URL,
		APIKey:  opts.APIKey,
		Timeout: opts.Timeout,
	})
	return &Meilisearch{
		uid:    opts.Index,
		client: client,
		index:  client.Index(opts.Index),
	}
}

// EnsureIndex creates the index with primary key id and makes the filter
// fields filterable. Creating an index that exists only fails its task, so
// it is safe to call on every run.
func (m *Meilisearch) EnsureIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.client.CreateIndex(&meilisearch.IndexConfig{Uid: m.uid, PrimaryKey: "id"}); err != nil {
		return unavailable("meilisearch create index", err)
	}
	attrs := append([]string(nil), filterableAttributes...)
	if _, err := m.index.UpdateFilterableAttributes(&attrs); err != nil {
		return unavailable("meilisearch filterable attributes", err)
	}
	return nil
}

// AddDocuments posts one batch to the documents endpoint
func (m *Meilisearch) AddDocuments(ctx context.Context, docs []indexing.DocumentRecord) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}

	body := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		body = append(body, recordFields(doc))
	}

	task, err := m.index.AddDocuments(body, "id")
	if err != nil {
		return Ack{}, unavailable("meilisearch add documents", err)
	}

	return Ack{TaskID: task.TaskUID, Status: string(task.Status)}, nil
}

// Search sends {q, limit, filter} and passes the returned documents through
func (m *Meilisearch) Search(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	search := &meilisearch.SearchRequest{
		Limit:            int64(limit),
		ShowRankingScore: true,
	}
	if filter := meiliFilter(req.Filters); filter != "" {
		search.Filter = filter
	}

	result, err := m.index.Search(req.Query, search)
	if err != nil {
		return nil, unavailable("meilisearch search", err)
	}

	resp := &Response{
		Hits:               make([]Hit, 0, len(result.Hits)),
		EstimatedTotalHits: result.EstimatedTotalHits,
		ProcessingTime:     time.Duration(result.ProcessingTimeMs) * time.Millisecond,
	}
	for _, raw := range result.Hits {
		if doc, ok := raw.(map[string]interface{}); ok {
			resp.Hits = append(resp.Hits, meiliHit(doc))
		}
	}

	return resp, nil
}

// DocumentCount reads the index stats
func (m *Meilisearch) DocumentCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stats, err := m.index.GetStats()
	if err != nil {
		return 0, unavailable("meilisearch stats", err)
	}
	return stats.NumberOfDocuments, nil
}

// Healthy calls the health endpoint
func (m *Meilisearch) Healthy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	health, err := m.client.Health()
	if err != nil {
		return unavailable("meilisearch health", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("%w: meilisearch status %q", ErrUnavailable, health.Status)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connection
func (m *Meilisearch) Close() error {
	return nil
}

// meiliFilter renders filters as `field = "value"` expressions joined by AND
func meiliFilter(filters []Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.Field == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = %s", f.Field, strconv.Quote(f.Value)))
	}
	return strings.Join(parts, " AND ")
}

// meiliHit splits the ranking score and id out of a returned document
func meiliHit(doc map[string]interface{}) Hit {
	hit := Hit{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_rankingScore":
			if score, ok := v.(float64); ok {
				hit.Score = score
			}
		default:
			hit.Fields[k] = v
		}
	}
	if id, ok := doc["id"].(string); ok {
		hit.ID = id
	}
	return hit
}
