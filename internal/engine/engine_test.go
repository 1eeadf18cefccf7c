package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsmcp/docs-mcp-server/internal/config"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

func sampleRecords() []indexing.DocumentRecord {
	opts := indexing.DefaultNormalizeOptions()
	return []indexing.DocumentRecord{
		indexing.Normalize(map[string]any{
			"title":      "Servidor de linguagem",
			"headers":    []any{"Configuração"},
			"paragraphs": []any{"As funções lsp ficam disponíveis no editor"},
			"content":    "As funções lsp ficam disponíveis no editor",
			"url":        "https://tdn.totvs.com/lsp",
		}, "lsp", "ECM", opts),
		indexing.Normalize(map[string]any{
			"title":   "Funções de processo",
			"content": "Cada processo expõe funções para o workflow e o lsp separado",
			"url":     "https://tdn.totvs.com/workflow",
		}, "workflow", "BPM", opts),
		indexing.Normalize(map[string]any{
			"title":   "Datasets",
			"content": "Datasets retornam dados tabulares",
			"url":     "https://tdn.totvs.com/datasets",
		}, "datasets", "ECM", opts),
	}
}

func newLoadedBleve(t *testing.T) *Bleve {
	t.Helper()
	b, err := NewMemBleve()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ack, err := b.AddDocuments(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "succeeded", ack.Status)
	assert.Equal(t, int64(1), ack.TaskID)
	return b
}

func hitIDs(resp *Response) []string {
	ids := make([]string, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestBleve_RoundTrip(t *testing.T) {
	b := newLoadedBleve(t)
	ctx := context.Background()

	count, err := b.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, b.Healthy(ctx))

	tests := []struct {
		name    string
		req     Request
		want    []string
		wantAny bool
	}{
		{name: "phrase matches adjacent words only", req: Request{Query: `"funções lsp"`, Limit: 10}, want: []string{"lsp"}},
		{name: "and needs every term", req: Request{Query: "funções AND lsp", Limit: 10}, want: []string{"lsp", "workflow"}, wantAny: true},
		{name: "phrase with no match", req: Request{Query: `"lsp funções"`, Limit: 10}, want: []string{}},
		{name: "single term", req: Request{Query: "datasets", Limit: 10}, want: []string{"datasets"}},
		{name: "module filter", req: Request{Query: "funções AND lsp", Limit: 10, Filters: []Filter{{Field: "module", Value: "BPM"}}}, want: []string{"workflow"}},
		{name: "empty query matches all", req: Request{Query: "", Limit: 10}, want: []string{"lsp", "workflow", "datasets"}, wantAny: true},
		{name: "lone operator matches nothing", req: Request{Query: "AND", Limit: 10}, want: []string{}},
		{name: "bare quote matches nothing", req: Request{Query: `"`, Limit: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := b.Search(ctx, tt.req)
			require.NoError(t, err)
			if tt.wantAny {
				assert.ElementsMatch(t, tt.want, hitIDs(resp))
			} else {
				assert.Equal(t, tt.want, hitIDs(resp))
			}
		})
	}
}

func TestBleve_HitFields(t *testing.T) {
	b := newLoadedBleve(t)

	resp, err := b.Search(context.Background(), Request{Query: "datasets", Limit: 1})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)

	hit := resp.Hits[0]
	assert.Equal(t, "Datasets", hit.Fields["title"])
	assert.Equal(t, "ECM", hit.Fields["module"])
	assert.Equal(t, "https://tdn.totvs.com/datasets", hit.Fields["url"])
	assert.Greater(t, hit.Score, 0.0)
	assert.Equal(t, int64(1), resp.EstimatedTotalHits)
}

func TestBleve_UpsertByID(t *testing.T) {
	b := newLoadedBleve(t)
	ctx := context.Background()

	_, err := b.AddDocuments(ctx, sampleRecords())
	require.NoError(t, err)

	count, err := b.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestBleve_ErrorsAreUnavailable(t *testing.T) {
	idx := newMockIndex()
	idx.searchError = errors.New("disk on fire")
	idx.batchError = errors.New("disk on fire")
	idx.countError = errors.New("disk on fire")
	b := NewBleveWithIndex(idx)
	ctx := context.Background()

	_, err := b.Search(ctx, Request{Query: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = b.AddDocuments(ctx, sampleRecords())
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = b.DocumentCount(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, b.Healthy(ctx), ErrUnavailable)
}

func TestBleve_MockBatchCountsDocuments(t *testing.T) {
	idx := newMockIndex()
	b := NewBleveWithIndex(idx)

	ack, err := b.AddDocuments(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ack.TaskID)
	assert.Equal(t, int32(1), idx.batches.Load())
	assert.Equal(t, uint64(103), idx.docCount)

	require.NoError(t, b.Close())
	assert.True(t, idx.closed.Load())
}

func TestBleve_CancelledContext(t *testing.T) {
	b := NewBleveWithIndex(newMockIndex())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.AddDocuments(ctx, sampleRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenBleve_PersistsAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search", "index")

	b, err := OpenBleve(path)
	require.NoError(t, err)
	_, err = b.AddDocuments(context.Background(), sampleRecords())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.Equal(t, IndexSchemaVersion, readIndexVersion(path))

	reopened, err := OpenBleve(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestOpen_SelectsBackend(t *testing.T) {
	e, err := Open(config.EngineConfig{Backend: "bleve", Bleve: config.BleveConfig{Path: filepath.Join(t.TempDir(), "idx")}})
	require.NoError(t, err)
	assert.IsType(t, &Bleve{}, e)
	require.NoError(t, e.Close())

	e, err = Open(config.EngineConfig{Backend: "meilisearch", Index: "docs", Meilisearch: config.MeilisearchConfig{URL: "http://localhost:7700", Timeout: "2s"}})
	require.NoError(t, err)
	assert.IsType(t, &Meilisearch{}, e)

	_, err = Open(config.EngineConfig{Backend: "solr"})
	assert.Error(t, err)
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		clauses     []clause
		conjunctive bool
	}{
		{"empty", "", nil, false},
		{"single term", "dataset", []clause{{text: "dataset"}}, false},
		{"phrase", `"funções lsp"`, []clause{{text: "funções lsp", phrase: true}}, false},
		{"and", "funções AND lsp", []clause{{text: "funções"}, {text: "lsp"}}, true},
		{"lowercase and is a term", "a and b", []clause{{text: "a"}, {text: "and"}, {text: "b"}}, false},
		{"unterminated quote", `"open phrase`, []clause{{text: "open phrase", phrase: true}}, false},
		{"mixed", `"a b" AND c`, []clause{{text: "a b", phrase: true}, {text: "c"}}, true},
		{"empty quotes", `""`, nil, false},
		{"lone and", "AND", nil, false},
		{"bare quote", `"`, nil, false},
		{"leading and", "AND lsp", []clause{{text: "lsp"}}, false},
		{"trailing and", "lsp AND", []clause{{text: "lsp"}}, false},
		{"repeated and", "a AND AND b", []clause{{text: "a"}, {text: "b"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lit := parseLiteral(tt.input)
			assert.Equal(t, tt.clauses, lit.clauses)
			assert.Equal(t, tt.conjunctive, lit.conjunctive)
		})
	}
}

func TestBleveQuery_Shapes(t *testing.T) {
	assert.IsType(t, &query.MatchAllQuery{}, bleveQuery("   ", nil))
	assert.IsType(t, &query.MatchNoneQuery{}, bleveQuery("AND", nil))
	assert.IsType(t, &query.MatchNoneQuery{}, bleveQuery(`"`, nil))
	assert.IsType(t, &query.MatchQuery{}, bleveQuery("dataset", nil))
	assert.IsType(t, &query.DisjunctionQuery{}, bleveQuery(`"a b"`, nil))
	assert.IsType(t, &query.ConjunctionQuery{}, bleveQuery("a AND b", nil))
	assert.IsType(t, &query.DisjunctionQuery{}, bleveQuery("a b", nil))
	assert.IsType(t, &query.ConjunctionQuery{}, bleveQuery("dataset", []Filter{{Field: "module", Value: "ECM"}}))
}

// fakeMeili implements both meiliIndex and meiliClient
type fakeMeili struct {
	lastQuery   string
	lastRequest *meilisearch.SearchRequest
	lastDocs    interface{}
	filterable  []string
	created     *meilisearch.IndexConfig
	hits        []interface{}
	err         error
	health      string
}

func (f *fakeMeili) AddDocuments(documentsPtr interface{}, primaryKey ...string) (*meilisearch.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastDocs = documentsPtr
	return &meilisearch.TaskInfo{TaskUID: 7, Status: meilisearch.TaskStatusEnqueued}, nil
}

func (f *fakeMeili) Search(q string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastQuery = q
	f.lastRequest = req
	return &meilisearch.SearchResponse{Hits: f.hits, EstimatedTotalHits: int64(len(f.hits)), ProcessingTimeMs: 4}, nil
}

func (f *fakeMeili) GetStats() (*meilisearch.StatsIndex, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &meilisearch.StatsIndex{NumberOfDocuments: 855}, nil
}

func (f *fakeMeili) UpdateFilterableAttributes(request *[]string) (*meilisearch.TaskInfo, error) {
	f.filterable = *request
	return &meilisearch.TaskInfo{TaskUID: 2}, nil
}

func (f *fakeMeili) Health() (*meilisearch.Health, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &meilisearch.Health{Status: f.health}, nil
}

func (f *fakeMeili) CreateIndex(cfg *meilisearch.IndexConfig) (*meilisearch.TaskInfo, error) {
	f.created = cfg
	return &meilisearch.TaskInfo{TaskUID: 1}, nil
}

func newFakeMeilisearch(f *fakeMeili) *Meilisearch {
	return &Meilisearch{uid: "docs", client: f, index: f}
}

func TestMeilisearch_Search(t *testing.T) {
	fake := &fakeMeili{
		hits: []interface{}{
			map[string]interface{}{"id": "a", "title": "Processos", "module": "BPM", "_rankingScore": 0.93},
			"not a document",
		},
	}
	m := newFakeMeilisearch(fake)

	resp, err := m.Search(context.Background(), Request{
		Query:   `"funções lsp"`,
		Limit:   5,
		Filters: []Filter{{Field: "module", Value: "BPM"}},
	})
	require.NoError(t, err)

	assert.Equal(t, `"funções lsp"`, fake.lastQuery)
	assert.Equal(t, int64(5), fake.lastRequest.Limit)
	assert.Equal(t, `module = "BPM"`, fake.lastRequest.Filter)

	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "a", resp.Hits[0].ID)
	assert.Equal(t, 0.93, resp.Hits[0].Score)
	assert.Equal(t, "Processos", resp.Hits[0].Fields["title"])
	assert.NotContains(t, resp.Hits[0].Fields, "_rankingScore")
	assert.Equal(t, int64(4), resp.ProcessingTime.Milliseconds())
}

func TestMeilisearch_NoFilterLeavesFilterUnset(t *testing.T) {
	fake := &fakeMeili{}
	m := newFakeMeilisearch(fake)

	_, err := m.Search(context.Background(), Request{Query: "x"})
	require.NoError(t, err)
	assert.Nil(t, fake.lastRequest.Filter)
	assert.Equal(t, int64(10), fake.lastRequest.Limit)
}

func TestMeilisearch_WritesAndStats(t *testing.T) {
	fake := &fakeMeili{health: "available"}
	m := newFakeMeilisearch(fake)
	ctx := context.Background()

	require.NoError(t, m.EnsureIndex(ctx))
	assert.Equal(t, "docs", fake.created.Uid)
	assert.Equal(t, "id", fake.created.PrimaryKey)
	assert.Equal(t, []string{"module"}, fake.filterable)

	ack, err := m.AddDocuments(ctx, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, int64(7), ack.TaskID)
	assert.Equal(t, "enqueued", ack.Status)
	docs, ok := fake.lastDocs.([]map[string]any)
	require.True(t, ok)
	assert.Len(t, docs, 3)
	assert.Equal(t, "lsp", docs[0]["id"])

	count, err := m.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(855), count)

	assert.NoError(t, m.Healthy(ctx))
	assert.NoError(t, m.Close())
}

func TestMeilisearch_ErrorsAreUnavailable(t *testing.T) {
	fake := &fakeMeili{err: errors.New("connection refused")}
	m := newFakeMeilisearch(fake)
	ctx := context.Background()

	_, err := m.Search(ctx, Request{Query: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.AddDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.DocumentCount(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, m.Healthy(ctx), ErrUnavailable)

	degraded := newFakeMeilisearch(&fakeMeili{health: "unavailable"})
	assert.ErrorIs(t, degraded.Healthy(ctx), ErrUnavailable)
}

func TestMeiliFilter(t *testing.T) {
	assert.Equal(t, "", meiliFilter(nil))
	assert.Equal(t, `module = "BPM"`, meiliFilter([]Filter{{Field: "module", Value: "BPM"}}))
	assert.Equal(t, `module = "a \"b\"" AND kind = "x"`, meiliFilter([]Filter{
		{Field: "module", Value: `a "b"`},
		{Field: "kind", Value: "x"},
		{Field: "", Value: "ignored"},
	}))
}
