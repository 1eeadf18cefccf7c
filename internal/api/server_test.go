package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
	"github.com/docsmcp/docs-mcp-server/internal/logging"
	"github.com/docsmcp/docs-mcp-server/internal/query"
	"github.com/docsmcp/docs-mcp-server/internal/search"
)

type downEngine struct{}

func (downEngine) Search(ctx context.Context, req engine.Request) (*engine.Response, error) {
	return nil, errors.Join(engine.ErrUnavailable, errors.New("dial tcp: connection refused"))
}

func (downEngine) Healthy(ctx context.Context) error {
	return errors.Join(engine.ErrUnavailable, errors.New("dial tcp: connection refused"))
}

func (downEngine) DocumentCount(ctx context.Context) (int64, error) {
	return 0, errors.Join(engine.ErrUnavailable, errors.New("dial tcp: connection refused"))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	b, err := engine.NewMemBleve()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	opts := indexing.DefaultNormalizeOptions()
	_, err = b.AddDocuments(context.Background(), []indexing.DocumentRecord{
		indexing.Normalize(map[string]any{
			"title":   "Eventos de processo",
			"content": "Os eventos de processo executam funções lsp no servidor",
			"url":     "https://tdn.totvs.com/eventos",
		}, "eventos", "BPM", opts),
		indexing.Normalize(map[string]any{
			"title":   "Editor",
			"content": "O editor oferece funções para o lsp",
			"url":     "https://tdn.totvs.com/editor",
		}, "editor", "ECM", opts),
	})
	require.NoError(t, err)

	logger := logging.Discard()
	return New(Options{
		Search:   search.NewService(b, 0, logger),
		Health:   b,
		Defaults: query.DefaultDefaults(),
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Logger: logger,
	})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name         string
		method       string
		target       string
		body         string
		wantStatus   int
		wantCount    int
		wantParsed   string
		wantStrategy query.Strategy
		wantKind     string
	}{
		{
			name:         "get with q alias",
			method:       http.MethodGet,
			target:       "/search?q=" + url.QueryEscape("funções lsp"),
			wantStatus:   http.StatusOK,
			wantCount:    1,
			wantParsed:   `"funções lsp"`,
			wantStrategy: query.StrategyQuoted,
		},
		{
			name:         "auto retries with and",
			method:       http.MethodGet,
			target:       "/search?query=" + url.QueryEscape("lsp funções"),
			wantStatus:   http.StatusOK,
			wantCount:    2,
			wantParsed:   "lsp AND funções",
			wantStrategy: query.StrategyAnd,
		},
		{
			name:         "post with list shaped fields",
			method:       http.MethodPost,
			target:       "/search",
			body:         `{"query": ["funções"], "module": ["ECM"], "limit": 5}`,
			wantStatus:   http.StatusOK,
			wantCount:    1,
			wantParsed:   "funções",
			wantStrategy: query.StrategyPassthrough,
		},
		{
			name:       "unknown strategy",
			method:     http.MethodGet,
			target:     "/search?q=lsp&strategy=fuzzy",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
		{
			name:       "negative limit",
			method:     http.MethodPost,
			target:     "/search",
			body:       `{"query": "lsp", "limit": -1}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			target:     "/search",
			body:       `{"query": `,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv.Handler(), tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantKind != "" {
				var errResp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				assert.Equal(t, tt.wantKind, errResp.Kind)
				assert.NotEmpty(t, errResp.Error)
				return
			}

			var resp search.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Len(t, resp.Results, tt.wantCount)
			assert.Equal(t, tt.wantParsed, resp.ParsedQuery)
			assert.Equal(t, tt.wantStrategy, resp.Strategy)
		})
	}
}

func TestSearchEndpoint_EngineDown(t *testing.T) {
	logger := logging.Discard()
	srv := New(Options{
		Search:   search.NewService(downEngine{}, 0, logger),
		Health:   downEngine{},
		Defaults: query.DefaultDefaults(),
		Logger:   logger,
	})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/search?q=lsp", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "engine_unavailable", errResp.Kind)
	assert.NotContains(t, rec.Body.String(), `"results"`)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/mcp", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(2), health.Documents)
}

func TestMCPRouteIsMounted(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/mcp", `{}`)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
