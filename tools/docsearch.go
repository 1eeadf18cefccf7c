package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/phuslu/log"

	"github.com/docsmcp/docs-mcp-server/internal/config"
	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
	"github.com/docsmcp/docs-mcp-server/internal/ingest"
	"github.com/docsmcp/docs-mcp-server/internal/query"
	"github.com/docsmcp/docs-mcp-server/internal/search"
)

// SearchDocumentationInput defines input for search_documentation tool.
// Query and Module accept a string or a list of strings; some clients wrap
// scalars in arrays.
type SearchDocumentationInput struct {
	Query    any    `json:"query" jsonschema:"Search text. A string, or a one-element list of strings"`
	Strategy string `json:"strategy,omitempty" jsonschema:"auto (default), quoted or and"`
	Limit    any    `json:"limit,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10)"`
	Module   any    `json:"module,omitempty" jsonschema:"Restrict results to one product module (optional)"`
}

// SearchDocumentationOutput defines output for search_documentation tool
type SearchDocumentationOutput = search.Response

// IndexStatsInput defines input for documentation_index_stats tool
type IndexStatsInput struct{}

// IndexStatsOutput defines output for documentation_index_stats tool
type IndexStatsOutput struct {
	Backend   string `json:"backend"`
	Index     string `json:"index"`
	Documents int64  `json:"documents"`
}

// RefreshDocumentationIndexInput defines input for refresh_documentation_index tool
type RefreshDocumentationIndexInput struct {
	Source string `json:"source,omitempty" jsonschema:"JSONL file to ingest (optional, defaults to the configured source)"`
	Wait   bool   `json:"wait,omitempty" jsonschema:"Wait until the engine reports the documents as searchable (optional)"`
}

// RefreshDocumentationIndexOutput defines output for refresh_documentation_index tool
type RefreshDocumentationIndexOutput struct {
	RunID        string             `json:"run_id"`
	Source       string             `json:"source"`
	Report       ingest.Report      `json:"report"`
	SkippedLines int                `json:"skipped_lines"`
	Poll         *ingest.PollResult `json:"poll,omitempty"`
	Message      string             `json:"message"`
}

// DocSearch holds the engine and services behind the documentation tools
type DocSearch struct {
	cfg    *config.Config
	engine engine.Engine
	search *search.Service
	ledger *ingest.Ledger
	logger *log.Logger

	// refreshMu prevents concurrent refresh operations
	// NOT used for searches
	refreshMu sync.Mutex
}

// NewDocSearch wires the tools to an open engine. ledger may be nil.
func NewDocSearch(cfg *config.Config, e engine.Engine, ledger *ingest.Ledger, logger *log.Logger) *DocSearch {
	return &DocSearch{
		cfg:    cfg,
		engine: e,
		search: search.NewService(e, cfg.Search.PreviewChars, logger),
		ledger: ledger,
		logger: logger,
	}
}

// Service exposes the search service for other transports
func (d *DocSearch) Service() *search.Service {
	return d.search
}

// SearchDocumentation searches the documentation index
func (d *DocSearch) SearchDocumentation(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentationInput) (*mcp.CallToolResult, SearchDocumentationOutput, error) {
	args := map[string]any{
		"query":    input.Query,
		"strategy": input.Strategy,
		"module":   input.Module,
	}
	if input.Limit != nil {
		args["limit"] = input.Limit
	}

	request, err := query.FromArgs(args, query.Defaults{Limit: d.cfg.Search.DefaultLimit, MaxLimit: d.cfg.Search.MaxLimit})
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}

	resp, err := d.search.Search(ctx, request)
	if err != nil {
		return nil, SearchDocumentationOutput{}, fmt.Errorf("documentation search failed: %w", err)
	}

	return nil, *resp, nil
}

// IndexStats reports the engine backend and document count
func (d *DocSearch) IndexStats(ctx context.Context, req *mcp.CallToolRequest, input IndexStatsInput) (*mcp.CallToolResult, IndexStatsOutput, error) {
	count, err := d.engine.DocumentCount(ctx)
	if err != nil {
		return nil, IndexStatsOutput{}, fmt.Errorf("failed to read index stats: %w", err)
	}

	return nil, IndexStatsOutput{
		Backend:   d.cfg.Engine.Backend,
		Index:     d.cfg.Engine.Index,
		Documents: count,
	}, nil
}

// RefreshDocumentationIndex re-ingests the JSONL source
func (d *DocSearch) RefreshDocumentationIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshDocumentationIndexInput) (*mcp.CallToolResult, RefreshDocumentationIndexOutput, error) {
	// Serialize refresh operations (prevent concurrent refreshes)
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	startTime := time.Now()

	opts, err := d.fileOptions(input.Source, input.Wait)
	if err != nil {
		return nil, RefreshDocumentationIndexOutput{}, err
	}

	d.logger.Info().Str("source", opts.Source).Bool("wait", opts.Wait).Msg("starting documentation refresh")

	result, err := ingest.IngestFile(ctx, d.engine, d.ledger, opts, d.logger)
	if err != nil {
		return nil, RefreshDocumentationIndexOutput{}, fmt.Errorf("refresh failed: %w", err)
	}

	run := result.Run
	output := RefreshDocumentationIndexOutput{
		RunID:        run.ID,
		Source:       run.Source,
		Report:       run.Report,
		SkippedLines: len(result.LineErrors),
		Poll:         result.Poll,
	}
	output.Message = fmt.Sprintf("%d of %d documents accepted in %d batches (%d failed)",
		run.Report.Confirmed, run.Report.Submitted, run.Report.Batches, len(run.Report.Failures))
	if result.Poll != nil {
		output.Message += fmt.Sprintf("; visibility %s (%d/%d)", result.Poll.Status, result.Poll.Observed, result.Poll.Expected)
	}

	d.logger.Info().Str("run", run.ID).Dur("elapsed", time.Since(startTime).Round(time.Millisecond)).Msg("✓ documentation refresh completed")

	return nil, output, nil
}

func (d *DocSearch) fileOptions(source string, wait bool) (ingest.FileOptions, error) {
	interval, err := d.cfg.Ingest.PollIntervalDuration()
	if err != nil {
		return ingest.FileOptions{}, err
	}
	if source == "" {
		source = d.cfg.Ingest.Source
	}

	return ingest.FileOptions{
		Source: source,
		Batch: ingest.Options{
			BatchSize:   d.cfg.Ingest.BatchSize,
			Concurrency: d.cfg.Ingest.Concurrency,
		},
		Normalize: indexing.NormalizeOptions{
			MaxContentChars: d.cfg.Normalize.MaxContentChars,
			DefaultModule:   d.cfg.Normalize.DefaultModule,
		},
		Wait: wait,
		Poll: ingest.PollOptions{
			MaxAttempts: d.cfg.Ingest.PollAttempts,
			Interval:    interval,
		},
	}, nil
}

// RegisterDocSearchTools registers documentation search tools and returns
// how many were added
func RegisterDocSearchTools(server *mcp.Server, d *DocSearch) int {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_documentation",
			Description: "Search the product documentation. Multi-word queries are tried as an exact phrase first, then with every word required.",
		},
		d.SearchDocumentation,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "documentation_index_stats",
			Description: "Report the search backend, index name and number of searchable documents",
		},
		d.IndexStats,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_documentation_index",
			Description: "Re-ingest the normalized documentation source into the search index in batches",
		},
		d.RefreshDocumentationIndex,
	)

	return 3
}
