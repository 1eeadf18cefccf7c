// Package search runs validated search requests against the engine and
// shapes the results for clients.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/query"
)

// Searcher is the read side of an engine
type Searcher interface {
	Search(ctx context.Context, req engine.Request) (*engine.Response, error)
}

// Response is what clients receive for a search
type Response struct {
	Results          []Hit          `json:"results"`
	Count            int            `json:"count"`
	ParsedQuery      string         `json:"parsed_query"`
	Strategy         query.Strategy `json:"strategy"`
	TotalHits        int64          `json:"total_hits"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// Service resolves queries, calls the engine and formats hits
type Service struct {
	engine       Searcher
	previewChars int
	logger       *log.Logger
}

// NewService returns a Service; previewChars <= 0 uses the default
func NewService(e Searcher, previewChars int, logger *log.Logger) *Service {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	return &Service{engine: e, previewChars: previewChars, logger: logger}
}

// Search runs req. With the auto strategy on a multi-word query the quoted
// phrase is tried first; zero hits trigger one retry with every term
// required. Engine failures are returned as errors, never as empty results.
func (s *Service) Search(ctx context.Context, req query.Request) (*Response, error) {
	start := time.Now()

	var filters []engine.Filter
	if req.Module != "" {
		filters = append(filters, engine.Filter{Field: "module", Value: req.Module})
	}

	literal, used := query.ResolveWithStrategy(req.Query, req.Strategy)
	resp, err := s.run(ctx, literal, req.Limit, filters)
	if err != nil {
		return nil, err
	}

	if req.Strategy == query.StrategyAuto && used == query.StrategyQuoted && len(resp.Hits) == 0 {
		fallback := query.Resolve(req.Query, query.StrategyAnd)
		s.logger.Debug().Str("quoted", literal).Str("fallback", fallback).Msg("phrase query found nothing, retrying with all terms")

		resp, err = s.run(ctx, fallback, req.Limit, filters)
		if err != nil {
			return nil, err
		}
		literal, used = fallback, query.StrategyAnd
	}

	results := Format(resp.Hits, s.previewChars)

	s.logger.Info().Str("query", req.Query).Str("parsed_query", literal).Str("strategy", string(used)).Int("count", len(results)).Dur("elapsed", time.Since(start)).Msg("search")

	return &Response{
		Results:          results,
		Count:            len(results),
		ParsedQuery:      literal,
		Strategy:         used,
		TotalHits:        resp.EstimatedTotalHits,
		ProcessingTimeMs: resp.ProcessingTime.Milliseconds(),
	}, nil
}

func (s *Service) run(ctx context.Context, literal string, limit int, filters []engine.Filter) (*engine.Response, error) {
	resp, err := s.engine.Search(ctx, engine.Request{Query: literal, Limit: limit, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", literal, err)
	}
	return resp, nil
}
