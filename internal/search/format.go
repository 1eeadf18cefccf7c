package search

import (
	"strings"
	"unicode/utf8"

	"github.com/docsmcp/docs-mcp-server/internal/engine"
	"github.com/docsmcp/docs-mcp-server/internal/indexing"
	"github.com/docsmcp/docs-mcp-server/internal/query"
)

// DefaultPreviewChars is the content preview length in runes
const DefaultPreviewChars = 200

const ellipsis = "..."

// Hit is one formatted search result
type Hit struct {
	Title          string  `json:"title"`
	Module         string  `json:"module"`
	URL            string  `json:"url"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview"`
}

// Format maps engine hits to client hits, preserving engine order.
// Missing fields become empty strings; the score is passed through.
func Format(hits []engine.Hit, previewChars int) []Hit {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, Hit{
			Title:          query.Coerce(h.Fields["title"]),
			Module:         query.Coerce(h.Fields["module"]),
			URL:            query.Coerce(h.Fields["url"]),
			Score:          h.Score,
			ContentPreview: Preview(fieldText(h.Fields["content"]), previewChars),
		})
	}
	return out
}

// Preview cuts content to n runes and appends "..." when anything was cut
func Preview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	return indexing.TruncateRunes(content, n) + ellipsis
}

// fieldText joins multi-valued content instead of keeping only the first value
func fieldText(v any) string {
	switch value := v.(type) {
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s := query.Coerce(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case string:
		return value
	default:
		return query.Coerce(value)
	}
}
