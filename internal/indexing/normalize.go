package indexing

import (
	"strings"

	"github.com/docsmcp/docs-mcp-server/internal/query"
)

// NormalizeOptions holds the fixed limits applied to every record
type NormalizeOptions struct {
	MaxContentChars int
	DefaultModule   string
}

// DefaultNormalizeOptions returns the built-in limits
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		MaxContentChars: DefaultMaxContentChars,
		DefaultModule:   UnknownModule,
	}
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.MaxContentChars <= 0 {
		o.MaxContentChars = DefaultMaxContentChars
	}
	if strings.TrimSpace(o.DefaultModule) == "" {
		o.DefaultModule = UnknownModule
	}
	return o
}

// Normalize converts a raw scraped page into a DocumentRecord.
//
// raw may miss any key and values may arrive in unexpected shapes (numbers,
// single strings where a list is expected, lists where a string is expected);
// every case is defaulted rather than reported. id and module are the values
// assigned by the caller and win over raw["id"] and raw["module"].
// When raw carries rendered HTML under "html", missing title, headers,
// paragraphs and content are extracted from it.
func Normalize(raw map[string]any, id, module string, opts NormalizeOptions) DocumentRecord {
	rawTitle := query.Coerce(raw["title"])
	rec := DocumentRecord{
		ID:         firstNonEmpty(strings.TrimSpace(id), query.Coerce(raw["id"])),
		Title:      CleanInline(StripMarkdownLinks(rawTitle)),
		Module:     firstNonEmpty(strings.TrimSpace(module), query.Coerce(raw["module"])),
		Breadcrumb: cleanList(stringList(raw["breadcrumb"])),
		Headers:    cleanList(stringList(raw["headers"])),
		Paragraphs: stringList(raw["paragraphs"]),
		Content:    strings.TrimSpace(query.Coerce(raw["content"])),
		URL:        pageURL(query.Coerce(raw["url"]), rawTitle),
	}

	if html := query.Coerce(raw["html"]); html != "" {
		fillFromHTML(&rec, html)
	}

	return ApplyDefaults(rec, opts)
}

// ApplyDefaults enforces record invariants: non-empty module and id,
// non-nil sequences, and the content cap. It is idempotent.
func ApplyDefaults(rec DocumentRecord, opts NormalizeOptions) DocumentRecord {
	opts = opts.withDefaults()

	rec.Module = strings.TrimSpace(rec.Module)
	if rec.Module == "" {
		rec.Module = opts.DefaultModule
	}

	rec.Breadcrumb = nonNil(rec.Breadcrumb)
	rec.Headers = nonNil(rec.Headers)
	rec.Paragraphs = nonNil(rec.Paragraphs)
	rec.Content = TruncateRunes(rec.Content, opts.MaxContentChars)

	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = DeriveID(rec.URL, rec.Module, rec.Title, recordBody(rec))
	}

	return rec
}

// pageURL unwraps a markdown link in the url field. A page without a url
// falls back to the link target of a linked title.
func pageURL(url, title string) string {
	if link := ExtractURLFromMarkdown(url); link != "" {
		return link
	}
	if url != "" {
		return url
	}
	return ExtractURLFromMarkdown(title)
}

// recordBody is the page text that tells apart pages sharing a title
func recordBody(rec DocumentRecord) string {
	return rec.Content + "\n" + strings.Join(rec.Paragraphs, "\n")
}

func fillFromHTML(rec *DocumentRecord, html string) {
	extracted, err := ExtractHTML(html)
	if err != nil {
		// Unparseable markup leaves the scraped scalar fields as they are
		return
	}

	if rec.Title == "" {
		rec.Title = extracted.Title
	}
	if len(rec.Headers) == 0 {
		rec.Headers = extracted.Headers
	}
	if len(rec.Paragraphs) == 0 {
		rec.Paragraphs = extracted.Paragraphs
	}
	if rec.Content == "" {
		rec.Content = extracted.Content
	}
}

// stringList coerces a loosely typed JSON value to a list of non-empty strings
func stringList(v any) []string {
	switch value := v.(type) {
	case nil:
		return []string{}
	case string:
		if s := strings.TrimSpace(value); s != "" {
			return []string{s}
		}
		return []string{}
	case []string:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s := query.Coerce(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := query.Coerce(value); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// cleanList strips markdown links and collapses whitespace in short labels
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := CleanInline(StripMarkdownLinks(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
