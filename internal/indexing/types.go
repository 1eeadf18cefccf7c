package indexing

import "fmt"

// DocumentRecord is one indexable unit of documentation.
// Sequence fields are never nil once a record leaves Normalize or ApplyDefaults,
// so they always serialize as arrays.
type DocumentRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Module     string   `json:"module"`     // Product module, used as a filter dimension
	Breadcrumb []string `json:"breadcrumb"` // Navigation path: ["Fluig", "BPM", "Eventos"]
	Headers    []string `json:"headers"`    // Section headings in page order
	Paragraphs []string `json:"paragraphs"`
	Content    string   `json:"content"` // Prefix-truncated body
	URL        string   `json:"url"`
}

// LineError reports a JSONL line that could not be decoded
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}
