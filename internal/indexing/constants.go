package indexing

const (
	// DefaultMaxContentChars caps record content (in runes) to bound index size
	DefaultMaxContentChars = 2000

	// UnknownModule is the sentinel for records scraped without a module tag
	UnknownModule = "unknown"

	// maxLineBytes bounds a single JSONL line
	maxLineBytes = 16 * 1024 * 1024
)
