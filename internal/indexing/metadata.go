package indexing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
var urlExtractRegex = regexp.MustCompile(`\[([^\]]+)\]\(([^\)]+)\)`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// recordNamespace scopes derived record IDs; changing it re-keys every document
var recordNamespace = uuid.MustParse("6f1c3b1e-52a4-4c1e-9a8e-0d5b7d1f2a40")

// StripMarkdownLinks removes markdown link syntax, keeping only the text
// Example: "[Text](url)" -> "Text"
func StripMarkdownLinks(text string) string {
	return markdownLinkRegex.ReplaceAllString(text, "$1")
}

// ExtractURLFromMarkdown extracts the URL from a markdown link
// Example: "[Text](https://example.com)" -> "https://example.com"
func ExtractURLFromMarkdown(text string) string {
	matches := urlExtractRegex.FindStringSubmatch(text)
	if len(matches) > 2 {
		return matches[2]
	}
	return ""
}

// CleanInline collapses runs of whitespace (including newlines) into one space
func CleanInline(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// TruncateRunes cuts text to at most max runes. It is a prefix cut, not sentence aware.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}

// DeriveID returns a stable identifier for a page.
// The URL is the identity when present. Without one, module, title and body
// together identify the page, so same-titled pages stay apart.
func DeriveID(url, module, title, body string) string {
	key := strings.TrimSpace(url)
	if key == "" {
		key = strings.Join([]string{strings.TrimSpace(module), strings.TrimSpace(title), body}, "\x00")
	}
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
