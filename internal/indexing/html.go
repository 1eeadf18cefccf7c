package indexing

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTMLExtract is the text pulled out of a rendered documentation page
type HTMLExtract struct {
	Title      string
	Headers    []string
	Paragraphs []string
	Content    string // Markdown rendering of the main content
}

// ExtractHTML parses rendered page HTML.
// Headers and paragraphs come from main/article when present, else the whole body.
func ExtractHTML(html string) (HTMLExtract, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return HTMLExtract{}, fmt.Errorf("failed to parse html: %w", err)
	}

	out := HTMLExtract{
		Headers:    []string{},
		Paragraphs: []string{},
	}

	out.Title = CleanInline(doc.Find("title").First().Text())
	if out.Title == "" {
		out.Title = CleanInline(doc.Find("h1").First().Text())
	}

	scope := doc.Find("main, article")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	scope.Find("h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		if text := CleanInline(s.Text()); text != "" {
			out.Headers = append(out.Headers, text)
		}
	})
	scope.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if text := CleanInline(s.Text()); text != "" {
			out.Paragraphs = append(out.Paragraphs, text)
		}
	})

	mainHTML, err := scope.First().Html()
	if err == nil && strings.TrimSpace(mainHTML) != "" {
		converter := md.NewConverter("", true, nil)
		if converted, convErr := converter.ConvertString(mainHTML); convErr == nil {
			out.Content = strings.TrimSpace(converted)
		}
	}
	if out.Content == "" {
		out.Content = strings.Join(out.Paragraphs, "\n")
	}

	return out, nil
}
