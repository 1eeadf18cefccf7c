package engine

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// clause is one unit of a literal query: a bare term or a quoted phrase
type clause struct {
	text   string
	phrase bool
}

// literal is a parsed engine query string
type literal struct {
	clauses     []clause
	conjunctive bool // clauses joined with AND
}

// parseLiteral splits a literal query into phrases, terms and AND operators.
// An unterminated quote runs to the end of the input. AND is an operator only
// between two clauses; a leading or trailing AND is dropped.
func parseLiteral(s string) literal {
	var lit literal
	runes := []rune(s)
	pendingAnd := false

	add := func(c clause) {
		if pendingAnd && len(lit.clauses) > 0 {
			lit.conjunctive = true
		}
		pendingAnd = false
		lit.clauses = append(lit.clauses, c)
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '"':
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if text := strings.TrimSpace(string(runes[i+1 : end])); text != "" {
				add(clause{text: text, phrase: true})
			}
			i = end + 1
		default:
			end := i
			for end < len(runes) && !unicode.IsSpace(runes[end]) && runes[end] != '"' {
				end++
			}
			word := string(runes[i:end])
			if word == "AND" {
				pendingAnd = len(lit.clauses) > 0
			} else {
				add(clause{text: word})
			}
			i = end
		}
	}

	return lit
}

// bleveQuery builds the bleve query for a literal query string.
// Blank input matches everything; input that yields no clause, such as a
// lone AND or a bare quote, matches nothing.
func bleveQuery(s string, filters []Filter) query.Query {
	var q query.Query

	lit := parseLiteral(s)
	switch {
	case len(lit.clauses) == 0 && strings.TrimSpace(s) == "":
		q = bleve.NewMatchAllQuery()
	case len(lit.clauses) == 0:
		q = bleve.NewMatchNoneQuery()
	case len(lit.clauses) == 1:
		q = clauseQuery(lit.clauses[0])
	case lit.conjunctive:
		parts := make([]query.Query, 0, len(lit.clauses))
		for _, c := range lit.clauses {
			parts = append(parts, clauseQuery(c))
		}
		q = bleve.NewConjunctionQuery(parts...)
	default:
		parts := make([]query.Query, 0, len(lit.clauses))
		for _, c := range lit.clauses {
			parts = append(parts, clauseQuery(c))
		}
		q = bleve.NewDisjunctionQuery(parts...)
	}

	if len(filters) == 0 {
		return q
	}

	must := []query.Query{q}
	for _, f := range filters {
		term := bleve.NewTermQuery(f.Value)
		term.SetField(f.Field)
		must = append(must, term)
	}
	return bleve.NewConjunctionQuery(must...)
}

func clauseQuery(c clause) query.Query {
	if !c.phrase {
		return bleve.NewMatchQuery(c.text)
	}

	phrases := make([]query.Query, 0, len(textFields))
	for _, field := range textFields {
		p := bleve.NewMatchPhraseQuery(c.text)
		p.SetField(field)
		phrases = append(phrases, p)
	}
	return bleve.NewDisjunctionQuery(phrases...)
}
