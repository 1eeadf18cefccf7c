// Package query turns user search input into the literal query string the
// search engine receives.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Strategy selects how a raw query is rewritten before it reaches the engine
type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyQuoted Strategy = "quoted"
	StrategyAnd    Strategy = "and"
)

// StrategyPassthrough is reported when auto sent the query unchanged.
// It is not accepted as input.
const StrategyPassthrough Strategy = "passthrough"

// ErrUnknownStrategy is returned by ParseStrategy for unsupported names
var ErrUnknownStrategy = errors.New("unknown query strategy")

// Strategies lists the accepted input strategies
func Strategies() []Strategy {
	return []Strategy{StrategyAuto, StrategyQuoted, StrategyAnd}
}

// ParseStrategy parses a strategy name, case-insensitive. Empty means auto.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyQuoted:
		return StrategyQuoted, nil
	case StrategyAnd:
		return StrategyAnd, nil
	default:
		return "", fmt.Errorf("%w: %q (want auto, quoted or and)", ErrUnknownStrategy, name)
	}
}

// Resolve rewrites query according to strategy.
//
//	quoted: the whole query wrapped in double quotes, contents untouched
//	and:    whitespace-separated tokens joined with " AND "
//	auto:   quoted when the trimmed query has inner whitespace, otherwise unchanged
//
// A blank query resolves to "" for every strategy. Unknown strategies behave
// like auto.
func Resolve(query string, strategy Strategy) string {
	resolved, _ := ResolveWithStrategy(query, strategy)
	return resolved
}

// ResolveWithStrategy is Resolve that also reports the strategy actually applied
func ResolveWithStrategy(query string, strategy Strategy) (string, Strategy) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		if strategy == StrategyAuto || strategy == "" {
			return "", StrategyPassthrough
		}
		return "", strategy
	}

	switch strategy {
	case StrategyQuoted:
		return `"` + query + `"`, StrategyQuoted
	case StrategyAnd:
		return strings.Join(strings.Fields(query), " AND "), StrategyAnd
	default:
		if IsMultiWord(trimmed) {
			return `"` + query + `"`, StrategyQuoted
		}
		return query, StrategyPassthrough
	}
}

// IsMultiWord reports whether the trimmed query contains whitespace
func IsMultiWord(query string) bool {
	return strings.IndexFunc(strings.TrimSpace(query), unicode.IsSpace) >= 0
}
