// Package query implements the query parser (§4.I) and the hybrid query
// engine (§4.J): turning free-text search input into retrieval intent, then
// fusing vector similarity with structural (SQI) lookups into one ranked
// result set.
package query

import (
	"regexp"
	"strings"
)

// Intent classifies what kind of answer a query is most likely after.
type Intent string

const (
	IntentDefinition Intent = "definition"
	IntentUsage      Intent = "usage"
	IntentGeneral    Intent = "general"
)

// Parsed is the query parser's contract: parse(text) -> {original,
// forEmbedding, intent, symbolTerms[], symbolTypes[], contentTypes[]}.
type Parsed struct {
	Original     string
	ForEmbedding string
	Intent       Intent
	SymbolTerms  []string
	SymbolTypes  []string
	ContentTypes []string
}

var definitionKeywords = []string{"define", "definition", "declare", "declaration", "implement", "implementation of", "where is", "what is"}
var usageKeywords = []string{"usage", "usages", "used by", "uses of", "call site", "callers of", "who calls", "where is .* used", "references to"}

var symbolTypeKeywords = map[string]string{
	"function":  "function",
	"functions": "function",
	"method":    "method",
	"methods":   "method",
	"class":     "class",
	"classes":   "class",
	"module":    "module",
	"modules":   "module",
}

var docsKeywords = []string{"doc", "docs", "documentation", "readme", "guide"}
var configKeywords = []string{"config", "configuration", "settings", "yaml", "json config"}

var identifierRE = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:[A-Z][a-z0-9]*)+|[a-z]+_[a-z0-9_]+|[A-Z][a-zA-Z0-9]*)\b`)

// Parse turns free-text search input into retrieval intent and hints. It
// never errors: an unparseable or empty query degrades to a general-intent,
// code-content search over the text verbatim.
func Parse(text string) Parsed {
	lower := strings.ToLower(text)

	p := Parsed{
		Original:     text,
		ForEmbedding: text,
		Intent:       IntentGeneral,
		ContentTypes: []string{"code"},
	}

	switch {
	case containsAny(lower, definitionKeywords):
		p.Intent = IntentDefinition
	case containsAny(lower, usageKeywords):
		p.Intent = IntentUsage
	}

	for keyword, kind := range symbolTypeKeywords {
		if strings.Contains(lower, keyword) {
			p.SymbolTypes = append(p.SymbolTypes, kind)
		}
	}

	if containsAny(lower, docsKeywords) {
		p.ContentTypes = []string{"docs"}
	} else if containsAny(lower, configKeywords) {
		p.ContentTypes = []string{"config"}
	}

	p.SymbolTerms = extractSymbolTerms(text)
	p.ForEmbedding = stripIntentKeywords(text, lower)

	return p
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// extractSymbolTerms picks out tokens that look like identifiers:
// CamelCase, camelCase, or snake_case. All-lowercase plain words are
// ignored; any word starting with a capital letter is kept as a term.
func extractSymbolTerms(text string) []string {
	matches := identifierRE.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// stripIntentKeywords removes the keyword phrases that drove intent
// classification, so the embedding text carries the query's subject rather
// than the words describing what kind of answer is wanted.
func stripIntentKeywords(original, lower string) string {
	all := append(append([]string{}, definitionKeywords...), usageKeywords...)
	result := original
	for _, kw := range all {
		idx := strings.Index(lower, kw)
		if idx == -1 {
			continue
		}
		result = result[:idx] + result[idx+len(kw):]
		lower = lower[:idx] + lower[idx+len(kw):]
	}
	result = strings.Join(strings.Fields(result), " ")
	if result == "" {
		return original
	}
	return result
}
