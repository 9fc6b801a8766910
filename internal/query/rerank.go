package query

import "strings"

// Bonus caps applied during symbol-name re-ranking. Only engaged outside
// hybrid/boost mode, where RRF and structural boost already account for
// symbol-aware signal.
const (
	bonusExactSymbol    = 0.5
	bonusSymbolContains = 0.2
	bonusPathContains   = 0.15
	bonusContentWord    = 0.1
	bonusLanguageMatch  = 0.05
	bonusContentType    = 0.05
	bonusIntentMatch    = 0.10
)

// rerankBySymbol adds bonus score to candidates whose symbol, path, or
// content overlaps the query's extracted symbol terms. It mutates
// candidates in place.
func (e *Engine) rerankBySymbol(candidates []candidate, parsed Parsed, opts Options) {
	if len(parsed.SymbolTerms) == 0 {
		return
	}

	for i := range candidates {
		r := &candidates[i].result
		var bonus float64

		for _, term := range parsed.SymbolTerms {
			if r.Symbol != "" && strings.EqualFold(r.Symbol, term) {
				bonus = max(bonus, bonusExactSymbol)
			} else if r.Symbol != "" && containsFold(r.Symbol, term) {
				bonus = max(bonus, bonusSymbolContains)
			}
			if containsFold(r.Path, term) {
				bonus += bonusPathContains
			}
			if containsWordFold(r.Content, term) {
				bonus += bonusContentWord
			}
		}

		if opts.Language != "" && strings.EqualFold(r.Language, opts.Language) {
			bonus += bonusLanguageMatch
		}
		if len(parsed.ContentTypes) > 0 && r.ContentType == parsed.ContentTypes[0] {
			bonus += bonusContentType
		}
		if (parsed.Intent == IntentDefinition || parsed.Intent == IntentUsage) && r.Symbol != "" {
			bonus += bonusIntentMatch
		}

		r.Score += bonus
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsWordFold(haystack, needle string) bool {
	fields := strings.FieldsFunc(haystack, func(r rune) bool {
		return !(r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	for _, f := range fields {
		if strings.EqualFold(f, needle) {
			return true
		}
	}
	return false
}
