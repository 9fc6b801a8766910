package query

import (
	"strings"

	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

// fuse combines vector and SQI retrieval into one scored candidate set using
// reciprocal-rank fusion when both sources contributed, or raw similarity
// when only vector retrieval ran (non-hybrid queries have no SQI list to
// fuse against). Structural boost, when enabled, scales each source's
// contribution by a path-based rule factor before the scores are summed,
// and drops SQI contributions whose factor falls below the configured
// threshold entirely rather than merely discounting them.
func (e *Engine) fuse(vectorHits []vectorstore.SearchResult, sqiHits []Result, boost bool) []candidate {
	byKey := make(map[string]*candidate)
	order := make([]string, 0, len(vectorHits)+len(sqiHits))

	hybrid := len(sqiHits) > 0

	for rank, hit := range vectorHits {
		key := mergeKey(hit.Chunk.Path, hit.Chunk.StartLine)
		score := float64(hit.Similarity)
		if hybrid {
			score = e.cfg.Hybrid.VectorWeight / (e.cfg.Hybrid.RRFK + float64(rank+1))
		}
		if boost {
			score *= e.boostFactor(hit.Chunk.Path)
		}

		c, ok := byKey[key]
		if !ok {
			c = &candidate{result: chunkToResult(hit.Chunk, float64(hit.Similarity))}
			byKey[key] = c
			order = append(order, key)
		}
		c.vector = score
		c.result.Score += score
		c.result.Source = "vector"
	}

	for rank, hit := range sqiHits {
		factor := e.boostFactor(hit.Path)
		if boost && factor < e.cfg.Boost.DropThreshold {
			continue
		}
		score := e.cfg.Hybrid.SQIWeight / (e.cfg.Hybrid.RRFK + float64(rank+1))
		if boost {
			score *= factor
		}

		key := mergeKey(hit.Path, hit.StartLine)
		c, ok := byKey[key]
		if !ok {
			if existing, existingKey := findOverlapping(byKey, hit); existing != nil {
				c, key = existing, existingKey
			} else {
				r := hit
				r.Source = "sqi"
				c = &candidate{result: r}
				byKey[key] = c
				order = append(order, key)
			}
		}
		c.sqi = score
		c.result.Score += score
		if c.vector > 0 {
			c.result.Source = "hybrid"
		} else {
			c.result.Source = "sqi"
		}
	}

	out := make([]candidate, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// findOverlapping looks for an existing candidate on the same path whose
// line range overlaps hit's, so a structural match that lands inside a
// chunk already surfaced by vector search folds into that entry instead of
// appearing twice.
func findOverlapping(byKey map[string]*candidate, hit Result) (*candidate, string) {
	for key, c := range byKey {
		if c.result.Path != hit.Path {
			continue
		}
		if hit.StartLine <= c.result.EndLine && c.result.StartLine <= hit.EndLine {
			return c, key
		}
	}
	return nil, ""
}

func chunkToResult(c vectorstore.Chunk, similarity float64) Result {
	return Result{
		Path:        c.Path,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		Symbol:      c.Symbol,
		SymbolType:  c.SymbolType,
		Language:    c.Language,
		ContentType: c.ContentType,
		Content:     c.Content,
		Score:       similarity,
	}
}

// boostFactor returns the multiplicative adjustment for a path from the
// configured boost rule table, or 1.0 if no rule matches.
func (e *Engine) boostFactor(path string) float64 {
	for _, rule := range e.cfg.Boost.Rules {
		if strings.Contains(path, rule.PathContains) {
			return rule.Factor
		}
	}
	return 1.0
}
