package query

import "github.com/stefan-kp/sourcerack-sub001/internal/dirtyoverlay"

// applyOverlay enforces dirty-overlay precedence over the committed fused
// result set: committed rows for any path in DirtyFilePaths or
// DeletedFilePaths are dropped, then dirty symbols are injected in their
// place so a query still surfaces them, just from the working tree instead
// of the indexed commit.
func (e *Engine) applyOverlay(candidates []candidate, overlay *dirtyoverlay.Result) []candidate {
	if overlay == nil {
		return candidates
	}

	shadowed := make(map[string]bool, len(overlay.DirtyFilePaths)+len(overlay.DeletedFilePaths))
	for _, p := range overlay.DirtyFilePaths {
		shadowed[p] = true
	}
	for _, p := range overlay.DeletedFilePaths {
		shadowed[p] = true
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		if shadowed[c.result.Path] {
			continue
		}
		kept = append(kept, c)
	}

	baseScore := e.cfg.Hybrid.SQIWeight / (e.cfg.Hybrid.RRFK + 1)
	for path, symbols := range overlay.SymbolsByFile {
		for _, s := range symbols {
			kept = append(kept, candidate{
				sqi: baseScore,
				result: Result{
					Path:        path,
					StartLine:   s.StartLine,
					EndLine:     s.EndLine,
					Symbol:      s.Name,
					SymbolType:  string(s.Kind),
					ContentType: "code",
					Content:     s.Docstring,
					Score:       baseScore,
					Source:      "dirty",
				},
			})
		}
	}

	return kept
}
