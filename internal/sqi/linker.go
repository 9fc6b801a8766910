package sqi

import "sort"

// Linker binds usages to their enclosing symbol and, heuristically, to the
// symbol they most likely reference.
type Linker struct{}

// NewLinker builds a Linker.
func NewLinker() *Linker { return &Linker{} }

// Link resolves EnclosingSymbol and DefinitionSymbol on every usage in
// place, returning the same slice for convenience.
func (l *Linker) Link(usages []Usage, symbols []Symbol) []Usage {
	byFile := make(map[string][]Symbol)
	for _, s := range symbols {
		byFile[s.File] = append(byFile[s.File], s)
	}
	for file, list := range byFile {
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartLine > list[j].StartLine })
		byFile[file] = list
	}

	byName := make(map[string][]Symbol)
	for _, s := range symbols {
		byName[s.Name] = append(byName[s.Name], s)
	}

	for i := range usages {
		u := &usages[i]
		u.EnclosingSymbol = enclosingSymbolName(byFile[u.File], u.Line)
		sym, ambiguous := resolveDefinition(byName[u.SymbolName], u)
		if sym != nil {
			if sym.QualifiedName != "" {
				u.DefinitionSymbol = sym.QualifiedName
			} else {
				u.DefinitionSymbol = sym.Name
			}
		}
		u.DefinitionAmbiguous = ambiguous
	}
	return usages
}

// enclosingSymbolName picks the innermost symbol (by descending start line)
// whose span contains line, from a file's symbols pre-sorted desc by start.
func enclosingSymbolName(sorted []Symbol, line int) string {
	for _, s := range sorted {
		if s.StartLine <= line && line <= s.EndLine {
			if s.QualifiedName != "" {
				return s.QualifiedName
			}
			return s.Name
		}
	}
	return ""
}

// resolveDefinition applies the ordered heuristic chain, stopping at the
// first rule that narrows the candidate pool to exactly one symbol.
// ambiguous is true when the chain had to fall back without reaching a
// singleton.
func resolveDefinition(candidates []Symbol, u *Usage) (*Symbol, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	if len(candidates) == 1 {
		return &candidates[0], false
	}

	pool := candidates

	sameFile := filterSymbols(pool, func(s Symbol) bool { return s.File == u.File })
	if len(sameFile) == 1 {
		return &sameFile[0], false
	}
	if len(sameFile) > 1 {
		pool = sameFile
	}

	exported := filterSymbols(pool, func(s Symbol) bool { return s.IsExported })
	if len(exported) == 1 {
		return &exported[0], false
	}
	if len(exported) > 1 {
		pool = exported
	}

	if nearest, ok := nearestPreceding(pool, u); ok {
		return nearest, false
	}

	return &pool[0], len(pool) > 1
}

func filterSymbols(in []Symbol, keep func(Symbol) bool) []Symbol {
	var out []Symbol
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func nearestPreceding(pool []Symbol, u *Usage) (*Symbol, bool) {
	var best *Symbol
	for i := range pool {
		s := pool[i]
		if s.File != u.File || s.StartLine > u.Line {
			continue
		}
		if best == nil || s.StartLine > best.StartLine {
			sCopy := s
			best = &sCopy
		}
	}
	return best, best != nil
}
