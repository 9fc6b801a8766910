package query

import (
	"fmt"
	"strconv"

	"github.com/dominikbraun/graph"

	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
)

// searchSQI retrieves symbol candidates for the structural half of a hybrid
// query: definition intent looks up exact names, everything else falls back
// to a fuzzy substring match scoped to the symbol types the query mentioned.
func (e *Engine) searchSQI(commitID string, parsed Parsed, limit int) ([]Result, error) {
	if len(parsed.SymbolTerms) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var symbols []sqi.Symbol

	collect := func(syms []sqi.Symbol) {
		for _, s := range syms {
			key := s.File + ":" + s.Name + ":" + strconv.Itoa(s.StartLine)
			if seen[key] {
				continue
			}
			seen[key] = true
			symbols = append(symbols, s)
		}
	}

	for _, term := range parsed.SymbolTerms {
		if len(symbols) >= limit {
			break
		}
		if parsed.Intent == IntentDefinition {
			syms, err := e.dedup.FindDefinition(commitID, term)
			if err != nil {
				return nil, err
			}
			collect(syms)
			continue
		}
		syms, err := e.dedup.FuzzySymbols(commitID, term, parsed.SymbolTypes)
		if err != nil {
			return nil, err
		}
		collect(syms)
	}

	out := make([]Result, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, Result{
			Path:        s.File,
			StartLine:   s.StartLine,
			EndLine:     s.EndLine,
			Symbol:      s.Name,
			SymbolType:  string(s.Kind),
			ContentType: "code",
			Content:     s.Docstring,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FindDefinition returns every symbol named name within a commit.
func (e *Engine) FindDefinition(commitID, name string) ([]sqi.Symbol, error) {
	return e.dedup.FindDefinition(commitID, name)
}

// FindUsages returns every usage of name within a commit.
func (e *Engine) FindUsages(commitID, name string) ([]sqi.Usage, error) {
	return e.dedup.FindUsages(commitID, name)
}

// FindImports returns the imports declared in one file.
func (e *Engine) FindImports(commitID, file string) ([]sqi.Import, error) {
	return e.dedup.FindImports(commitID, file)
}

// FindImporters returns every import statement across the commit whose
// module specifier matches moduleSpecifier.
func (e *Engine) FindImporters(commitID, moduleSpecifier string) ([]sqi.Import, error) {
	return e.dedup.FindImporters(commitID, moduleSpecifier)
}

// CodebaseSummary reports aggregate symbol counts for a commit.
func (e *Engine) CodebaseSummary(commitID string) (*dedup.CodebaseSummary, error) {
	return e.dedup.CodebaseSummary(commitID)
}

// FindHierarchy walks the extend/implement edge set for a commit and
// returns every ancestor reachable from name (its superclasses and
// implemented interfaces, transitively), built as a dominikbraun/graph over
// the dedup store's recorded hierarchy edges.
func (e *Engine) FindHierarchy(commitID, name string) ([]string, error) {
	edges, err := e.dedup.HierarchyEdges(commitID)
	if err != nil {
		return nil, err
	}

	g := graph.New(graph.StringHash, graph.Directed())
	for _, edge := range edges {
		_ = g.AddVertex(edge[0])
		_ = g.AddVertex(edge[1])
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil && err != graph.ErrEdgeAlreadyExists {
			return nil, fmt.Errorf("query: build hierarchy graph: %w", err)
		}
	}

	if _, err := g.Vertex(name); err != nil {
		return nil, nil
	}

	var ancestors []string
	err = graph.BFS(g, name, func(v string) bool {
		if v != name {
			ancestors = append(ancestors, v)
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("query: walk hierarchy: %w", err)
	}
	return ancestors, nil
}

// GetSymbolContext reads the source lines immediately around a symbol
// definition, for callers that want to show a snippet beyond the chunk
// boundaries the vector store recorded.
func (e *Engine) GetSymbolContext(git gitrepo.Adapter, commitSHA, path string, startLine, endLine, contextLines int) (string, error) {
	entries, err := git.ListFilesAtCommit(commitSHA)
	if err != nil {
		return "", err
	}
	var blobSHA string
	for _, entry := range entries {
		if entry.Path == path {
			blobSHA = entry.Blob
			break
		}
	}
	if blobSHA == "" {
		return "", gitrepo.ErrFileNotFound
	}

	content, isBinary, err := git.ReadBlob(blobSHA)
	if err != nil {
		return "", err
	}
	if isBinary {
		return "", nil
	}

	lines := splitLines(content)
	from := max(0, startLine-1-contextLines)
	to := min(len(lines), endLine+contextLines)
	if from >= to {
		return "", nil
	}

	out := ""
	for _, l := range lines[from:to] {
		out += l + "\n"
	}
	return out, nil
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, string(content[start:]))
	}
	return lines
}
