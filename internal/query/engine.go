package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/dirtyoverlay"
	"github.com/stefan-kp/sourcerack-sub001/internal/embed"
	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

// Options configures one query call.
type Options struct {
	RepoID                 string
	SHA                    string
	Query                  string
	Limit                  int
	Cursor                 string
	Language               string
	PathPattern            string
	ContentType            string
	IncludeAllContentTypes bool
	Hybrid                 bool
	Boost                  bool

	// Overlay, when set, applies dirty-overlay precedence (§4.H) over the
	// committed result set before ranking and pagination.
	Overlay *dirtyoverlay.Result
}

// Result is one ranked hit.
type Result struct {
	Path        string
	StartLine   int
	EndLine     int
	Symbol      string
	SymbolType  string
	Language    string
	ContentType string
	Content     string
	Score       float64
	Source      string // "vector", "sqi", or "hybrid" once fused
}

// Response is the hybrid query engine's contract: query(...) -> {success,
// isIndexed, results[], totalCount, nextCursor?, error?}.
type Response struct {
	Success    bool
	IsIndexed  bool
	Results    []Result
	TotalCount int
	NextCursor string
	Error      *Error
}

// Engine wires the vector store, dedup store (for SQI lookups), and an
// embedding provider into the ranked retrieval pipeline.
type Engine struct {
	dedup    *dedup.Store
	vectors  *vectorstore.Store
	embedder embed.Provider
	cfg      *config.Config
}

// New builds an Engine from its collaborators.
func New(dedupStore *dedup.Store, vectors *vectorstore.Store, embedder embed.Provider, cfg *config.Config) *Engine {
	return &Engine{dedup: dedupStore, vectors: vectors, embedder: embedder, cfg: cfg}
}

// candidate is an internal scoring unit before results are fused and
// trimmed to the page the caller asked for.
type candidate struct {
	result Result
	vector float64 // rank-based RRF contribution from vector retrieval, 0 if absent
	sqi    float64 // rank-based RRF contribution from SQI retrieval, 0 if absent
}

func mergeKey(path string, startLine int) string {
	return fmt.Sprintf("%s:%d", path, startLine)
}

// Query runs the retrieval pipeline (§4.J): validate, resolve the commit,
// parse the query, retrieve (vector, plus SQI when hybrid), fuse with RRF,
// apply structural boost, rerank on symbol-name overlap outside hybrid/boost
// mode, and paginate with a stable cursor.
func (e *Engine) Query(ctx context.Context, opts Options) Response {
	limit := opts.Limit
	if limit == 0 {
		limit = e.cfg.Limits.DefaultLimit
	}
	if limit < 1 {
		return Response{Error: newError(ErrInvalidParams, "limit must be >= 1")}
	}
	if limit > e.cfg.Limits.MaxLimit {
		return Response{Error: newError(ErrLimitExceeded, fmt.Sprintf("limit %d exceeds max %d", limit, e.cfg.Limits.MaxLimit))}
	}
	if strings.TrimSpace(opts.Query) == "" {
		return Response{Error: newError(ErrInvalidParams, "query must not be empty")}
	}

	repo, err := e.dedup.LookupRepository(opts.RepoID)
	if err != nil {
		return Response{Error: newError(ErrInvalidParams, "unknown repository: "+opts.RepoID)}
	}

	indexed, err := e.dedup.IsIndexed(repo.ID, opts.SHA)
	if err != nil {
		return Response{Error: newError(ErrSearchFailed, err.Error())}
	}
	if !indexed {
		return Response{Success: false, IsIndexed: false}
	}

	commit, err := e.dedup.LookupCommit(repo.ID, opts.SHA)
	if err != nil {
		return Response{Success: false, IsIndexed: false}
	}

	parsed := Parse(opts.Query)
	if opts.ContentType != "" {
		parsed.ContentTypes = []string{opts.ContentType}
	}

	fetchLimit := limit * 3
	if fetchLimit > e.cfg.Limits.MaxLimit {
		fetchLimit = e.cfg.Limits.MaxLimit
	}

	vec, err := e.embedder.Embed(ctx, []string{parsed.ForEmbedding}, embed.EmbedModeQuery)
	if err != nil || len(vec) == 0 {
		msg := "embedding provider returned no vectors"
		if err != nil {
			msg = err.Error()
		}
		return Response{Error: newError(ErrEmbeddingFailed, msg)}
	}

	filters := vectorstore.SearchFilters{
		RepoID:                 repo.ID,
		Commit:                 opts.SHA,
		Language:               opts.Language,
		ContentTypes:           parsed.ContentTypes,
		IncludeAllContentTypes: opts.IncludeAllContentTypes,
		PathPattern:            opts.PathPattern,
	}

	var vectorHits []vectorstore.SearchResult
	var sqiHits []Result
	var vectorErr, sqiErr error

	if opts.Hybrid {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = e.vectors.Search(ctx, vec[0], filters, fetchLimit)
		}()
		go func() {
			defer wg.Done()
			sqiHits, sqiErr = e.searchSQI(commit.ID, parsed, fetchLimit)
		}()
		wg.Wait()
	} else {
		vectorHits, vectorErr = e.vectors.Search(ctx, vec[0], filters, fetchLimit)
	}

	if vectorErr != nil {
		return Response{Error: newError(ErrSearchFailed, vectorErr.Error())}
	}
	if sqiErr != nil {
		return Response{Error: newError(ErrSearchFailed, sqiErr.Error())}
	}

	candidates := e.fuse(vectorHits, sqiHits, opts.Boost)
	candidates = e.applyOverlay(candidates, opts.Overlay)

	if !opts.Hybrid && !opts.Boost {
		e.rerankBySymbol(candidates, parsed, opts)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].result.Score != candidates[j].result.Score {
			return candidates[i].result.Score > candidates[j].result.Score
		}
		return mergeKey(candidates[i].result.Path, candidates[i].result.StartLine) <
			mergeKey(candidates[j].result.Path, candidates[j].result.StartLine)
	})

	start := 0
	if opts.Cursor != "" {
		if idx, ok := findCursor(candidates, opts.Cursor); ok {
			start = idx + 1
		}
	}

	end := start + limit
	truncated := end < len(candidates)
	if end > len(candidates) {
		end = len(candidates)
	}
	if start > len(candidates) {
		start = len(candidates)
	}

	page := make([]Result, 0, end-start)
	for _, c := range candidates[start:end] {
		page = append(page, c.result)
	}

	resp := Response{
		Success:    true,
		IsIndexed:  true,
		Results:    page,
		TotalCount: len(candidates),
	}
	if truncated && len(page) > 0 {
		last := candidates[end-1]
		resp.NextCursor = encodeCursor(last.result.Score, mergeKey(last.result.Path, last.result.StartLine))
	}
	return resp
}

func encodeCursor(score float64, id string) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "|" + id
}

func findCursor(candidates []candidate, cursor string) (int, bool) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return 0, false
	}
	id := parts[1]
	for i, c := range candidates {
		if mergeKey(c.result.Path, c.result.StartLine) == id {
			return i, true
		}
	}
	return 0, false
}
