// Package vectorstore implements the Vector store: a per-repository
// chromem-go collection holding chunk embeddings and their commit-scoped
// payloads, fronted by a bounded otter LRU that tracks chunk existence
// without a round-trip into the collection.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gobwas/glob"
	"github.com/maypok86/otter"
	"github.com/philippgille/chromem-go"
)

// MinExistenceCacheSize is the floor on the chunk-existence LRU's capacity
//: a bounded LRU (>=50k entries).
const MinExistenceCacheSize = 50_000

// DefaultPathPatternMultiplier inflates the kNN fetch so that pathPattern
// post-filtering doesn't starve the result set: over-fetches before filtering.
const DefaultPathPatternMultiplier = 3

const collectionName = "cortex-chunks"

var (
	// ErrChunkNotFound is returned by AddCommitToChunk for an unknown chunk
	// id; GetChunks omits unknown ids instead.
	ErrChunkNotFound = errors.New("vectorstore: chunk not found")
)

// Chunk is one upsertable unit: an embedding plus its commit-scoped payload.
type Chunk struct {
	ID          string
	Embedding   []float32
	Content     string
	RepoID      string
	Commits     []string
	Branches    []string
	Path        string
	Symbol      string
	SymbolType  string
	Language    string
	ContentType string
	StartLine   int
	EndLine     int
	IsExported  *bool
}

// SearchFilters constrains a kNN search.
type SearchFilters struct {
	RepoID                 string
	Commit                 string
	Language               string
	ContentTypes           []string
	IncludeAllContentTypes bool
	PathPattern            string
}

// SearchResult is one scored hit.
type SearchResult struct {
	Chunk      Chunk
	Similarity float32 // cosine similarity in [0,1], 1 = identical
}

// Stats summarizes store occupancy.
type Stats struct {
	TotalChunks int
	ByRepo      map[string]int
}

// Store is the Vector store's full operation surface.
type Store struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	existCache otter.Cache[string, bool]

	// idsByRepo mirrors collection membership per repo_id; chromem-go has
	// no "list all documents" query, only kNN search, so stats/bulk-delete
	// by repo is tracked alongside it rather than reconstructed via search.
	idsByRepo map[string]map[string]bool
}

// Open creates an empty in-memory vector store.
func Open() (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create collection: %w", err)
	}

	cache, err := otter.MustBuilder[string, bool](MinExistenceCacheSize).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build existence cache: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		existCache: cache,
		idsByRepo:  make(map[string]map[string]bool),
	}, nil
}

// UpsertChunks writes chunks, overwriting any existing entries with the
// same id, and marks each as existing in the LRU.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		doc := toDocument(c)
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("vectorstore: upsert chunk %s: %w", c.ID, err)
		}
		s.existCache.Set(c.ID, true)
		s.indexByRepo(c.RepoID, c.ID)
	}
	return nil
}

func (s *Store) indexByRepo(repoID, chunkID string) {
	if repoID == "" {
		return
	}
	if s.idsByRepo[repoID] == nil {
		s.idsByRepo[repoID] = make(map[string]bool)
	}
	s.idsByRepo[repoID][chunkID] = true
}

func (s *Store) unindexByRepo(repoID, chunkID string) {
	if ids, ok := s.idsByRepo[repoID]; ok {
		delete(ids, chunkID)
	}
}

// Search runs a cosine kNN query, applying repo/commit/language/content-type
// filters natively where chromem-go supports it and the pathPattern glob as
// a post-filter over an inflated fetch.
func (s *Store) Search(ctx context.Context, queryVec []float32, filters SearchFilters, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	where := make(map[string]string)
	if filters.RepoID != "" {
		where["repo_id"] = filters.RepoID
	}
	if filters.Language != "" {
		where["language"] = filters.Language
	}

	contentTypes := filters.ContentTypes
	if !filters.IncludeAllContentTypes && len(contentTypes) == 0 {
		contentTypes = []string{"code"}
	}
	if !filters.IncludeAllContentTypes && len(contentTypes) == 1 {
		where["content_type"] = contentTypes[0]
	}

	nResults := limit
	if filters.PathPattern != "" {
		nResults = limit * DefaultPathPatternMultiplier
	}
	if count := collection.Count(); nResults > count {
		nResults = count
	}
	if nResults == 0 {
		return nil, nil
	}

	docs, err := collection.QueryEmbedding(ctx, queryVec, nResults, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}

	var pathGlob glob.Glob
	if filters.PathPattern != "" {
		pathGlob, err = glob.Compile(filters.PathPattern, '/')
		if err != nil {
			return nil, fmt.Errorf("vectorstore: compile pathPattern %q: %w", filters.PathPattern, err)
		}
	}

	results := make([]SearchResult, 0, limit)
	for _, doc := range docs {
		chunk := fromDocument(doc.ID, doc.Content, doc.Metadata)

		if filters.Commit != "" && !slices.Contains(chunk.Commits, filters.Commit) {
			continue
		}
		if !filters.IncludeAllContentTypes && len(contentTypes) > 1 && !slices.Contains(contentTypes, chunk.ContentType) {
			continue
		}
		if pathGlob != nil && !pathGlob.Match(chunk.Path) {
			continue
		}

		results = append(results, SearchResult{Chunk: chunk, Similarity: doc.Similarity})
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// AddCommitToChunk idempotently appends sha to a chunk's commits[] payload.
func (s *Store) AddCommitToChunk(ctx context.Context, chunkID, sha string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.collection.GetByID(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrChunkNotFound, chunkID)
	}

	chunk := fromDocument(doc.ID, doc.Content, doc.Metadata)
	if slices.Contains(chunk.Commits, sha) {
		return nil
	}
	chunk.Commits = append(chunk.Commits, sha)

	newDoc := toDocument(chunk)
	newDoc.Embedding = doc.Embedding
	if err := s.collection.AddDocument(ctx, newDoc); err != nil {
		return fmt.Errorf("vectorstore: add commit to chunk %s: %w", chunkID, err)
	}
	return nil
}

// ChunksExist returns the subset of ids present in the store, consulting
// the existence LRU before falling back to the collection.
func (s *Store) ChunksExist(ctx context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		if cached, ok := s.existCache.Get(id); ok {
			if cached {
				result[id] = true
			}
			continue
		}

		_, err := s.collection.GetByID(ctx, id)
		exists := err == nil
		s.existCache.Set(id, exists)
		if exists {
			result[id] = true
		}
	}
	return result, nil
}

// GetChunks returns the full payload for each known id; unknown ids are
// simply absent from the result map.
func (s *Store) GetChunks(ctx context.Context, ids []string) (map[string]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Chunk, len(ids))
	for _, id := range ids {
		doc, err := s.collection.GetByID(ctx, id)
		if err != nil {
			continue
		}
		result[id] = fromDocument(doc.ID, doc.Content, doc.Metadata)
	}
	return result, nil
}

// DeleteChunks removes chunks and invalidates their existence cache entries.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteChunksLocked(ctx, ids)
}

func (s *Store) deleteChunksLocked(ctx context.Context, ids []string) error {
	for _, id := range ids {
		doc, getErr := s.collection.GetByID(ctx, id)
		if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
			return fmt.Errorf("vectorstore: delete chunk %s: %w", id, err)
		}
		s.existCache.Delete(id)
		if getErr == nil {
			s.unindexByRepo(doc.Metadata["repo_id"], id)
		}
	}
	return nil
}

// DeleteByRepoID removes every chunk whose repo_id matches, returning the
// count deleted.
func (s *Store) DeleteByRepoID(ctx context.Context, repoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.idsByRepo[repoID]))
	for id := range s.idsByRepo[repoID] {
		ids = append(ids, id)
	}

	if err := s.deleteChunksLocked(ctx, ids); err != nil {
		return 0, err
	}
	delete(s.idsByRepo, repoID)
	return len(ids), nil
}

// GetStats reports occupancy, grouped by repo_id.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byRepo := make(map[string]int, len(s.idsByRepo))
	total := 0
	for repoID, ids := range s.idsByRepo {
		byRepo[repoID] = len(ids)
		total += len(ids)
	}

	return Stats{TotalChunks: total, ByRepo: byRepo}, nil
}

func toDocument(c Chunk) chromem.Document {
	meta := map[string]string{
		"repo_id":      c.RepoID,
		"path":         c.Path,
		"symbol":       c.Symbol,
		"symbol_type":  c.SymbolType,
		"language":     c.Language,
		"content_type": c.ContentType,
		"start_line":   fmt.Sprintf("%d", c.StartLine),
		"end_line":     fmt.Sprintf("%d", c.EndLine),
		"commits":      joinCSV(c.Commits),
		"branches":     joinCSV(c.Branches),
	}
	if c.IsExported != nil {
		meta["is_exported"] = fmt.Sprintf("%t", *c.IsExported)
	}

	return chromem.Document{
		ID:        c.ID,
		Content:   c.Content,
		Embedding: c.Embedding,
		Metadata:  meta,
	}
}

func fromDocument(id, content string, meta map[string]string) Chunk {
	c := Chunk{
		ID:          id,
		Content:     content,
		RepoID:      meta["repo_id"],
		Path:        meta["path"],
		Symbol:      meta["symbol"],
		SymbolType:  meta["symbol_type"],
		Language:    meta["language"],
		ContentType: meta["content_type"],
		Commits:     splitCSV(meta["commits"]),
		Branches:    splitCSV(meta["branches"]),
	}
	fmt.Sscanf(meta["start_line"], "%d", &c.StartLine)
	fmt.Sscanf(meta["end_line"], "%d", &c.EndLine)
	if raw, ok := meta["is_exported"]; ok {
		exported := raw == "true"
		c.IsExported = &exported
	}
	return c
}

func joinCSV(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			out = append(out, value[start:i])
			start = i + 1
		}
	}
	return out
}
