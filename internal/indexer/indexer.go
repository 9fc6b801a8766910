// Package indexer orchestrates the chunker, SQI extractor/linker, dedup
// store, and vector store into the commit-scoped indexing pipeline: full
// indexing of a commit from scratch (this file) and incremental indexing
// driven by a diff against a previously indexed commit (incremental.go).
package indexer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stefan-kp/sourcerack-sub001/internal/chunker"
	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/embed"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

// Options configures one indexCommit (or indexIncremental) call.
type Options struct {
	RepoID         string
	SHA            string
	Branch         string
	OnProgress     ProgressFunc
	SkipEmbeddings bool
	Force          bool
}

// Result summarizes a completed (or idempotently skipped) indexing run.
type Result struct {
	FilesProcessed int
	ChunksCreated  int
	ChunksReused   int
	DurationMs     int64
	FileCoverage   float64

	// Incremental-only; zero for a full index.
	ChangedFiles   int
	UnchangedFiles int
}

// Indexer owns the chunker/extractor/linker instances, the external
// collaborators (git, embedder, dedup store, vector store), and the
// in-process per-(repo,commit) lock map. There is no package-level mutable
// state; every run goes through one Indexer instance.
type Indexer struct {
	git       gitrepo.Adapter
	backend   parsing.Backend
	chunks    *chunker.Chunker
	extractor *sqi.Extractor
	linker    *sqi.Linker
	embedder  embed.Provider
	dedup     *dedup.Store
	vectors   *vectorstore.Store
	cfg       *config.Config

	mu    sync.Mutex
	locks map[string]bool
}

// New builds an Indexer wired to its external collaborators.
func New(git gitrepo.Adapter, backend parsing.Backend, embedder embed.Provider, dedupStore *dedup.Store, vectors *vectorstore.Store, cfg *config.Config) *Indexer {
	return &Indexer{
		git:       git,
		backend:   backend,
		chunks:    chunker.New(backend),
		extractor: sqi.New(backend),
		linker:    sqi.NewLinker(),
		embedder:  embedder,
		dedup:     dedupStore,
		vectors:   vectors,
		cfg:       cfg,
		locks:     make(map[string]bool),
	}
}

func lockKey(repoID, sha string) string { return repoID + "@" + sha }

func (ix *Indexer) tryLock(key string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.locks[key] {
		return false
	}
	ix.locks[key] = true
	return true
}

func (ix *Indexer) unlock(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.locks, key)
}

// vectorGC adapts the vector store to dedup.GarbageCollector so the dedup
// store's GC sweep can delete an orphaned chunk's payload without importing
// the vector store package itself.
type vectorGC struct{ v *vectorstore.Store }

func (g vectorGC) DeleteChunk(chunkID string) error {
	return g.v.DeleteChunks(context.Background(), []string{chunkID})
}

// CollectGarbage sweeps GC candidates past their grace period, deleting
// orphaned chunks from both stores.
func (ix *Indexer) CollectGarbage() (int, error) {
	return ix.dedup.CollectGarbage(vectorGC{ix.vectors})
}

// IndexCommit runs the full indexing protocol (§4.F): lock, skip-if-indexed,
// two-level blob/chunk reuse, parse+chunk+embed the rest, SQI extraction
// over every file whose content was read, then complete.
func (ix *Indexer) IndexCommit(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	key := lockKey(opts.RepoID, opts.SHA)
	if !ix.tryLock(key) {
		return Result{}, ErrIndexingInProgress
	}
	defer ix.unlock(key)

	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventStarted, nil)

	repo, err := ix.dedup.LookupRepository(opts.RepoID)
	if err != nil {
		return ix.fail("", opts, fmt.Errorf("%w: %v", ErrRepoNotFound, err))
	}

	if opts.Force {
		if err := ix.dedup.ForceReset(repo.ID, opts.SHA, vectorGC{ix.vectors}); err != nil {
			return ix.fail("", opts, err)
		}
	} else {
		indexed, err := ix.dedup.IsIndexed(repo.ID, opts.SHA)
		if err != nil {
			return ix.fail("", opts, err)
		}
		if indexed {
			emit(opts.OnProgress, opts.RepoID, opts.SHA, EventCompleted, nil)
			return Result{}, nil
		}
	}

	entries, err := ix.git.ListFilesAtCommit(opts.SHA)
	if err != nil {
		return ix.fail("", opts, fmt.Errorf("%w: %v", ErrCommitNotFound, err))
	}

	commit, err := ix.dedup.StartIndexing(repo.ID, opts.SHA)
	if err != nil {
		return ix.fail("", opts, err)
	}

	filtered := filterSupportedFiles(entries)
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventFilesListed, func(e *ProgressEvent) { e.FilesTotal = len(filtered) })
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventGrammarsInstalling, nil)

	reused, toParse, err := ix.splitReusable(ctx, filtered)
	if err != nil {
		return ix.fail(commit.ID, opts, err)
	}

	run := newRunState()
	for _, rf := range reused {
		run.reuse(rf, opts.SHA, ix.vectors)
	}

	pending, err := ix.chunkFiles(ctx, repo.ID, opts.SHA, toParse, run)
	if err != nil {
		return ix.fail(commit.ID, opts, err)
	}

	if err := ix.embedAndStore(ctx, opts, pending); err != nil {
		return ix.fail(commit.ID, opts, err)
	}

	if err := ix.persistRefs(commit.ID, run); err != nil {
		return ix.fail(commit.ID, opts, err)
	}

	if err := ix.readForSQI(reused, run); err != nil {
		return ix.fail(commit.ID, opts, err)
	}
	if err := ix.runSQI(opts, commit.ID, run); err != nil {
		return ix.fail(commit.ID, opts, err)
	}

	if err := ix.dedup.CompleteIndexing(commit.ID, len(run.allChunkIDs)); err != nil {
		return ix.fail(commit.ID, opts, err)
	}
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventCompleted, func(e *ProgressEvent) { e.ChunksCreated = run.chunksCreated })

	coverage := 1.0
	if len(filtered) > 0 {
		coverage = float64(len(run.fileContent)) / float64(len(filtered))
	}

	return Result{
		FilesProcessed: len(run.fileContent),
		ChunksCreated:  run.chunksCreated,
		ChunksReused:   run.chunksReused,
		DurationMs:     time.Since(start).Milliseconds(),
		FileCoverage:   coverage,
	}, nil
}

func (ix *Indexer) fail(commitID string, opts Options, err error) (Result, error) {
	if commitID != "" {
		if ferr := ix.dedup.FailIndexing(commitID); ferr != nil {
			log.Printf("indexer: fail-indexing cleanup for %s: %v", commitID, ferr)
		}
	}
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventFailed, func(e *ProgressEvent) { e.Error = err.Error() })
	return Result{}, err
}

// reusableFile is a file whose blob already has a verified, fully-present
// chunk set in the vector store.
type reusableFile struct {
	entry    gitrepo.Entry
	chunkIDs []string
}

// splitReusable applies the two-level skip strategy (§4.F step 7): a blob is
// reusable only if every chunk id it previously produced still exists in the
// vector store. A blob with a missing chunk is orphaned and moved back to
// the parse queue.
func (ix *Indexer) splitReusable(ctx context.Context, files []gitrepo.Entry) ([]reusableFile, []gitrepo.Entry, error) {
	blobSHAs := make([]string, 0, len(files))
	for _, f := range files {
		blobSHAs = append(blobSHAs, f.Blob)
	}
	indexedBlobs, err := ix.dedup.IndexedBlobs(blobSHAs)
	if err != nil {
		return nil, nil, err
	}

	var reused []reusableFile
	var toParse []gitrepo.Entry
	for _, f := range files {
		if !indexedBlobs[f.Blob] {
			toParse = append(toParse, f)
			continue
		}
		chunkIDs, err := ix.dedup.ChunksForBlob(f.Blob)
		if err != nil {
			return nil, nil, err
		}
		exist, err := ix.vectors.ChunksExist(ctx, chunkIDs)
		if err != nil {
			return nil, nil, err
		}
		if len(chunkIDs) > 0 && len(exist) == len(chunkIDs) {
			reused = append(reused, reusableFile{entry: f, chunkIDs: chunkIDs})
			continue
		}
		if err := ix.dedup.DeleteBlobChunks([]string{f.Blob}); err != nil {
			return nil, nil, err
		}
		toParse = append(toParse, f)
	}
	return reused, toParse, nil
}

// runState accumulates everything an indexing pass needs across its phases:
// which chunks were created/reused, the file-blob map for this commit, the
// per-run file-content cache (keyed by path, since a run covers one commit),
// and the new blob->chunks mappings discovered by parsing.
type runState struct {
	allChunkIDs    []string
	chunksCreated  int
	chunksReused   int
	fileBlobs      map[string]string
	fileContent    map[string][]byte
	newBlobChunks  map[string][]string
}

func newRunState() *runState {
	return &runState{
		fileBlobs:     make(map[string]string),
		fileContent:   make(map[string][]byte),
		newBlobChunks: make(map[string][]string),
	}
}

func (r *runState) reuse(rf reusableFile, sha string, vectors *vectorstore.Store) {
	r.allChunkIDs = append(r.allChunkIDs, rf.chunkIDs...)
	r.chunksReused += len(rf.chunkIDs)
	r.fileBlobs[rf.entry.Path] = rf.entry.Blob
	for _, id := range rf.chunkIDs {
		if err := vectors.AddCommitToChunk(context.Background(), id, sha); err != nil {
			log.Printf("indexer: add commit to reused chunk %s: %v", id, err)
		}
	}
}

// chunkFiles reads, chunks, and dedups content for files needing parsing,
// returning the chunks that still need embedding. Content read for SQI is
// cached on runState so the extraction pass doesn't re-read the blob.
func (ix *Indexer) chunkFiles(ctx context.Context, repoID, sha string, files []gitrepo.Entry, run *runState) ([]vectorstore.Chunk, error) {
	var pending []vectorstore.Chunk

	for _, f := range files {
		content, isBinary, err := ix.git.ReadBlob(f.Blob)
		if err != nil {
			log.Printf("indexer: read blob for %s: %v", f.Path, err)
			continue
		}
		if isBinary {
			continue
		}
		run.fileContent[f.Path] = content
		run.fileBlobs[f.Path] = f.Blob

		lang, ok := parsing.LanguageFromExtension(f.Path)
		var langPtr *parsing.Language
		if ok {
			langPtr = &lang
		}
		result := ix.chunks.ParseFile(f.Path, content, langPtr)
		if !result.Success {
			log.Printf("indexer: chunk %s: %v", f.Path, result.Error)
			continue
		}

		ids, chunks := dedupChunksInFile(f.Path, result.Chunks)
		exist, err := ix.vectors.ChunksExist(ctx, ids)
		if err != nil {
			return nil, err
		}

		for i, id := range ids {
			run.allChunkIDs = append(run.allChunkIDs, id)
			if exist[id] {
				if err := ix.vectors.AddCommitToChunk(ctx, id, sha); err != nil {
					return nil, err
				}
				run.chunksReused++
				continue
			}
			c := chunks[i]
			pending = append(pending, vectorstore.Chunk{
				ID:          id,
				Content:     c.Content,
				RepoID:      repoID,
				Commits:     []string{sha},
				Path:        f.Path,
				Symbol:      c.Symbol,
				SymbolType:  string(c.SymbolKind),
				Language:    string(c.Language),
				ContentType: c.ContentType,
				StartLine:   c.StartLine,
				EndLine:     c.EndLine,
			})
			run.chunksCreated++
		}
		run.newBlobChunks[f.Blob] = ids
	}

	return pending, nil
}

func dedupChunksInFile(path string, raw []chunker.Chunk) ([]string, []chunker.Chunk) {
	seen := make(map[string]bool, len(raw))
	ids := make([]string, 0, len(raw))
	chunks := make([]chunker.Chunk, 0, len(raw))
	for _, c := range raw {
		id := dedup.ChunkID(path, c.Symbol, c.StartLine, c.EndLine, c.Content)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		chunks = append(chunks, c)
	}
	return ids, chunks
}

// embedAndStore batches embedding calls at cfg.Batching.EmbedBatchSize and
// flushes upserts at cfg.Batching.UpsertFlushSize.
func (ix *Indexer) embedAndStore(ctx context.Context, opts Options, pending []vectorstore.Chunk) error {
	if len(pending) == 0 {
		return nil
	}

	if !opts.SkipEmbeddings {
		texts := make([]string, len(pending))
		for i, c := range pending {
			texts[i] = c.Content
		}
		vecs, err := embed.EmbedWithProgress(ctx, ix.embedder, texts, embed.EmbedModePassage, ix.cfg.Batching.EmbedBatchSize, nil)
		if err != nil {
			return fmt.Errorf("indexer: embed chunks: %w", err)
		}
		for i := range pending {
			pending[i].Embedding = vecs[i]
		}
		emit(opts.OnProgress, opts.RepoID, opts.SHA, EventChunksEmbedded, func(e *ProgressEvent) { e.ChunksCreated = len(pending) })
	}

	flush := ix.cfg.Batching.UpsertFlushSize
	if flush <= 0 {
		flush = len(pending)
	}
	for start := 0; start < len(pending); start += flush {
		end := min(start+flush, len(pending))
		if err := ix.vectors.UpsertChunks(ctx, pending[start:end]); err != nil {
			return fmt.Errorf("indexer: upsert chunks: %w", err)
		}
	}
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventChunksStored, nil)
	return nil
}

func (ix *Indexer) persistRefs(commitID string, run *runState) error {
	if err := ix.dedup.AddChunkRefs(commitID, run.allChunkIDs, run.fileBlobs); err != nil {
		return err
	}
	for blob, ids := range run.newBlobChunks {
		if err := ix.dedup.RecordBlobChunks(blob, ids); err != nil {
			return err
		}
	}
	return nil
}

// readForSQI reads content for reused files so SQI extraction — which is
// never blob-deduped, unlike chunk embedding — has a source to walk.
func (ix *Indexer) readForSQI(reused []reusableFile, run *runState) error {
	for _, rf := range reused {
		if _, ok := run.fileContent[rf.entry.Path]; ok {
			continue
		}
		content, isBinary, err := ix.git.ReadBlob(rf.entry.Blob)
		if err != nil {
			log.Printf("indexer: read blob for sqi %s: %v", rf.entry.Path, err)
			continue
		}
		if isBinary {
			continue
		}
		run.fileContent[rf.entry.Path] = content
	}
	return nil
}

func (ix *Indexer) runSQI(opts Options, commitID string, run *runState) error {
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventSQIExtracting, nil)

	symbolsByLang := make(map[string][]sqi.Symbol)
	var usages []sqi.Usage
	var imports []sqi.Import
	var allSymbols []sqi.Symbol

	for path, content := range run.fileContent {
		lang, ok := parsing.LanguageFromExtension(path)
		if !ok || !ix.backend.Supports(lang) {
			continue
		}
		res := ix.extractor.Extract(path, content, lang)
		if !res.Success {
			log.Printf("indexer: sqi extract %s: %v", path, res.Error)
			continue
		}
		symbolsByLang[string(lang)] = append(symbolsByLang[string(lang)], res.Symbols...)
		allSymbols = append(allSymbols, res.Symbols...)
		usages = append(usages, res.Usages...)
		imports = append(imports, res.Imports...)
	}

	linked := ix.linker.Link(usages, allSymbols)

	for lang, syms := range symbolsByLang {
		if err := ix.dedup.PersistSymbols(commitID, lang, syms); err != nil {
			return err
		}
	}
	if err := ix.dedup.PersistUsages(commitID, linked); err != nil {
		return err
	}
	return ix.dedup.PersistImports(commitID, imports)
}

func filterSupportedFiles(entries []gitrepo.Entry) []gitrepo.Entry {
	var out []gitrepo.Entry
	for _, e := range entries {
		if _, ok := parsing.LanguageFromExtension(e.Path); ok {
			out = append(out, e)
		}
	}
	return out
}
