package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
)

// IncrementalOptions is Options plus the base commit an incremental run
// diffs against.
type IncrementalOptions struct {
	Options
	BaseCommitSHA string
}

// IndexIncremental runs the incremental indexing protocol (§4.G): diff
// against a previously-completed base commit, copy chunk refs and SQI rows
// forward for every file the diff didn't touch, and run the full-indexer
// pipeline (two-level skip, parse/chunk/embed/upsert, SQI extraction) only
// over the changed set.
func (ix *Indexer) IndexIncremental(ctx context.Context, opts IncrementalOptions) (Result, error) {
	start := time.Now()
	key := lockKey(opts.RepoID, opts.SHA)
	if !ix.tryLock(key) {
		return Result{}, ErrIndexingInProgress
	}
	defer ix.unlock(key)

	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventStarted, nil)

	repo, err := ix.dedup.LookupRepository(opts.RepoID)
	if err != nil {
		return ix.fail("", opts.Options, fmt.Errorf("%w: %v", ErrRepoNotFound, err))
	}

	baseCommit, err := ix.dedup.LookupCommit(repo.ID, opts.BaseCommitSHA)
	if err != nil || baseCommit.Status != dedup.StatusComplete {
		return ix.fail("", opts.Options, ErrBaseCommitNotIndexed)
	}

	if opts.Force {
		if err := ix.dedup.ForceReset(repo.ID, opts.SHA, vectorGC{ix.vectors}); err != nil {
			return ix.fail("", opts.Options, err)
		}
	} else {
		indexed, err := ix.dedup.IsIndexed(repo.ID, opts.SHA)
		if err != nil {
			return ix.fail("", opts.Options, err)
		}
		if indexed {
			emit(opts.OnProgress, opts.RepoID, opts.SHA, EventCompleted, nil)
			return Result{}, nil
		}
	}

	entries, err := ix.git.ListFilesAtCommit(opts.SHA)
	if err != nil {
		return ix.fail("", opts.Options, fmt.Errorf("%w: %v", ErrCommitNotFound, err))
	}
	changes, err := ix.git.Diff(opts.BaseCommitSHA, opts.SHA)
	if err != nil {
		return ix.fail("", opts.Options, err)
	}

	commit, err := ix.dedup.StartIndexing(repo.ID, opts.SHA)
	if err != nil {
		return ix.fail("", opts.Options, err)
	}

	filtered := filterSupportedFiles(entries)
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventFilesListed, func(e *ProgressEvent) { e.FilesTotal = len(filtered) })
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventGrammarsInstalling, nil)

	changedPaths := changedPathSet(changes)
	deletedPaths := deletedPathSet(changes)

	var changedEntries, unchangedEntries []gitrepo.Entry
	for _, f := range filtered {
		if changedPaths[f.Path] {
			changedEntries = append(changedEntries, f)
		} else {
			unchangedEntries = append(unchangedEntries, f)
		}
	}

	run := newRunState()

	if err := ix.copyUnchangedChunks(ctx, opts.SHA, unchangedEntries, run); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}

	reused, toParse, err := ix.splitReusable(ctx, changedEntries)
	if err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	for _, rf := range reused {
		run.reuse(rf, opts.SHA, ix.vectors)
	}

	pending, err := ix.chunkFiles(ctx, repo.ID, opts.SHA, toParse, run)
	if err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	if err := ix.embedAndStore(ctx, opts.Options, pending); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	if err := ix.persistRefs(commit.ID, run); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	if err := ix.readForSQI(reused, run); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}

	excludeFromBase := make(map[string]bool, len(changedPaths)+len(deletedPaths))
	for p := range changedPaths {
		excludeFromBase[p] = true
	}
	for p := range deletedPaths {
		excludeFromBase[p] = true
	}
	if err := ix.dedup.CopySQIExcluding(baseCommit.ID, commit.ID, excludeFromBase); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	if err := ix.runSQI(opts.Options, commit.ID, run); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}

	if err := ix.dedup.CompleteIndexing(commit.ID, len(run.allChunkIDs)); err != nil {
		return ix.fail(commit.ID, opts.Options, err)
	}
	emit(opts.OnProgress, opts.RepoID, opts.SHA, EventCompleted, func(e *ProgressEvent) { e.ChunksCreated = run.chunksCreated })

	coverage := 1.0
	if len(filtered) > 0 {
		coverage = float64(len(unchangedEntries)+len(run.fileContent)) / float64(len(filtered))
	}

	return Result{
		FilesProcessed: len(changedEntries),
		ChunksCreated:  run.chunksCreated,
		ChunksReused:   run.chunksReused,
		DurationMs:     time.Since(start).Milliseconds(),
		FileCoverage:   coverage,
		ChangedFiles:   len(changedEntries),
		UnchangedFiles: len(unchangedEntries),
	}, nil
}

// copyUnchangedChunks copies the base commit's chunk references forward for
// every file the diff left untouched, adding this commit's SHA to each
// chunk's commit list instead of re-parsing and re-embedding content that
// hasn't changed.
func (ix *Indexer) copyUnchangedChunks(ctx context.Context, sha string, unchanged []gitrepo.Entry, run *runState) error {
	for _, f := range unchanged {
		chunkIDs, err := ix.dedup.ChunksForBlob(f.Blob)
		if err != nil {
			return err
		}
		if len(chunkIDs) == 0 {
			continue
		}
		run.allChunkIDs = append(run.allChunkIDs, chunkIDs...)
		run.chunksReused += len(chunkIDs)
		run.fileBlobs[f.Path] = f.Blob
		for _, id := range chunkIDs {
			if err := ix.vectors.AddCommitToChunk(ctx, id, sha); err != nil {
				log.Printf("indexer: copy unchanged chunk %s for %s: %v", id, f.Path, err)
			}
		}
	}
	return nil
}

func changedPathSet(changes []gitrepo.Change) map[string]bool {
	out := make(map[string]bool, len(changes))
	for _, c := range changes {
		if c.To != "" {
			out[c.To] = true
		}
		if c.From != "" {
			out[c.From] = true
		}
	}
	return out
}

func deletedPathSet(changes []gitrepo.Change) map[string]bool {
	out := make(map[string]bool)
	for _, c := range changes {
		if c.Kind == gitrepo.ChangeDeleted {
			out[c.From] = true
		}
	}
	return out
}
