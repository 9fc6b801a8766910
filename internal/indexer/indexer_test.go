package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

const goCommitA = "commit-a"

const sampleGoFile = `package sample

// Greet returns a friendly greeting.
func Greet(name string) string {
	return "hello " + name
}

func call() string {
	return Greet("world")
}
`

func newTestIndexer(t *testing.T) (*Indexer, *dedup.Store, *vectorstore.Store, *fakeGit, *dedup.Repository) {
	t.Helper()

	dedupStore, err := dedup.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dedupStore.Close() })

	vectors, err := vectorstore.Open()
	require.NoError(t, err)

	git := newFakeGit()
	backend := parsing.NewBackend()
	embedder := newFakeEmbedder()

	ix := New(git, backend, embedder, dedupStore, vectors, config.Default())

	repo, err := dedupStore.RegisterRepository("/repos/sample", "sample")
	require.NoError(t, err)

	return ix, dedupStore, vectors, git, repo
}

func TestIndexCommit_FullRun(t *testing.T) {
	ix, _, vectors, git, repo := newTestIndexer(t)
	git.addCommit(goCommitA, map[string]string{"main.go": sampleGoFile})

	result, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesProcessed)
	require.Greater(t, result.ChunksCreated, 0)
	require.Equal(t, 0, result.ChunksReused)
	require.Equal(t, 1.0, result.FileCoverage)

	stats, err := vectors.GetStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, result.ChunksCreated, stats.ByRepo[repo.ID])
}

func TestIndexCommit_IsIdempotent(t *testing.T) {
	ix, _, _, git, repo := newTestIndexer(t)
	git.addCommit(goCommitA, map[string]string{"main.go": sampleGoFile})

	_, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA})
	require.NoError(t, err)

	second, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA})
	require.NoError(t, err)
	require.Equal(t, Result{}, second)
}

func TestIndexCommit_ForceRebuildsFromScratch(t *testing.T) {
	ix, dedupStore, _, git, repo := newTestIndexer(t)
	git.addCommit(goCommitA, map[string]string{"main.go": sampleGoFile})

	first, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA})
	require.NoError(t, err)

	second, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA, Force: true})
	require.NoError(t, err)
	require.Equal(t, first.ChunksCreated, second.ChunksCreated)

	indexed, err := dedupStore.IsIndexed(repo.ID, goCommitA)
	require.NoError(t, err)
	require.True(t, indexed)
}

func TestIndexCommit_UnknownCommitFails(t *testing.T) {
	ix, _, _, _, repo := newTestIndexer(t)

	_, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: "does-not-exist"})
	require.ErrorIs(t, err, ErrCommitNotFound)
}

func TestIndexCommit_PersistsSymbols(t *testing.T) {
	ix, dedupStore, _, git, repo := newTestIndexer(t)
	git.addCommit(goCommitA, map[string]string{"main.go": sampleGoFile})

	_, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: goCommitA})
	require.NoError(t, err)

	commit, err := dedupStore.LookupCommit(repo.ID, goCommitA)
	require.NoError(t, err)

	symbols, err := dedupStore.FindDefinition(commit.ID, "Greet")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
}
