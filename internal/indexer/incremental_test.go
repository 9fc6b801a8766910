package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	incCommitBase = "commit-base"
	incCommitNext = "commit-next"
)

const untouchedGoFile = `package sample

func Unchanged() int {
	return 1
}
`

const modifiedGoFileV1 = `package sample

func Modified() string {
	return "v1"
}
`

const modifiedGoFileV2 = `package sample

func Modified() string {
	return "v2"
}

func Added() string {
	return "new"
}
`

func TestIndexIncremental_OnlyReparsesChangedFiles(t *testing.T) {
	ix, dedupStore, _, git, repo := newTestIndexer(t)
	git.addCommit(incCommitBase, map[string]string{
		"untouched.go": untouchedGoFile,
		"modified.go":  modifiedGoFileV1,
	})
	git.addCommit(incCommitNext, map[string]string{
		"untouched.go": untouchedGoFile,
		"modified.go":  modifiedGoFileV2,
	})

	base, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: incCommitBase})
	require.NoError(t, err)
	require.Equal(t, 2, base.FilesProcessed)

	result, err := ix.IndexIncremental(context.Background(), IncrementalOptions{
		Options:       Options{RepoID: repo.ID, SHA: incCommitNext},
		BaseCommitSHA: incCommitBase,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.ChangedFiles)
	require.Equal(t, 1, result.UnchangedFiles)
	require.Greater(t, result.ChunksCreated, 0)
	require.Greater(t, result.ChunksReused, 0)

	nextCommit, err := dedupStore.LookupCommit(repo.ID, incCommitNext)
	require.NoError(t, err)

	unchangedSymbols, err := dedupStore.FindDefinition(nextCommit.ID, "Unchanged")
	require.NoError(t, err)
	require.Len(t, unchangedSymbols, 1, "symbols for untouched files must be copied forward from the base commit")

	addedSymbols, err := dedupStore.FindDefinition(nextCommit.ID, "Added")
	require.NoError(t, err)
	require.Len(t, addedSymbols, 1)
}

func TestIndexIncremental_RequiresCompletedBase(t *testing.T) {
	ix, _, _, git, repo := newTestIndexer(t)
	git.addCommit(incCommitBase, map[string]string{"main.go": untouchedGoFile})
	git.addCommit(incCommitNext, map[string]string{"main.go": untouchedGoFile})

	_, err := ix.IndexIncremental(context.Background(), IncrementalOptions{
		Options:       Options{RepoID: repo.ID, SHA: incCommitNext},
		BaseCommitSHA: incCommitBase,
	})
	require.ErrorIs(t, err, ErrBaseCommitNotIndexed)
}

func TestIndexIncremental_DeletedFileDropsSymbols(t *testing.T) {
	ix, dedupStore, _, git, repo := newTestIndexer(t)
	git.addCommit(incCommitBase, map[string]string{
		"untouched.go": untouchedGoFile,
		"modified.go":  modifiedGoFileV1,
	})
	git.addCommit(incCommitNext, map[string]string{
		"untouched.go": untouchedGoFile,
	})

	_, err := ix.IndexCommit(context.Background(), Options{RepoID: repo.ID, SHA: incCommitBase})
	require.NoError(t, err)

	_, err = ix.IndexIncremental(context.Background(), IncrementalOptions{
		Options:       Options{RepoID: repo.ID, SHA: incCommitNext},
		BaseCommitSHA: incCommitBase,
	})
	require.NoError(t, err)

	nextCommit, err := dedupStore.LookupCommit(repo.ID, incCommitNext)
	require.NoError(t, err)

	modifiedSymbols, err := dedupStore.FindDefinition(nextCommit.ID, "Modified")
	require.NoError(t, err)
	require.Empty(t, modifiedSymbols)
}
