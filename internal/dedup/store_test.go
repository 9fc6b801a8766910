package dedup

// Test Plan for the Dedup & Refs Store:
// - Open creates schema successfully against an in-memory database
// - RegisterRepository is idempotent by path
// - StartIndexing is idempotent by (repoID, sha)
// - CompleteIndexing / FailIndexing update status and chunk_count
// - AddChunkRefs + CommitChunkCount round-trip
// - RecordBlobChunks + ChunksForBlob + IndexedBlobs round-trip
// - DeleteBlobChunks removes rows for orphan cleanup
// - RemoveCommitChunkRefs returns chunks whose refcount dropped to zero
// - MarkGCCandidate / ListEligibleGC / UnmarkGCCandidate
// - CollectGarbage deletes orphaned chunks via the GarbageCollector callback
// - CollectGarbage skips a candidate whose chunk was re-referenced before the sweep ran

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ListRepositories()
	assert.NoError(t, err)
}

func TestRegisterRepository_IdempotentByPath(t *testing.T) {
	s := openTestStore(t)

	r1, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)

	r2, err := s.RegisterRepository("/repo/a", "repo-a-renamed")
	require.NoError(t, err)

	assert.Equal(t, r1.ID, r2.ID)
}

func TestStartIndexing_IdempotentByCommit(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)

	c1, err := s.StartIndexing(repo.ID, "deadbeef")
	require.NoError(t, err)

	c2, err := s.StartIndexing(repo.ID, "deadbeef")
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, StatusPending, c2.Status)
}

func TestCompleteIndexing_UpdatesStatusAndChunkCount(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)
	commit, err := s.StartIndexing(repo.ID, "deadbeef")
	require.NoError(t, err)

	require.NoError(t, s.CompleteIndexing(commit.ID, 42))

	indexed, err := s.IsIndexed(repo.ID, "deadbeef")
	require.NoError(t, err)
	assert.True(t, indexed)

	reloaded, err := s.LookupCommit(repo.ID, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, 42, reloaded.ChunkCount)
	assert.Equal(t, EmbeddingComplete, reloaded.EmbeddingStatus)
}

func TestFailIndexing_MarksFailed(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)
	commit, err := s.StartIndexing(repo.ID, "deadbeef")
	require.NoError(t, err)

	require.NoError(t, s.FailIndexing(commit.ID))

	indexed, err := s.IsIndexed(repo.ID, "deadbeef")
	require.NoError(t, err)
	assert.False(t, indexed)
}

func TestAddChunkRefs_AndCommitChunkCount(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)
	commit, err := s.StartIndexing(repo.ID, "deadbeef")
	require.NoError(t, err)

	require.NoError(t, s.AddChunkRefs(commit.ID, []string{"chunk-1", "chunk-2"}, map[string]string{
		"main.go": "blob-sha-1",
	}))

	count, err := s.CommitChunkCount(commit.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordBlobChunks_AndIndexedBlobs(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordBlobChunks("blob-1", []string{"chunk-a", "chunk-b"}))

	chunks, err := s.ChunksForBlob("blob-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chunk-a", "chunk-b"}, chunks)

	indexed, err := s.IndexedBlobs([]string{"blob-1", "blob-missing"})
	require.NoError(t, err)
	assert.True(t, indexed["blob-1"])
	assert.False(t, indexed["blob-missing"])
}

func TestDeleteBlobChunks_RemovesRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordBlobChunks("blob-1", []string{"chunk-a"}))

	require.NoError(t, s.DeleteBlobChunks([]string{"blob-1"}))

	chunks, err := s.ChunksForBlob("blob-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRemoveCommitChunkRefs_ReturnsOrphanedChunks(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)

	c1, err := s.StartIndexing(repo.ID, "sha1")
	require.NoError(t, err)
	c2, err := s.StartIndexing(repo.ID, "sha2")
	require.NoError(t, err)

	require.NoError(t, s.AddChunkRefs(c1.ID, []string{"shared", "only-c1"}, nil))
	require.NoError(t, s.AddChunkRefs(c2.ID, []string{"shared"}, nil))

	orphaned, err := s.RemoveCommitChunkRefs(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"only-c1"}, orphaned)

	count, err := s.RefCount("shared")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGCCandidateLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkGCCandidate("commit-1", -time.Minute))

	eligible, err := s.ListEligibleGC()
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "commit-1", eligible[0].CommitID)

	require.NoError(t, s.UnmarkGCCandidate("commit-1"))

	eligible, err = s.ListEligibleGC()
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

type fakeGarbageCollector struct {
	deleted []string
}

func (f *fakeGarbageCollector) DeleteChunk(chunkID string) error {
	f.deleted = append(f.deleted, chunkID)
	return nil
}

func TestCollectGarbage_DeletesOrphanedChunks(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)
	commit, err := s.StartIndexing(repo.ID, "sha1")
	require.NoError(t, err)

	require.NoError(t, s.AddChunkRefs(commit.ID, []string{"chunk-1"}, map[string]string{"a.go": "blob-1"}))
	require.NoError(t, s.RecordBlobChunks("blob-1", []string{"chunk-1"}))

	_, err = s.RemoveCommitChunkRefs(commit.ID)
	require.NoError(t, err)
	require.NoError(t, s.MarkGCCandidate(commit.ID, -time.Minute))

	fakeGC := &fakeGarbageCollector{}
	deleted, err := s.CollectGarbage(fakeGC)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"chunk-1"}, fakeGC.deleted)

	eligible, err := s.ListEligibleGC()
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestCollectGarbage_SkipsReReferencedChunk(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.RegisterRepository("/repo/a", "repo-a")
	require.NoError(t, err)
	commit, err := s.StartIndexing(repo.ID, "sha1")
	require.NoError(t, err)

	require.NoError(t, s.AddChunkRefs(commit.ID, []string{"chunk-1"}, map[string]string{"a.go": "blob-1"}))
	require.NoError(t, s.RecordBlobChunks("blob-1", []string{"chunk-1"}))
	require.NoError(t, s.MarkGCCandidate(commit.ID, -time.Minute))

	// chunk-1 got re-referenced by a second commit before the sweep ran.
	other, err := s.StartIndexing(repo.ID, "sha2")
	require.NoError(t, err)
	require.NoError(t, s.AddChunkRefs(other.ID, []string{"chunk-1"}, nil))

	fakeGC := &fakeGarbageCollector{}
	deleted, err := s.CollectGarbage(fakeGC)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Empty(t, fakeGC.deleted)
}
