// Package dedup implements the content-addressed dedup & refs store:
// repository and commit bookkeeping, chunk/blob reference counting, and the
// garbage-collection sweep for chunks whose reference count has fallen to
// zero. It is backed by mattn/go-sqlite3 for the relational metadata store.
package dedup

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// CommitStatus is the lifecycle state of an indexed_commits row.
type CommitStatus string

const (
	StatusPending  CommitStatus = "pending"
	StatusComplete CommitStatus = "complete"
	StatusFailed   CommitStatus = "failed"
)

// EmbeddingStatus tracks whether a commit's chunks have been embedded.
type EmbeddingStatus string

const (
	EmbeddingPending  EmbeddingStatus = "pending"
	EmbeddingComplete EmbeddingStatus = "complete"
)

var (
	// ErrRepositoryNotFound is returned when a repository id/path is unknown.
	ErrRepositoryNotFound = errors.New("dedup: repository not found")

	// ErrCommitNotFound is returned when a commit id is unknown to the store.
	ErrCommitNotFound = errors.New("dedup: commit not found")

	// ErrRepositoryExists is returned by Register when the path is already
	// registered under a different id.
	ErrRepositoryExists = errors.New("dedup: repository already registered")
)

// namespaceRepos and namespaceCommits seed deterministic UUID-v5 derivation
// so that the same (path) or (repoID, sha) pair always yields the same id,
// matching the content-addressing requirement carried through the rest of
// the engine.
var (
	namespaceRepos   = uuid.MustParse("3f3c6b3a-9e39-4d2a-9c2e-2b9a6f8a9e10")
	namespaceCommits = uuid.MustParse("7a1d4f2e-5c3b-4a9f-8e6d-1f2a3b4c5d6e")
)

// Repository is a registered repository root.
type Repository struct {
	ID        string
	Path      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexedCommit is one (repo, commit) indexing record.
type IndexedCommit struct {
	ID              string
	RepoID          string
	SHA             string
	Status          CommitStatus
	EmbeddingStatus EmbeddingStatus
	ChunkCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GCCandidate is a commit whose chunk refs dropped to zero and that is
// eligible for collection once eligible_at has passed.
type GCCandidate struct {
	CommitID   string
	OrphanedAt time.Time
	EligibleAt time.Time
}

// Store is the dedup & refs store's full operation surface.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) a dedup store at the given SQLite DSN. Use
// ":memory:" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("dedup: open %s: %w", dsn, err)
	}
	// the dedup store is the single writer for a given (repo, commit); a
	// single physical connection avoids SQLite's concurrent-writer lock
	// contention inside one process.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RegisterRepository registers a repository root, returning its existing id
// if the path is already known. Registration never deletes prior state. path
// is canonicalized (symlinks resolved) before id derivation, so a worktree
// reached through a symlink resolves to the same repository id as the real
// path.
func (s *Store) RegisterRepository(path, name string) (*Repository, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	existing, err := s.LookupRepositoryByPath(path)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrRepositoryNotFound) {
		return nil, err
	}

	id := uuid.NewSHA1(namespaceRepos, []byte(path)).String()
	now := time.Now().UTC()

	_, err = s.db.Exec(
		`INSERT INTO repositories (id, path, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, path, name, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("dedup: register repository: %w", err)
	}

	return &Repository{ID: id, Path: path, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// LookupRepositoryByPath returns a repository by its filesystem path.
func (s *Store) LookupRepositoryByPath(path string) (*Repository, error) {
	row := s.db.QueryRow(`SELECT id, path, name, created_at, updated_at FROM repositories WHERE path = ?`, path)
	return scanRepository(row)
}

// LookupRepository returns a repository by id.
func (s *Store) LookupRepository(id string) (*Repository, error) {
	row := s.db.QueryRow(`SELECT id, path, name, created_at, updated_at FROM repositories WHERE id = ?`, id)
	return scanRepository(row)
}

// ListRepositories returns every registered repository.
func (s *Store) ListRepositories() ([]*Repository, error) {
	rows, err := s.db.Query(`SELECT id, path, name, created_at, updated_at FROM repositories ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("dedup: list repositories: %w", err)
	}
	defer rows.Close()

	var out []*Repository
	for rows.Next() {
		var r Repository
		var created, updated string
		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("dedup: scan repository: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func scanRepository(row *sql.Row) (*Repository, error) {
	var r Repository
	var created, updated string
	if err := row.Scan(&r.ID, &r.Path, &r.Name, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("dedup: lookup repository: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &r, nil
}

// StartIndexing creates (or reuses) an indexed_commits row in pending
// status for (repoID, sha).
func (s *Store) StartIndexing(repoID, sha string) (*IndexedCommit, error) {
	if existing, err := s.LookupCommit(repoID, sha); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrCommitNotFound) {
		return nil, err
	}

	id := uuid.NewSHA1(namespaceCommits, []byte(repoID+":"+sha)).String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.Exec(
		`INSERT INTO indexed_commits (id, repo_id, sha, status, embedding_status, chunk_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, repoID, sha, StatusPending, EmbeddingPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("dedup: start indexing: %w", err)
	}

	return &IndexedCommit{ID: id, RepoID: repoID, SHA: sha, Status: StatusPending, EmbeddingStatus: EmbeddingPending}, nil
}

// CompleteIndexing marks a commit complete with its final chunk count.
func (s *Store) CompleteIndexing(commitID string, chunkCount int) error {
	return s.setCommitStatus(commitID, StatusComplete, EmbeddingComplete, &chunkCount)
}

// FailIndexing marks a commit failed.
func (s *Store) FailIndexing(commitID string) error {
	return s.setCommitStatus(commitID, StatusFailed, EmbeddingPending, nil)
}

func (s *Store) setCommitStatus(commitID string, status CommitStatus, embedStatus EmbeddingStatus, chunkCount *int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var err error
	if chunkCount != nil {
		_, err = s.db.Exec(
			`UPDATE indexed_commits SET status = ?, embedding_status = ?, chunk_count = ?, updated_at = ? WHERE id = ?`,
			status, embedStatus, *chunkCount, now, commitID,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE indexed_commits SET status = ?, embedding_status = ?, updated_at = ? WHERE id = ?`,
			status, embedStatus, now, commitID,
		)
	}
	if err != nil {
		return fmt.Errorf("dedup: update commit status: %w", err)
	}
	return nil
}

// LookupCommit returns the indexed_commits row for (repoID, sha).
func (s *Store) LookupCommit(repoID, sha string) (*IndexedCommit, error) {
	row := s.db.QueryRow(
		`SELECT id, repo_id, sha, status, embedding_status, chunk_count, created_at, updated_at
		 FROM indexed_commits WHERE repo_id = ? AND sha = ?`,
		repoID, sha,
	)
	return scanCommit(row)
}

// IsIndexed reports whether (repoID, sha) has a complete indexed_commits row.
func (s *Store) IsIndexed(repoID, sha string) (bool, error) {
	commit, err := s.LookupCommit(repoID, sha)
	if errors.Is(err, ErrCommitNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return commit.Status == StatusComplete, nil
}

func scanCommit(row *sql.Row) (*IndexedCommit, error) {
	var c IndexedCommit
	var created, updated string
	if err := row.Scan(&c.ID, &c.RepoID, &c.SHA, &c.Status, &c.EmbeddingStatus, &c.ChunkCount, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommitNotFound
		}
		return nil, fmt.Errorf("dedup: lookup commit: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &c, nil
}

// AddChunkRefs records that commitID references each of chunkIDs, and
// records the (path, blob-sha) mapping for the owning files in the same
// transaction: all mutations on a single commit's state run inside
// one transaction").
func (s *Store) AddChunkRefs(commitID string, chunkIDs []string, fileBlobs map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin add-refs transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO chunk_refs (chunk_id, commit_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare chunk_refs insert: %w", err)
	}
	defer stmt.Close()

	for _, chunkID := range chunkIDs {
		if _, err := stmt.Exec(chunkID, commitID); err != nil {
			return fmt.Errorf("dedup: insert chunk_ref: %w", err)
		}
	}

	blobStmt, err := tx.Prepare(`INSERT OR REPLACE INTO file_blobs (commit_id, path, blob_sha) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare file_blobs insert: %w", err)
	}
	defer blobStmt.Close()

	for path, blobSHA := range fileBlobs {
		if _, err := blobStmt.Exec(commitID, path, blobSHA); err != nil {
			return fmt.Errorf("dedup: insert file_blob: %w", err)
		}
	}

	return tx.Commit()
}

// CommitChunkCount returns the number of chunks referenced by a commit.
func (s *Store) CommitChunkCount(commitID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_refs WHERE commit_id = ?`, commitID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("dedup: commit chunk count: %w", err)
	}
	return count, nil
}

// RecordBlobChunks records that blobSHA's content produced chunkIDs.
func (s *Store) RecordBlobChunks(blobSHA string, chunkIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin record-blob-chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO blob_chunks (blob_sha, chunk_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare blob_chunks insert: %w", err)
	}
	defer stmt.Close()

	for _, chunkID := range chunkIDs {
		if _, err := stmt.Exec(blobSHA, chunkID); err != nil {
			return fmt.Errorf("dedup: insert blob_chunk: %w", err)
		}
	}

	return tx.Commit()
}

// ChunksForBlob returns the chunk ids a given blob produced.
func (s *Store) ChunksForBlob(blobSHA string) ([]string, error) {
	rows, err := s.db.Query(`SELECT chunk_id FROM blob_chunks WHERE blob_sha = ?`, blobSHA)
	if err != nil {
		return nil, fmt.Errorf("dedup: chunks for blob: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dedup: scan blob_chunk: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IndexedBlobs returns the subset of blobSHAs that already have a
// blob_chunks mapping, used to skip re-parsing unchanged file bodies: used by the two-level skip strategy.
func (s *Store) IndexedBlobs(blobSHAs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(blobSHAs))
	if len(blobSHAs) == 0 {
		return result, nil
	}

	placeholders := make([]byte, 0, len(blobSHAs)*2)
	args := make([]any, 0, len(blobSHAs))
	for i, sha := range blobSHAs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, sha)
	}

	query := fmt.Sprintf(`SELECT DISTINCT blob_sha FROM blob_chunks WHERE blob_sha IN (%s)`, string(placeholders))
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dedup: indexed blobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, fmt.Errorf("dedup: scan indexed blob: %w", err)
		}
		result[sha] = true
	}
	return result, rows.Err()
}

// DeleteBlobChunks removes blob_chunks rows for the given blob SHAs. Used
// to clean up an orphaned blob: a blob whose referenced chunk is
// missing from the vector store) before it is re-parsed.
func (s *Store) DeleteBlobChunks(blobSHAs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin delete-blob-chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM blob_chunks WHERE blob_sha = ?`)
	if err != nil {
		return fmt.Errorf("dedup: prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, sha := range blobSHAs {
		if _, err := stmt.Exec(sha); err != nil {
			return fmt.Errorf("dedup: delete blob_chunks: %w", err)
		}
	}

	return tx.Commit()
}

// MarkGCCandidate records commitID as orphaned, eligible for collection
// after the given grace period has elapsed.
func (s *Store) MarkGCCandidate(commitID string, gracePeriod time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO gc_candidates (commit_id, orphaned_at, eligible_at) VALUES (?, ?, ?)`,
		commitID, now.Format(time.RFC3339Nano), now.Add(gracePeriod).Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("dedup: mark gc candidate: %w", err)
	}
	return nil
}

// UnmarkGCCandidate removes a commit from the GC candidate set, used when a
// commit that was orphaned becomes referenced again.
func (s *Store) UnmarkGCCandidate(commitID string) error {
	_, err := s.db.Exec(`DELETE FROM gc_candidates WHERE commit_id = ?`, commitID)
	if err != nil {
		return fmt.Errorf("dedup: unmark gc candidate: %w", err)
	}
	return nil
}

// ListEligibleGC returns GC candidates whose eligible_at has passed.
func (s *Store) ListEligibleGC() ([]*GCCandidate, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows, err := s.db.Query(`SELECT commit_id, orphaned_at, eligible_at FROM gc_candidates WHERE eligible_at <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("dedup: list eligible gc: %w", err)
	}
	defer rows.Close()

	var out []*GCCandidate
	for rows.Next() {
		var c GCCandidate
		var orphaned, eligible string
		if err := rows.Scan(&c.CommitID, &orphaned, &eligible); err != nil {
			return nil, fmt.Errorf("dedup: scan gc candidate: %w", err)
		}
		c.OrphanedAt, _ = time.Parse(time.RFC3339Nano, orphaned)
		c.EligibleAt, _ = time.Parse(time.RFC3339Nano, eligible)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// RefCount returns the number of commits still referencing chunkID.
func (s *Store) RefCount(chunkID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_refs WHERE chunk_id = ?`, chunkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("dedup: ref count: %w", err)
	}
	return count, nil
}

// RemoveCommitChunkRefs removes every chunk_refs row for a commit, returning
// the chunk ids whose reference count dropped to zero as a result.
func (s *Store) RemoveCommitChunkRefs(commitID string) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("dedup: begin remove-refs: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT chunk_id FROM chunk_refs WHERE commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: select commit chunks: %w", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("dedup: scan commit chunk: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM chunk_refs WHERE commit_id = ?`, commitID); err != nil {
		return nil, fmt.Errorf("dedup: delete chunk_refs: %w", err)
	}

	var orphaned []string
	for _, id := range chunkIDs {
		var remaining int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM chunk_refs WHERE chunk_id = ?`, id).Scan(&remaining); err != nil {
			return nil, fmt.Errorf("dedup: recount chunk_refs: %w", err)
		}
		if remaining == 0 {
			orphaned = append(orphaned, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dedup: commit remove-refs: %w", err)
	}

	return orphaned, nil
}

// GarbageCollector deletes chunks whose reference count has fallen to zero
// from the vector store. The dedup store only tracks eligibility; the
// actual chunk payload lives in the vector store.
type GarbageCollector interface {
	DeleteChunk(chunkID string) error
}

// CollectGarbage sweeps gc_candidates past eligible_at, re-verifies their
// refcount is still zero (a commit could have been re-indexed since being
// marked), and deletes the orphaned chunk from both stores.
func (s *Store) CollectGarbage(gc GarbageCollector) (int, error) {
	candidates, err := s.ListEligibleGC()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, candidate := range candidates {
		chunkIDs, err := s.chunksStillOrphaned(candidate.CommitID)
		if err != nil {
			return deleted, err
		}

		for _, chunkID := range chunkIDs {
			count, err := s.RefCount(chunkID)
			if err != nil {
				return deleted, err
			}
			if count > 0 {
				continue
			}
			if err := gc.DeleteChunk(chunkID); err != nil {
				return deleted, fmt.Errorf("dedup: gc delete chunk %s: %w", chunkID, err)
			}
			if _, err := s.db.Exec(`DELETE FROM blob_chunks WHERE chunk_id = ?`, chunkID); err != nil {
				return deleted, fmt.Errorf("dedup: gc cleanup blob_chunks: %w", err)
			}
			deleted++
		}

		if err := s.UnmarkGCCandidate(candidate.CommitID); err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}

// DeleteAllSQIForCommit removes every symbols/usages/imports row (and their
// import_bindings) scoped to one commit, used by ForceReset before a forced
// re-index rebuilds them from scratch.
func (s *Store) DeleteAllSQIForCommit(commitID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin delete all sqi: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM import_bindings WHERE import_id IN (SELECT id FROM imports WHERE commit_id = ?)`, commitID); err != nil {
		return fmt.Errorf("dedup: delete import_bindings: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM imports WHERE commit_id = ?`, commitID); err != nil {
		return fmt.Errorf("dedup: delete imports: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM usages WHERE commit_id = ?`, commitID); err != nil {
		return fmt.Errorf("dedup: delete usages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE commit_id = ?`, commitID); err != nil {
		return fmt.Errorf("dedup: delete symbols: %w", err)
	}
	return tx.Commit()
}

// ForceReset undoes a prior indexing run for (repoID, sha) so it can be
// rebuilt from scratch: chunk refs are removed (decrementing shared
// refcounts across other commits correctly), any chunk that drops to zero
// refs as a result is deleted immediately from both stores (a forced rebuild
// is an explicit request, so it bypasses the normal GC grace period), SQI
// rows are cleared, and the commit is rewound to pending status. If the
// commit was never indexed this is a no-op.
func (s *Store) ForceReset(repoID, sha string, gc GarbageCollector) error {
	commit, err := s.LookupCommit(repoID, sha)
	if errors.Is(err, ErrCommitNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	orphaned, err := s.RemoveCommitChunkRefs(commit.ID)
	if err != nil {
		return err
	}
	for _, chunkID := range orphaned {
		if err := gc.DeleteChunk(chunkID); err != nil {
			return fmt.Errorf("dedup: force reset delete chunk %s: %w", chunkID, err)
		}
		if _, err := s.db.Exec(`DELETE FROM blob_chunks WHERE chunk_id = ?`, chunkID); err != nil {
			return fmt.Errorf("dedup: force reset cleanup blob_chunks: %w", err)
		}
	}

	if err := s.DeleteAllSQIForCommit(commit.ID); err != nil {
		return err
	}

	return s.setCommitStatus(commit.ID, StatusPending, EmbeddingPending, intPtr(0))
}

func intPtr(v int) *int { return &v }

// chunksStillOrphaned returns the chunk ids this now-GC'd commit last
// referenced, before its chunk_refs rows were removed by
// RemoveCommitChunkRefs. Implementations that call MarkGCCandidate are
// expected to have already removed the commit's chunk_refs; this looks at
// blob_chunks reachable only via file_blobs recorded for the commit.
func (s *Store) chunksStillOrphaned(commitID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT bc.chunk_id
		FROM file_blobs fb
		JOIN blob_chunks bc ON bc.blob_sha = fb.blob_sha
		WHERE fb.commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: chunks still orphaned: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dedup: scan orphaned chunk: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
