// Package gitrepo is the read-only Git adapter: ref resolution, tree
// listing, blob reads, commit-to-commit diffing with rename/copy detection,
// and working-tree dirty status. It wraps go-git/go-git/v5 the way the
// engine's other external collaborators wrap their own backend libraries.
package gitrepo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNotARepository is returned when the target path has no .git directory.
	ErrNotARepository = errors.New("gitrepo: not a repository")

	// ErrRefNotFound is returned when a ref cannot be resolved to a commit.
	ErrRefNotFound = errors.New("gitrepo: ref not found")

	// ErrCommitNotFound is returned when a commit SHA does not exist.
	ErrCommitNotFound = errors.New("gitrepo: commit not found")

	// ErrFileNotFound is returned when a path does not exist at a commit.
	ErrFileNotFound = errors.New("gitrepo: file not found")
)

// Entry is one file at a commit: its path, mode, and blob SHA.
type Entry struct {
	Path string
	Mode filemode.FileMode
	Blob string
}

// ChangeKind classifies one entry of a commit-to-commit diff.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeModified ChangeKind = "modified"
	ChangeRenamed  ChangeKind = "renamed"
	ChangeCopied   ChangeKind = "copied"
)

// Change is one name-status diff entry between two commits.
type Change struct {
	Kind ChangeKind
	From string // empty for Added
	To   string // empty for Deleted
}

// DirtyStatus reports the working tree's uncommitted state.
type DirtyStatus struct {
	Modified  map[string]bool
	Staged    map[string]bool
	Untracked map[string]bool
	Deleted   map[string]bool
}

// Adapter is the read-only Git access surface the rest of the engine depends
// on. All operations are scoped to a single on-disk repository.
type Adapter interface {
	// ResolveRef resolves a ref (branch, tag, short or long SHA) to a
	// 40-char commit SHA.
	ResolveRef(ref string) (string, error)

	// ListFilesAtCommit lists every blob reachable from a commit's tree as
	// (path, mode, blob-sha) triples.
	ListFilesAtCommit(commitSHA string) ([]Entry, error)

	// ReadBlob returns a blob's raw bytes and whether it looks binary.
	ReadBlob(blobSHA string) ([]byte, bool, error)

	// Diff computes a name-status diff between two commits, with rename and
	// copy detection for blobs whose content is byte-identical across
	// paths.
	Diff(fromSHA, toSHA string) ([]Change, error)

	// WorktreeStatus reports the working tree's dirty state.
	WorktreeStatus() (*DirtyStatus, error)
}

type adapter struct {
	repo *git.Repository
}

// Open opens the Git repository rooted at path. path may be the repository
// root or any directory inside its worktree.
func Open(path string) (Adapter, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotARepository
		}
		return nil, fmt.Errorf("gitrepo: open %s: %w", path, err)
	}
	return &adapter{repo: repo}, nil
}

func (a *adapter) ResolveRef(ref string) (string, error) {
	hash, err := a.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRefNotFound, ref, err)
	}
	return hash.String(), nil
}

func (a *adapter) commitTree(commitSHA string) (*object.Tree, error) {
	hash := plumbing.NewHash(commitSHA)
	commit, err := a.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, commitSHA)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: tree for %s: %w", commitSHA, err)
	}
	return tree, nil
}

func (a *adapter) ListFilesAtCommit(commitSHA string) ([]Entry, error) {
	tree, err := a.commitTree(commitSHA)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, te, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gitrepo: walk tree at %s: %w", commitSHA, err)
		}
		if te.Mode == filemode.Dir || te.Mode == filemode.Submodule {
			continue
		}
		entries = append(entries, Entry{
			Path: name,
			Mode: te.Mode,
			Blob: te.Hash.String(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (a *adapter) ReadBlob(blobSHA string) ([]byte, bool, error) {
	blob, err := a.repo.BlobObject(plumbing.NewHash(blobSHA))
	if err != nil {
		return nil, false, fmt.Errorf("%w: blob %s", ErrFileNotFound, blobSHA)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, false, fmt.Errorf("gitrepo: open blob %s: %w", blobSHA, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("gitrepo: read blob %s: %w", blobSHA, err)
	}

	return data, looksBinary(data), nil
}

// looksBinary uses the same heuristic git itself uses: the presence of a NUL
// byte in the first 8000 bytes marks content as binary.
func looksBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) != -1
}

func (a *adapter) Diff(fromSHA, toSHA string) ([]Change, error) {
	fromEntries, err := a.ListFilesAtCommit(fromSHA)
	if err != nil {
		return nil, err
	}
	toEntries, err := a.ListFilesAtCommit(toSHA)
	if err != nil {
		return nil, err
	}

	fromByPath := make(map[string]Entry, len(fromEntries))
	for _, e := range fromEntries {
		fromByPath[e.Path] = e
	}
	toByPath := make(map[string]Entry, len(toEntries))
	for _, e := range toEntries {
		toByPath[e.Path] = e
	}

	var addedPaths, deletedPaths []string
	var changes []Change

	for path, toEntry := range toByPath {
		fromEntry, existed := fromByPath[path]
		if !existed {
			addedPaths = append(addedPaths, path)
			continue
		}
		if fromEntry.Blob != toEntry.Blob {
			changes = append(changes, Change{Kind: ChangeModified, From: path, To: path})
		}
	}
	for path := range fromByPath {
		if _, stillExists := toByPath[path]; !stillExists {
			deletedPaths = append(deletedPaths, path)
		}
	}

	changes = append(changes, detectRenamesAndCopies(deletedPaths, addedPaths, fromByPath, toByPath)...)

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.To != b.To {
			return a.To < b.To
		}
		return a.From < b.From
	})
	return changes, nil
}

// detectRenamesAndCopies pairs each addition with a source path that carries
// the same blob SHA (byte-identical content). A deleted source path makes it
// a rename; otherwise a source path that still exists under the destination
// commit makes it a copy.
func detectRenamesAndCopies(deletedPaths, addedPaths []string, fromByPath, toByPath map[string]Entry) []Change {
	blobToDeleted := make(map[string][]string)
	for _, p := range deletedPaths {
		blobToDeleted[fromByPath[p].Blob] = append(blobToDeleted[fromByPath[p].Blob], p)
	}

	blobToSurviving := make(map[string]string)
	for p, e := range fromByPath {
		if _, ok := toByPath[p]; ok && (blobToSurviving[e.Blob] == "" || p < blobToSurviving[e.Blob]) {
			blobToSurviving[e.Blob] = p
		}
	}

	matchedDeleted := make(map[string]bool)
	var out []Change

	for _, addedPath := range addedPaths {
		blob := toByPath[addedPath].Blob
		candidates := blobToDeleted[blob]

		var srcPath string
		for _, c := range candidates {
			if !matchedDeleted[c] {
				srcPath = c
				break
			}
		}

		if srcPath == "" {
			if copySrc, ok := blobToSurviving[blob]; ok {
				out = append(out, Change{Kind: ChangeCopied, From: copySrc, To: addedPath})
				continue
			}
			out = append(out, Change{Kind: ChangeAdded, From: "", To: addedPath})
			continue
		}

		matchedDeleted[srcPath] = true

		// if the source path still exists (under some other surviving
		// entry of the same blob) it's a copy, not a move.
		if _, stillExists := toByPath[srcPath]; stillExists {
			out = append(out, Change{Kind: ChangeCopied, From: srcPath, To: addedPath})
		} else {
			out = append(out, Change{Kind: ChangeRenamed, From: srcPath, To: addedPath})
		}
	}

	for _, p := range deletedPaths {
		if !matchedDeleted[p] {
			out = append(out, Change{Kind: ChangeDeleted, From: p, To: ""})
		}
	}

	return out
}

func (a *adapter) WorktreeStatus() (*DirtyStatus, error) {
	wt, err := a.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: status: %w", err)
	}

	dirty := &DirtyStatus{
		Modified:  make(map[string]bool),
		Staged:    make(map[string]bool),
		Untracked: make(map[string]bool),
		Deleted:   make(map[string]bool),
	}

	for path, s := range status {
		if s.Worktree == git.Untracked {
			dirty.Untracked[path] = true
			continue
		}
		if s.Worktree == git.Deleted || s.Staging == git.Deleted {
			dirty.Deleted[path] = true
			continue
		}
		if s.Staging != git.Unmodified && s.Staging != '?' {
			dirty.Staged[path] = true
		}
		if s.Worktree != git.Unmodified && s.Worktree != '?' {
			dirty.Modified[path] = true
		}
	}

	return dirty, nil
}
