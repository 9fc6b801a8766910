package indexer

import (
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/stefan-kp/sourcerack-sub001/internal/embed"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
)

// fakeGit is an in-memory gitrepo.Adapter backed by a handful of commits
// keyed by SHA, each holding a flat path->content map. It exists purely to
// drive the indexer without a real .git directory.
type fakeGit struct {
	commits map[string]map[string]string // sha -> path -> content
}

func newFakeGit() *fakeGit {
	return &fakeGit{commits: make(map[string]map[string]string)}
}

func (g *fakeGit) addCommit(sha string, files map[string]string) {
	g.commits[sha] = files
}

// blobSHA derives a blob id from content alone, as git does, so a file whose
// body is unchanged between two commits keeps the same blob SHA.
func blobSHA(content string) string {
	return fmt.Sprintf("blob-%x", sha1.Sum([]byte(content)))
}

func (g *fakeGit) ResolveRef(ref string) (string, error) {
	if _, ok := g.commits[ref]; ok {
		return ref, nil
	}
	return "", gitrepo.ErrRefNotFound
}

func (g *fakeGit) ListFilesAtCommit(commitSHA string) ([]gitrepo.Entry, error) {
	files, ok := g.commits[commitSHA]
	if !ok {
		return nil, gitrepo.ErrCommitNotFound
	}
	var out []gitrepo.Entry
	for path, content := range files {
		out = append(out, gitrepo.Entry{Path: path, Blob: blobSHA(content)})
	}
	return out, nil
}

func (g *fakeGit) ReadBlob(blobSHA string) ([]byte, bool, error) {
	for _, files := range g.commits {
		for _, content := range files {
			if fmt.Sprintf("blob-%x", sha1.Sum([]byte(content))) == blobSHA {
				return []byte(content), false, nil
			}
		}
	}
	return nil, false, gitrepo.ErrFileNotFound
}

func (g *fakeGit) Diff(fromSHA, toSHA string) ([]gitrepo.Change, error) {
	from, ok := g.commits[fromSHA]
	if !ok {
		return nil, gitrepo.ErrCommitNotFound
	}
	to, ok := g.commits[toSHA]
	if !ok {
		return nil, gitrepo.ErrCommitNotFound
	}

	var changes []gitrepo.Change
	for path, content := range to {
		if prior, existed := from[path]; !existed {
			changes = append(changes, gitrepo.Change{Kind: gitrepo.ChangeAdded, To: path})
		} else if prior != content {
			changes = append(changes, gitrepo.Change{Kind: gitrepo.ChangeModified, From: path, To: path})
		}
	}
	for path := range from {
		if _, stillExists := to[path]; !stillExists {
			changes = append(changes, gitrepo.Change{Kind: gitrepo.ChangeDeleted, From: path})
		}
	}
	return changes, nil
}

func (g *fakeGit) WorktreeStatus() (*gitrepo.DirtyStatus, error) {
	return &gitrepo.DirtyStatus{
		Modified:  map[string]bool{},
		Staged:    map[string]bool{},
		Untracked: map[string]bool{},
		Deleted:   map[string]bool{},
	}, nil
}

// fakeEmbedder returns a deterministic low-dimensional vector per text so
// tests never need a real model.
type fakeEmbedder struct {
	dims  int
	calls int
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dims: 4} }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embed.EmbedMode) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		for j := range v {
			v[j] = float32((len(t) + j) % 7)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Close() error    { return nil }
