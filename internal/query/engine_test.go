package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/embed"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

type stubEmbedder struct{ dims int }

func (s stubEmbedder) Embed(ctx context.Context, texts []string, mode embed.EmbedMode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dims)
		out[i][0] = 1
	}
	return out, nil
}
func (s stubEmbedder) Dimensions() int { return s.dims }
func (s stubEmbedder) Close() error    { return nil }

func setupEngine(t *testing.T) (*Engine, *dedup.Store, *vectorstore.Store, *dedup.Repository, *dedup.IndexedCommit) {
	t.Helper()

	dedupStore, err := dedup.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dedupStore.Close() })

	vectors, err := vectorstore.Open()
	require.NoError(t, err)

	repo, err := dedupStore.RegisterRepository("/repos/sample", "sample")
	require.NoError(t, err)

	commit, err := dedupStore.StartIndexing(repo.ID, "sha1")
	require.NoError(t, err)

	err = vectors.UpsertChunks(context.Background(), []vectorstore.Chunk{
		{
			ID: "c1", Embedding: []float32{1, 0, 0, 0}, Content: "func Greet() {}",
			RepoID: repo.ID, Commits: []string{"sha1"}, Path: "main.go", Symbol: "Greet",
			SymbolType: "function", Language: "go", ContentType: "code", StartLine: 1, EndLine: 3,
		},
	})
	require.NoError(t, err)

	require.NoError(t, dedupStore.PersistSymbols(commit.ID, "go", []sqi.Symbol{
		{Name: "Greet", QualifiedName: "main.Greet", Kind: sqi.KindFunction, File: "main.go", StartLine: 1, EndLine: 3},
	}))
	require.NoError(t, dedupStore.CompleteIndexing(commit.ID, 1))

	return New(dedupStore, vectors, stubEmbedder{dims: 4}, config.Default()), dedupStore, vectors, repo, commit
}

func TestQuery_RejectsEmptyQuery(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)
	resp := e.Query(context.Background(), Options{RepoID: repo.ID, SHA: "sha1", Query: "   "})
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)
}

func TestQuery_RejectsLimitAboveMax(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)
	resp := e.Query(context.Background(), Options{RepoID: repo.ID, SHA: "sha1", Query: "Greet", Limit: 1000})
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrLimitExceeded, resp.Error.Code)
}

func TestQuery_NotIndexedCommit(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)
	resp := e.Query(context.Background(), Options{RepoID: repo.ID, SHA: "unindexed-sha", Query: "Greet"})
	require.False(t, resp.IsIndexed)
	require.Nil(t, resp.Error)
}

func TestQuery_VectorOnlyReturnsMatch(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)
	resp := e.Query(context.Background(), Options{RepoID: repo.ID, SHA: "sha1", Query: "Greet function"})
	require.Nil(t, resp.Error)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "main.go", resp.Results[0].Path)
}

func TestQuery_HybridFusesVectorAndSQI(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)
	resp := e.Query(context.Background(), Options{RepoID: repo.ID, SHA: "sha1", Query: "Greet", Hybrid: true})
	require.Nil(t, resp.Error)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Results)
}
