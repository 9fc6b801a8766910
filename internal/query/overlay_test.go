package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-kp/sourcerack-sub001/internal/dirtyoverlay"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
)

func TestQuery_OverlayShadowsCommittedFile(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)

	overlay := &dirtyoverlay.Result{
		DirtyFilePaths: []string{"main.go"},
		SymbolsByFile: map[string][]sqi.Symbol{
			"main.go": {{Name: "Greet", Kind: sqi.KindFunction, StartLine: 5, EndLine: 7}},
		},
	}

	resp := e.Query(context.Background(), Options{
		RepoID: repo.ID, SHA: "sha1", Query: "Greet function", Overlay: overlay,
	})
	require.Nil(t, resp.Error)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		if r.Path == "main.go" {
			require.Equal(t, "dirty", r.Source)
			require.Equal(t, 5, r.StartLine)
		}
	}
}

func TestQuery_OverlayDeletedFileDropsCommittedRows(t *testing.T) {
	e, _, _, repo, _ := setupEngine(t)

	overlay := &dirtyoverlay.Result{DeletedFilePaths: []string{"main.go"}}

	resp := e.Query(context.Background(), Options{
		RepoID: repo.ID, SHA: "sha1", Query: "Greet function", Overlay: overlay,
	})
	require.Nil(t, resp.Error)
	require.True(t, resp.Success)
	for _, r := range resp.Results {
		require.NotEqual(t, "main.go", r.Path)
	}
}
