package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_EmbedRoundTrip(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3, 4}}})
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 4)
	defer p.Close()

	vecs, err := p.Embed(context.Background(), []string{"hello"}, EmbedModeQuery)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 2, 3, 4}}, vecs)
	require.Equal(t, []string{"hello"}, gotReq.Texts)
	require.Equal(t, "query", gotReq.Mode)
	require.Equal(t, 4, p.Dimensions())
}

func TestHTTPProvider_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, 4)
	_, err := p.Embed(context.Background(), []string{"hello"}, EmbedModePassage)
	require.Error(t, err)
}
