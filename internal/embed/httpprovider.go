package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPProvider embeds text by calling a remote embedding endpoint speaking
// the {texts, mode} -> {embeddings} wire protocol (the same one the local
// embedding server exposes).
type HTTPProvider struct {
	endpoint   string
	dimensions int
	client     *http.Client
}

// NewHTTPProvider builds a provider bound to endpoint (e.g.
// "http://localhost:8121/embed") that reports dimensions for Dimensions().
func NewHTTPProvider(endpoint string, dimensions int) *HTTPProvider {
	return &HTTPProvider{
		endpoint:   endpoint,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Mode  string   `json:"mode"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed posts texts to the remote endpoint and returns their vectors.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts, Mode: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: server returned status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	return decoded.Embeddings, nil
}

// Dimensions returns the configured embedding width.
func (p *HTTPProvider) Dimensions() int { return p.dimensions }

// Close is a no-op: HTTPProvider owns no background process, only an
// *http.Client.
func (p *HTTPProvider) Close() error { return nil }
