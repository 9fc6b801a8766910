package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stefan-kp/sourcerack-sub001/internal/config"
	"github.com/stefan-kp/sourcerack-sub001/internal/dedup"
	"github.com/stefan-kp/sourcerack-sub001/internal/embed"
	"github.com/stefan-kp/sourcerack-sub001/internal/gitrepo"
	"github.com/stefan-kp/sourcerack-sub001/internal/indexer"
	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
	"github.com/stefan-kp/sourcerack-sub001/internal/query"
	"github.com/stefan-kp/sourcerack-sub001/internal/vectorstore"
)

// engineDeps bundles the collaborators every command needs, opened once per
// invocation and closed together when the command returns.
type engineDeps struct {
	repoPath string
	cfg      *config.Config
	git      gitrepo.Adapter
	dedup    *dedup.Store
	vectors  *vectorstore.Store
	embedder embed.Provider
	backend  parsing.Backend
}

func openDeps(repoPath string) (*engineDeps, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(repoPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	git, err := gitrepo.Open(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}

	dbDir := filepath.Join(repoPath, ".cortex")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("create .cortex directory: %w", err)
	}
	dedupStore, err := dedup.Open(filepath.Join(dbDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}

	vectors, err := vectorstore.Open()
	if err != nil {
		dedupStore.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	return &engineDeps{
		repoPath: repoPath,
		cfg:      cfg,
		git:      git,
		dedup:    dedupStore,
		vectors:  vectors,
		embedder: embed.NewHTTPProvider(cfg.Embedding.Endpoint, cfg.Embedding.Dimensions),
		backend:  parsing.NewBackend(),
	}, nil
}

func (d *engineDeps) Close() {
	_ = d.embedder.Close()
	_ = d.dedup.Close()
}

func (d *engineDeps) registerRepo() (*dedup.Repository, error) {
	return d.dedup.RegisterRepository(d.repoPath, filepath.Base(d.repoPath))
}

func (d *engineDeps) newIndexer() *indexer.Indexer {
	return indexer.New(d.git, d.backend, d.embedder, d.dedup, d.vectors, d.cfg)
}

func (d *engineDeps) newEngine() *query.Engine {
	return query.New(d.dedup, d.vectors, d.embedder, d.cfg)
}

// resolveSHA resolves ref (empty defaults to HEAD) to a full commit SHA.
func (d *engineDeps) resolveSHA(ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	return d.git.ResolveRef(ref)
}
