package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stefan-kp/sourcerack-sub001/internal/indexer"
)

var (
	indexRepoPath string
	indexSHA      string
	indexBranch   string
	indexForce    bool
	indexBase     string
	indexQuiet    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a commit into the dedup and vector stores",
	Long: `index parses every supported file at a commit, chunks and embeds
it, extracts structural symbols, and persists the result. Pass --base to run
an incremental index against a previously completed commit instead of a full
one.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexRepoPath, "repo", ".", "path to the Git repository")
	indexCmd.Flags().StringVar(&indexSHA, "sha", "", "commit or ref to index (default HEAD)")
	indexCmd.Flags().StringVar(&indexBranch, "branch", "", "branch name to record against the commit")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even if the commit is already indexed")
	indexCmd.Flags().StringVar(&indexBase, "base", "", "base commit for an incremental index")
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "suppress progress output")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, cancelling...")
		cancel()
	}()

	deps, err := openDeps(indexRepoPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	repo, err := deps.registerRepo()
	if err != nil {
		return fmt.Errorf("register repository: %w", err)
	}

	sha, err := deps.resolveSHA(indexSHA)
	if err != nil {
		return fmt.Errorf("resolve ref: %w", err)
	}

	ix := deps.newIndexer()
	progress := func(evt indexer.ProgressEvent) {
		if indexQuiet {
			return
		}
		if evt.FilePath != "" {
			log.Printf("[%s] %s", evt.Type, evt.FilePath)
		} else {
			log.Printf("[%s]", evt.Type)
		}
	}

	opts := indexer.Options{
		RepoID:     repo.ID,
		SHA:        sha,
		Branch:     indexBranch,
		Force:      indexForce,
		OnProgress: progress,
	}

	var result indexer.Result
	if indexBase != "" {
		baseSHA, err := deps.resolveSHA(indexBase)
		if err != nil {
			return fmt.Errorf("resolve base ref: %w", err)
		}
		result, err = ix.IndexIncremental(ctx, indexer.IncrementalOptions{Options: opts, BaseCommitSHA: baseSHA})
		if err != nil {
			return fmt.Errorf("incremental index failed: %w", err)
		}
	} else {
		result, err = ix.IndexCommit(ctx, opts)
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
	}

	fmt.Printf("indexed %s@%s: %d files, %d chunks created, %d reused, coverage %.1f%%, took %dms\n",
		repo.Name, sha, result.FilesProcessed, result.ChunksCreated, result.ChunksReused, result.FileCoverage*100, result.DurationMs)
	return nil
}
