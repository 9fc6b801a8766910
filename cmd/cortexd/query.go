package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stefan-kp/sourcerack-sub001/internal/dirtyoverlay"
	"github.com/stefan-kp/sourcerack-sub001/internal/query"
	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
)

var (
	queryRepoPath string
	querySHA      string
	queryLimit    int
	queryHybrid   bool
	queryBoost    bool
	queryLanguage string
	queryContent  string
	queryDirty    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a hybrid query against an indexed commit",
	Long: `query embeds the given text, retrieves vector and (with --hybrid)
structural candidates, fuses them with reciprocal-rank fusion, and prints the
ranked results. Pass --dirty to overlay uncommitted working-tree edits onto
the results.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryRepoPath, "repo", ".", "path to the Git repository")
	queryCmd.Flags().StringVar(&querySHA, "sha", "", "commit to query (default HEAD)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 10, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryHybrid, "hybrid", false, "combine vector and structural retrieval")
	queryCmd.Flags().BoolVar(&queryBoost, "boost", false, "apply structural path-based score boosting")
	queryCmd.Flags().StringVarP(&queryLanguage, "language", "l", "", "filter by language")
	queryCmd.Flags().StringVarP(&queryContent, "content-type", "t", "", "filter by content type (code, docs, config)")
	queryCmd.Flags().BoolVar(&queryDirty, "dirty", false, "overlay uncommitted working-tree edits")
}

func runQuery(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	deps, err := openDeps(queryRepoPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	repo, err := deps.registerRepo()
	if err != nil {
		return fmt.Errorf("register repository: %w", err)
	}

	sha, err := deps.resolveSHA(querySHA)
	if err != nil {
		return fmt.Errorf("resolve ref: %w", err)
	}

	opts := query.Options{
		RepoID:      repo.ID,
		SHA:         sha,
		Query:       text,
		Limit:       queryLimit,
		Hybrid:      queryHybrid,
		Boost:       queryBoost,
		Language:    queryLanguage,
		ContentType: queryContent,
	}

	if queryDirty {
		overlay := dirtyoverlay.New(deps.backend, sqi.New(deps.backend), deps.cfg)
		dirty, err := overlay.GetDirtySymbols(deps.repoPath, deps.git)
		if err != nil {
			return fmt.Errorf("compute dirty overlay: %w", err)
		}
		opts.Overlay = dirty
	}

	resp := deps.newEngine().Query(context.Background(), opts)
	if resp.Error != nil {
		return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}
	if !resp.IsIndexed {
		fmt.Printf("%s@%s is not indexed yet; run `cortexd index --repo %s --sha %s` first\n", repo.Name, sha, queryRepoPath, sha)
		return nil
	}
	if len(resp.Results) == 0 {
		fmt.Printf("no results for %q\n", text)
		return nil
	}

	for i, r := range resp.Results {
		loc := r.Path
		if r.StartLine > 0 {
			loc = fmt.Sprintf("%s:%d", r.Path, r.StartLine)
		}
		fmt.Printf("%d. %s (%s, score %.3f)\n", i+1, loc, r.Source, r.Score)
		if r.Symbol != "" {
			fmt.Printf("   %s %s\n", r.SymbolType, r.Symbol)
		}
		fmt.Println("   " + firstLine(r.Content))
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
