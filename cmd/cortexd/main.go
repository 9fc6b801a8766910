// Command cortexd is a thin demonstration harness for the code
// intelligence engine: it wires the Git adapter, dedup store, vector
// store, embedding provider, and hybrid query engine into two commands,
// index and query. The CLI surface itself is not the point; it exists to
// exercise the library packages end to end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cortexd",
	Short: "Index a commit and query it",
	Long: `cortexd demonstrates the code intelligence engine end to end: it
opens a repository's dedup store, vector store, and embedding provider, then
either indexes a commit or runs a hybrid query against one already indexed.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
