// Command bookctl is the offline/operator counterpart to bookragd: it
// ingests a reference document into an index snapshot, asks one-shot
// or interactive questions against it, and drives the evaluation
// pipeline (§6). Follows a cobra-based CLI
// structure (custodia-labs-sercha-cli): one file per command group,
// a shared root command, package-level use-case handles wired by main.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/config"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
	"github.com/kailas-cloud/bookrag/internal/index"
	"github.com/kailas-cloud/bookrag/internal/ingest"
	"github.com/kailas-cloud/bookrag/internal/version"
)

// app collects the use cases a subcommand drives, built by
// buildIngestApp or buildFullApp depending on what the command needs.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	idx       *index.Index
	answerer  *answer.Answerer
	evaluator *evaluate.Evaluator
	loader    *ingest.Loader
}

var rootCmd = &cobra.Command{
	Use:   "bookctl",
	Short: "Operate the bookrag reference-document assistant",
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("bookctl %s (%s)\n", version.Version, version.Commit)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
