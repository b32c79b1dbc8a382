package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/bookrag/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured index snapshot's stats and ablation flags",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	idx := index.New(logger)
	var stats index.Stats
	if err := idx.Load(cfg.Index.SnapshotPath); err != nil {
		cmd.Printf("index snapshot %s: not loaded (%v)\n", cfg.Index.SnapshotPath, err)
	} else {
		stats = idx.Stats()
		cmd.Printf("index snapshot %s: %d parents, %d children, %d dimensions\n",
			cfg.Index.SnapshotPath, stats.Parents, stats.Children, stats.Dimensions)
	}

	cmd.Printf("ablation flags: hyde=%t stepback=%t rerank=%t hybrid_search=%t\n",
		cfg.Retrieval.HyDE, cfg.Retrieval.Stepback, cfg.Retrieval.Rerank, cfg.Retrieval.HybridSearch)
	return nil
}
