package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/blog-agent/internal/pipeline"
	"github.com/jonathan/blog-agent/internal/slug"
)

var backfillBatch int

var backfillCmd = &cobra.Command{
	Use:   "backfill-slugs",
	Short: "Assign slugs to posts that have none",
	Long:  `Give every stored post without a slug a unique one derived from its title.`,
	RunE:  runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatch, "batch", pipeline.DefaultBackfillBatch, "Posts read per page")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, needs{database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := pipeline.BackfillSlugs(ctx, a.db, slug.NewAllocator(a.db), backfillBatch, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %d posts, %d failed\n", report.Updated, report.Failed)
	return nil
}
