package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/finsearch/internal/index"
)

func newStatsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print summary statistics for a built index",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := index.ReadStats(dir)
			if err != nil {
				return fmt.Errorf("read stats: %w", err)
			}
			fmt.Printf("build_id:        %s\n", stats.BuildID)
			fmt.Printf("total_docs:      %d\n", stats.TotalDocs)
			fmt.Printf("avg_doc_length:  %.4f\n", stats.AvgDocLength)
			fmt.Printf("num_shards:      %d\n", stats.NumShards)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "shard directory")
	return cmd
}
