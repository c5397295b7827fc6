package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/finsearch/internal/index"
	"github.com/go-mizu/finsearch/internal/obs"
)

func newInspectShardCmd() *cobra.Command {
	var (
		dir    string
		shard  uint16
		term   string
	)
	cmd := &cobra.Command{
		Use:   "inspect-shard",
		Short: "Load one shard and print its postings list for a term",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := obs.New(cfg.LogLevel, cfg.LogFormat)

			want := index.ShardID(term, cfg.NumShards)
			if want != shard {
				fmt.Printf("warning: term %q routes to shard %d, not %d\n", term, want, shard)
			}

			sh, err := index.LoadShard(dir, shard, cfg.NumShards, log)
			if err != nil {
				return fmt.Errorf("load shard: %w", err)
			}
			postings, err := sh.GetPostings(term)
			if err != nil {
				return fmt.Errorf("get postings: %w", err)
			}
			if len(postings) == 0 {
				fmt.Println("no postings for term")
				return nil
			}
			for _, p := range postings {
				fmt.Printf("doc_id=%d tf=%d doc_length=%d positions=%v\n", p.DocID, p.TF, p.DocLength, p.Positions)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "shard directory")
	cmd.Flags().Uint16Var(&shard, "shard", 0, "shard id to load")
	cmd.Flags().StringVar(&term, "term", "", "term to look up")
	cmd.MarkFlagRequired("term")
	return cmd
}
