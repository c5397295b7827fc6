package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/finsearch/internal/docstore"
	"github.com/go-mizu/finsearch/internal/index"
	"github.com/go-mizu/finsearch/internal/obs"
	"github.com/go-mizu/finsearch/internal/tokenizer"
)

func newBuildCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run a full index build against a document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := obs.New(cfg.LogLevel, cfg.LogFormat)

			store, err := docstore.Open(cmd.Context(), dbPath, log)
			if err != nil {
				return fmt.Errorf("open document store: %w", err)
			}
			defer store.Close()

			tok := tokenizer.New(tokenizer.Config{
				StopwordsEnabled: cfg.StopwordsEnabled,
				Stemming:         cfg.StemmingEnabled,
				MinRunes:         int(cfg.MinTermLength),
				MaxRunes:         int(cfg.MaxTermLength),
			})

			builder, err := index.NewBuilder(index.BuilderConfig{
				Dir:            cfg.DataDir,
				NumShards:      cfg.NumShards,
				MemCapPerShard: cfg.MemCapPerShard,
				BatchSize:      cfg.BatchSize,
			}, tok.Tokenize, store, log)
			if err != nil {
				return fmt.Errorf("construct builder: %w", err)
			}

			stats, err := builder.Build(cmd.Context())
			if err != nil {
				return fmt.Errorf("build index: %w", err)
			}

			fmt.Printf("build %s complete: %d documents, %d shards, avg_doc_length=%.2f\n",
				stats.BuildID, stats.TotalDocs, stats.NumShards, stats.AvgDocLength)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/docs.sqlite", "path to the document store database")
	return cmd
}
