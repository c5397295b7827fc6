package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-mizu/finsearch/internal/bm25"
	"github.com/go-mizu/finsearch/internal/docstore"
	"github.com/go-mizu/finsearch/internal/errs"
	"github.com/go-mizu/finsearch/internal/index"
	"github.com/go-mizu/finsearch/internal/obs"
	"github.com/go-mizu/finsearch/internal/tokenizer"
)

func newSearchCmd() *cobra.Command {
	var (
		dir         string
		dbPath      string
		k           int
		disjunctive bool
	)
	cmd := &cobra.Command{
		Use:   "search [query terms...]",
		Short: "Run a debug query against a built index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := obs.New(cfg.LogLevel, cfg.LogFormat)

			idx, err := index.Open(dir, cfg.NumShards, log)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}

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

			eval := bm25.NewEvaluator(idx, idx.Stats, tok.Tokenize, store, bm25.EvaluatorConfig{
				K1: cfg.K1, B: cfg.B, DefaultTopK: cfg.DefaultTopK,
			}, log)

			ctx := cmd.Context()
			if cfg.QueryDeadline > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.QueryDeadline)
				defer cancel()
			}

			query := strings.Join(args, " ")
			search := eval.Search
			if disjunctive {
				search = eval.SearchDisjunctive
			}
			results, err := search(ctx, query, k)
			if err != nil && !errors.Is(err, errs.ErrDeadline) {
				return fmt.Errorf("search: %w", err)
			}
			if errors.Is(err, errs.ErrDeadline) {
				fmt.Println("warning: deadline hit, results are partial")
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%2d. [%.4f] %s\n    %s\n    %s\n", i+1, r.Score, r.Title, r.URL, r.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "shard directory")
	cmd.Flags().StringVar(&dbPath, "db", "./data/docs.sqlite", "path to the document store database")
	cmd.Flags().IntVarP(&k, "top", "k", 10, "number of results to return")
	cmd.Flags().BoolVar(&disjunctive, "disjunctive", false, "use OR semantics instead of AND")
	return cmd
}
