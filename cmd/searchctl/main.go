// searchctl is the operations CLI for the search subsystem: rebuild the
// index, run ad-hoc searches and suggestions, and print analytics
// reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"inkwell/search/internal/cache"
	"inkwell/search/internal/config"
	"inkwell/search/internal/index"
	"inkwell/search/internal/match"
	"inkwell/search/internal/search"
	"inkwell/search/internal/store"
	"inkwell/search/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Operate the inkwell search subsystem",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRebuildCmd(), newSearchCmd(), newSuggestCmd(), newReportCmd())
	return root
}

// env holds the wired-up subsystem for one command invocation.
type env struct {
	cfg     config.Config
	service *search.Service
	builder *index.Builder
	cleanup func()
}

// setup connects Postgres and Redis and assembles the search service.
// Redis being down degrades to an in-process cache instead of failing.
func setup(ctx context.Context) (*env, error) {
	cfg := config.Load()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	cleanup := pool.Close

	var backend cache.Cache
	redisCache, err := cache.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Printf("searchctl: redis unavailable, using in-process cache: %v", err)
		backend = cache.NewMemory()
	} else {
		backend = redisCache
		prev := cleanup
		cleanup = func() {
			redisCache.Close()
			prev()
		}
	}

	source := store.NewPostgresSource(pool)
	builder := index.NewBuilder(source, index.NewCache(backend, cfg.IndexTTL))

	if cfg.MeiliURL != "" {
		mirror := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		builder.SetMirror(mirror)
		prev := cleanup
		cleanup = func() {
			mirror.Close()
			prev()
		}
	}

	matchCfg := match.DefaultConfig()
	matchCfg.PhoneticEnabled = cfg.PhoneticEnabled

	svc := search.New(
		builder,
		search.NewResultCache(backend, cfg.CacheTTL, cfg.CacheEnabled),
		telemetry.NewPG(pool),
		search.Settings{
			Match:            matchCfg,
			DefaultThreshold: cfg.Threshold,
			MaxResults:       cfg.MaxResults,
			MaxQueryLen:      cfg.MaxQueryLen,
		},
	)

	return &env{cfg: cfg, service: svc, builder: builder, cleanup: cleanup}, nil
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [posts|tags|categories|all]",
		Short: "Rebuild index snapshots from the content store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.cleanup()

			target := "all"
			if len(args) == 1 {
				target = args[0]
			}

			start := time.Now()
			if target == "all" {
				if err := e.builder.RebuildAll(ctx); err != nil {
					return err
				}
			} else {
				typ := index.Type(target)
				valid := false
				for _, known := range index.Types {
					if typ == known {
						valid = true
					}
				}
				if !valid {
					return fmt.Errorf("unknown index type %q", target)
				}
				if err := e.builder.Rebuild(ctx, typ); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %s in %s\n", target, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var (
		searchType string
		category   string
		author     string
		threshold  int
		limit      int
		offset     int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a fuzzy search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.cleanup()

			q := search.Query{
				Text:      strings.Join(args, " "),
				Filters:   search.Filters{Category: category, Author: author},
				Threshold: threshold,
				Limit:     limit,
				Offset:    offset,
			}

			var resp search.Response
			switch searchType {
			case "posts":
				resp = e.service.Search(ctx, q)
			case "tags":
				resp = e.service.SearchTags(ctx, q)
			case "categories":
				resp = e.service.SearchCategories(ctx, q)
			default:
				return fmt.Errorf("unknown search type %q", searchType)
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d results (showing %d)\n", resp.Total, len(resp.Results))
			for i, r := range resp.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%3d] %s (#%d %s)\n", i+1, r.Score, r.Title, r.ID, r.Type)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&searchType, "type", "posts", "search type: posts, tags, or categories")
	cmd.Flags().StringVar(&category, "category", "", "filter posts by category name")
	cmd.Flags().StringVar(&author, "author", "", "filter posts by author name")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "minimum score 0-100 (0 = configured default)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = configured default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response as JSON")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Print title suggestions for a query prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.cleanup()

			for _, title := range e.service.Suggest(ctx, strings.Join(args, " "), limit) {
				fmt.Fprintln(cmd.OutOrStdout(), title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum suggestions")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		days int
		topN int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print search analytics for the last N days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			pool, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			since := time.Now().AddDate(0, 0, -days)
			report, err := telemetry.NewReporter(pool).BuildReport(ctx, since, topN)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "searches since %s: %d\n", since.Format("2006-01-02"), report.TotalSearches)
			fmt.Fprintf(out, "avg execution: %.2fms\n", report.AvgExecutionMS)
			fmt.Fprintf(out, "click-through rate: %.1f%%\n", report.ClickThroughRate*100)
			fmt.Fprintf(out, "zero-result searches: %d\n", report.ZeroResultCount)
			if len(report.TopQueries) > 0 {
				fmt.Fprintln(out, "top queries:")
				for _, qc := range report.TopQueries {
					fmt.Fprintf(out, "  %4d  %s\n", qc.Count, qc.Query)
				}
			}
			if len(report.ZeroResultTop) > 0 {
				fmt.Fprintln(out, "top zero-result queries:")
				for _, qc := range report.ZeroResultTop {
					fmt.Fprintf(out, "  %4d  %s\n", qc.Count, qc.Query)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "reporting window in days")
	cmd.Flags().IntVar(&topN, "top", 10, "number of top queries to list")
	return cmd
}
