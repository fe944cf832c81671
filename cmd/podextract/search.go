package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcartmell/yard-perl-plugin/internal/searcher"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search indexed documentation",
	Long: `Search runs a keyword query over the names and documentation of an
indexed tree. Every term must match; results are ranked by BM25 and scored
relative to the best match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("path")
		limit, _ := cmd.Flags().GetInt("limit")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		visibilities, _ := cmd.Flags().GetStringSlice("visibility")
		namespace, _ := cmd.Flags().GetString("namespace")
		group, _ := cmd.Flags().GetString("group")
		pattern, _ := cmd.Flags().GetString("file")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		format, _ := cmd.Flags().GetString("format")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		project, err := loadProject(ctx, store, root)
		if err != nil {
			return err
		}

		s, err := searcher.NewWithOptions(store, searcher.Options{CacheSize: cfg.CacheSize, CacheTTL: cfg.CacheTTL})
		if err != nil {
			return err
		}
		resp, err := s.Search(ctx, searcher.SearchRequest{
			ProjectID: project.ID,
			Query:     strings.Join(args, " "),
			Limit:     limit,
			Filters: &storage.SearchFilters{
				Kinds:        kinds,
				Visibilities: visibilities,
				Namespace:    namespace,
				Group:        group,
			},
			FilePattern:  pattern,
			MinRelevance: minScore,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format != "text" {
			return writeStructured(out, format, resp.Results)
		}
		renderSearch(out, resp)
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "Show the documentation of a package or sub by exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("path")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		format, _ := cmd.Flags().GetString("format")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		project, err := loadProject(ctx, store, root)
		if err != nil {
			return err
		}

		records, err := searcher.NewSearcher(store).Lookup(ctx, project.ID, args[0], kinds)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("%s: not found in %s", args[0], project.RootPath)
		}

		out := cmd.OutOrStdout()
		if format != "text" {
			return writeStructured(out, format, records)
		}
		for _, r := range records {
			renderRecord(out, r)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("path", ".", "root of the indexed tree")
	searchCmd.Flags().IntP("limit", "n", searcher.DefaultLimit, "maximum number of results (1-100)")
	searchCmd.Flags().StringSlice("kind", nil, "only these entity kinds (module, function, docblock, comment)")
	searchCmd.Flags().StringSlice("visibility", nil, "only subs with these visibilities")
	searchCmd.Flags().String("namespace", "", "only packages in this namespace or below")
	searchCmd.Flags().String("group", "", "only entities in this @group")
	searchCmd.Flags().String("file", "", "glob over file paths, e.g. 'lib/My/**'")
	searchCmd.Flags().Float64("min-score", 0, "drop results scoring below this (0-1)")
	searchCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(searchCmd)

	lookupCmd.Flags().String("path", ".", "root of the indexed tree")
	lookupCmd.Flags().StringSlice("kind", nil, "only these entity kinds (module, function)")
	lookupCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(lookupCmd)
}

// loadProject resolves root and returns its stored project
func loadProject(ctx context.Context, store storage.Storage, root string) (*storage.Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	project, err := store.GetProject(ctx, abs)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s is not indexed; run 'podextract index %s' first", abs, root)
	}
	return project, err
}

func renderSearch(w io.Writer, resp *searcher.SearchResponse) {
	if len(resp.Results) == 0 {
		dimColor.Fprintln(w, "no matches")
		return
	}
	for _, r := range resp.Results {
		var name string
		switch r.Entity.Kind {
		case "module":
			name = moduleColor.Sprint(r.Entity.Name)
		case "function":
			name = functionColor.Sprint(r.Entity.Name)
		default:
			name = dimColor.Sprint(r.Entity.Kind)
		}
		fmt.Fprintf(w, "%2d. %s %s %s\n", r.Rank, name,
			dimColor.Sprintf("%s:%d", r.File.Path, r.File.Line),
			dimColor.Sprintf("(%.2f)", r.RelevanceScore))
		if r.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", r.Snippet)
		}
	}
}
