package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcartmell/yard-perl-plugin/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index [PATH]",
	Short: "Index the documentation of a Perl source tree",
	Long: `Index walks PATH (default: the working directory), extracts the
documentation of every file matching the include patterns and stores it in
the index database. Unchanged files are skipped and deleted files removed,
so re-running index is cheap.

With --watch the tree is watched after the initial run and changed files are
re-indexed once edits settle for the debounce interval.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		watch, _ := cmd.Flags().GetBool("watch")
		out := cmd.OutOrStdout()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := cfg.NewParser(logger)
		if err != nil {
			return err
		}
		idx := indexer.NewWithParser(store, p, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		icfg := cfg.IndexerConfig()
		stats, err := idx.IndexProject(ctx, root, icfg)
		if err != nil {
			return err
		}
		renderStats(out, stats)

		if !watch {
			return nil
		}
		return idx.Watch(ctx, root, icfg, cfg.Debounce, func(stats *indexer.Statistics, err error) {
			if err != nil {
				logger.Error("re-index failed", "error", err)
				return
			}
			renderStats(out, stats)
		})
	},
}

func init() {
	indexCmd.Flags().Int("workers", 0, "concurrent parsers (default: number of CPUs)")
	indexCmd.Flags().Int("batch-size", 0, "files committed per transaction (default: 20)")
	indexCmd.Flags().StringSlice("include", nil, "glob patterns of files to index")
	indexCmd.Flags().StringSlice("exclude", nil, "glob patterns of files or directories to skip")
	indexCmd.Flags().BoolP("watch", "w", false, "keep watching the tree and re-index changes")
	indexCmd.Flags().Duration("debounce", 0, "quiet period before a watched change is indexed (default: 200ms)")
	rootCmd.AddCommand(indexCmd)
}
