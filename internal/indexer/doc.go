// Package indexer keeps a SQLite index of the documentation in a Perl
// source tree.
//
// # Basic Usage
//
//	idx := indexer.New(store)
//	stats, err := idx.IndexProject(ctx, "/path/to/dist", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: walk the tree, applying include and exclude globs
//     (gobwas/glob syntax over slash-separated relative paths). Hidden
//     directories are never entered.
//  2. Parse: read, hash and parse files concurrently, at most Workers at a
//     time.
//  3. Store: write files and their entities BatchSize files per
//     transaction, replacing whatever was stored for each file.
//  4. Prune: delete files that are no longer on disk.
//
// # Incremental Indexing
//
// Files whose SHA-256 content hash matches the stored hash are skipped.
// A file that fails to tokenize is still stored, with no entities and its
// parse error, so it is not retried until it changes.
//
//	stats1, _ := idx.IndexProject(ctx, root, cfg) // 40 indexed, 0 skipped
//	stats2, _ := idx.IndexProject(ctx, root, cfg) // 0 indexed, 40 skipped
//
// # Watch Mode
//
// Watch follows a tree with fsnotify and re-indexes changed files once
// events have been quiet for the debounce interval:
//
//	err := idx.Watch(ctx, root, cfg, 200*time.Millisecond, func(s *indexer.Statistics, err error) {
//	    log.Printf("run %s: %d files", s.RunID, s.FilesIndexed)
//	})
//
// Every run gets a UUID, recorded on the project as its last run.
package indexer
