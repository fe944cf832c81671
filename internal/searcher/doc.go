// Package searcher answers keyword queries over indexed Perl documentation.
//
// Queries go to the SQLite FTS5 index maintained by the storage package,
// which covers entity names, namespaces and rendered docstrings. Rows come
// back ordered by BM25; the searcher loads the entity and its file, scores
// each result relative to the best row (the top result scores 1.0) and cuts
// a one-line snippet around the first query term.
//
//	s := searcher.NewSearcher(store)
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    ProjectID: project.ID,
//	    Query:     "frobnicate widget",
//	    Filters:   &storage.SearchFilters{Kinds: []string{"function"}},
//	    UseCache:  true,
//	})
//
// FilePattern restricts results to files matching a glob such as
// "lib/My/**". Lookup resolves an exact name (a sub or a qualified package
// name) to its records.
//
// # Caching
//
// Responses are cached in an LRU keyed by a SHA-256 of the request. Entries
// expire after the configured TTL; InvalidateCache drops everything and is
// called whenever an index run changes the project.
package searcher
