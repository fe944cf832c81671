// Package storage provides SQLite-based persistence for extracted Perl
// documentation.
//
// # Database Schema
//
// Tables:
//   - projects: one row per indexed source tree (root path, totals, last run)
//   - files: file paths, SHA-256 hashes and the last parse error
//   - entities: comments, POD blocks, packages and subs with their rendered
//     documentation
//   - entities_fts: FTS5 index over entity name, namespace and docstring,
//     kept in sync by triggers
//
// Schema changes are applied by ApplyMigrations in semver order.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("podextract.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	for _, r := range result.Records() {
//	    e, _ := storage.FromRecord(r, file.ID)
//	    if err := tx.UpsertEntity(ctx, e); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Full-Text Search
//
// SearchText ranks entities with bm25(); scores are negated so higher is
// better. Query text is quoted term by term (see FTSQuery), so Perl names
// need no escaping:
//
//	results, err := store.SearchText(ctx, projectID, "My::Widget frob", 10, nil)
//
// # Build Tags
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
package storage
