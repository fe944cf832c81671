package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV110Up,
		Down:    migrationV110Down,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    root_path TEXT NOT NULL UNIQUE,
    total_files INTEGER DEFAULT 0,
    total_entities INTEGER DEFAULT 0,
    index_version TEXT NOT NULL,
    last_indexed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    file_path TEXT NOT NULL,
    module_name TEXT,
    content_hash BLOB NOT NULL,
    mod_time TIMESTAMP,
    size_bytes INTEGER,
    parse_error TEXT,
    last_indexed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    UNIQUE(project_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(content_hash);
CREATE INDEX IF NOT EXISTS idx_files_module ON files(module_name);

-- One row per extracted comment, POD block, package or sub
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL,
    kind TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    namespace TEXT NOT NULL DEFAULT '',
    superclass TEXT NOT NULL DEFAULT '',
    visibility TEXT NOT NULL DEFAULT '',
    group_name TEXT NOT NULL DEFAULT '',
    line INTEGER NOT NULL,
    docstring TEXT NOT NULL DEFAULT '',
    parameters TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_id);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_unique ON entities(file_id, kind, name, line);

CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
    name, namespace, docstring,
    content='entities',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
    INSERT INTO entities_fts(rowid, name, namespace, docstring)
    VALUES (new.id, new.name, new.namespace, new.docstring);
END;

CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, name, namespace, docstring)
    VALUES ('delete', old.id, old.name, old.namespace, old.docstring);
END;

CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, name, namespace, docstring)
    VALUES ('delete', old.id, old.name, old.namespace, old.docstring);
    INSERT INTO entities_fts(rowid, name, namespace, docstring)
    VALUES (new.id, new.name, new.namespace, new.docstring);
END;
`

const migrationV1Down = `
DROP TRIGGER IF EXISTS entities_au;
DROP TRIGGER IF EXISTS entities_ad;
DROP TRIGGER IF EXISTS entities_ai;

DROP TABLE IF EXISTS entities_fts;
DROP TABLE IF EXISTS entities;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS projects;
DROP TABLE IF EXISTS schema_version;
`

// 1.1.0 records which indexing run last touched a project
const migrationV110Up = `
ALTER TABLE projects ADD COLUMN last_run_id TEXT NOT NULL DEFAULT '';
`

const migrationV110Down = `
ALTER TABLE projects DROP COLUMN last_run_id;
`

// SchemaVersion returns the highest applied migration version, or 0.0.0
// for a fresh database
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	return schemaVersion(ctx, db)
}

func schemaVersion(ctx context.Context, q querier) (*semver.Version, error) {
	var tableName string
	err := q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := q.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// applied_at has second resolution, so order by version rather than time
	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// The 1.0.0 down migration drops schema_version itself
	var tableName string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}
