package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate row
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases
	// shared between calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SchemaVersion returns the schema version of the open database
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (*semver.Version, error) {
	return schemaVersion(ctx, s.db)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Project operations

const projectColumns = `id, root_path, total_files, total_entities, index_version,
	last_run_id, last_indexed_at, created_at, updated_at`

func scanProject(row rowScanner) (*Project, error) {
	var project Project
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&project.ID, &project.RootPath, &project.TotalFiles, &project.TotalEntities,
		&project.IndexVersion, &project.LastRunID, &lastIndexedAt,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		project.LastIndexedAt = lastIndexedAt.Time
	}
	return &project, nil
}

func (s *SQLiteStorage) createProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		INSERT INTO projects (root_path, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root_path) DO NOTHING
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, project.RootPath, project.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", project.RootPath, ErrAlreadyExists)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	return s.createProjectWithQuerier(ctx, s.querier(), project)
}

func (s *SQLiteStorage) getProjectWithQuerier(ctx context.Context, q querier, rootPath string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE root_path = ?`
	return scanProject(q.QueryRowContext(ctx, query, rootPath))
}

func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return s.getProjectWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getProjectByIDWithQuerier(ctx context.Context, q querier, projectID int64) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(q.QueryRowContext(ctx, query, projectID))
}

func (s *SQLiteStorage) updateProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		UPDATE projects
		SET total_files = ?, total_entities = ?, index_version = ?, last_run_id = ?,
		    last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		project.TotalFiles, project.TotalEntities, project.IndexVersion, project.LastRunID,
		project.LastIndexedAt, now, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	return s.updateProjectWithQuerier(ctx, s.querier(), project)
}

// File operations

const fileColumns = `id, project_id, file_path, module_name, content_hash, mod_time,
	size_bytes, parse_error, last_indexed_at, created_at, updated_at`

func scanFile(row rowScanner) (*File, error) {
	var file File
	var hash []byte
	var moduleName, parseError sql.NullString
	err := row.Scan(
		&file.ID, &file.ProjectID, &file.FilePath, &moduleName,
		&hash, &file.ModTime, &file.SizeBytes, &parseError,
		&file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	file.ModuleName = moduleName.String
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (project_id, file_path, module_name, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			module_name = excluded.module_name,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.ProjectID, file.FilePath, file.ModuleName, file.ContentHash[:],
		file.ModTime, file.SizeBytes, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, projectID int64, filePath string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE project_id = ? AND file_path = ?`
	return scanFile(q.QueryRowContext(ctx, query, projectID, filePath))
}

func (s *SQLiteStorage) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), projectID, filePath)
}

func (s *SQLiteStorage) getFileByIDWithQuerier(ctx context.Context, q querier, fileID int64) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`
	return scanFile(q.QueryRowContext(ctx, query, fileID))
}

func (s *SQLiteStorage) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.getFileByIDWithQuerier(ctx, s.querier(), fileID)
}

// deleteFileWithQuerier removes a file; its entities go with it through the
// foreign key cascade
func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, projectID int64) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE project_id = ? ORDER BY file_path`
	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), projectID)
}

// Entity operations

const entityColumns = `id, file_id, kind, name, namespace, superclass, visibility,
	group_name, line, docstring, parameters, created_at`

func scanEntity(row rowScanner) (*Entity, error) {
	var e Entity
	err := row.Scan(
		&e.ID, &e.FileID, &e.Kind, &e.Name, &e.Namespace, &e.Superclass,
		&e.Visibility, &e.GroupName, &e.Line, &e.Docstring, &e.Parameters, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	defer func() { _ = rows.Close() }()

	entities := make([]*Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *SQLiteStorage) upsertEntityWithQuerier(ctx context.Context, q querier, e *Entity) error {
	query := `
		INSERT INTO entities (file_id, kind, name, namespace, superclass, visibility, group_name, line, docstring, parameters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, kind, name, line) DO UPDATE SET
			namespace = excluded.namespace,
			superclass = excluded.superclass,
			visibility = excluded.visibility,
			group_name = excluded.group_name,
			docstring = excluded.docstring,
			parameters = excluded.parameters
		RETURNING id
	`
	if e.Parameters == "" {
		e.Parameters = "[]"
	}
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		e.FileID, e.Kind, e.Name, e.Namespace, e.Superclass, e.Visibility,
		e.GroupName, e.Line, e.Docstring, e.Parameters, now).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	e.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEntity(ctx context.Context, entity *Entity) error {
	return s.upsertEntityWithQuerier(ctx, s.querier(), entity)
}

func (s *SQLiteStorage) getEntityWithQuerier(ctx context.Context, q querier, entityID int64) (*Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = ?`
	return scanEntity(q.QueryRowContext(ctx, query, entityID))
}

func (s *SQLiteStorage) GetEntity(ctx context.Context, entityID int64) (*Entity, error) {
	return s.getEntityWithQuerier(ctx, s.querier(), entityID)
}

func (s *SQLiteStorage) listEntitiesByFileWithQuerier(ctx context.Context, q querier, fileID int64) ([]*Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE file_id = ? ORDER BY line, id`
	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

func (s *SQLiteStorage) ListEntitiesByFile(ctx context.Context, fileID int64) ([]*Entity, error) {
	return s.listEntitiesByFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) deleteEntitiesByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM entities WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteEntitiesByFile(ctx context.Context, fileID int64) error {
	return s.deleteEntitiesByFileWithQuerier(ctx, s.querier(), fileID)
}

// lookupEntitiesWithQuerier finds entities whose name is exactly name.
// Modules are stored under their qualified name (My::Widget).
func (s *SQLiteStorage) lookupEntitiesWithQuerier(ctx context.Context, q querier, projectID int64, name string, kinds []string) ([]*Entity, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT e.id, e.file_id, e.kind, e.name, e.namespace, e.superclass, e.visibility,
		e.group_name, e.line, e.docstring, e.parameters, e.created_at
		FROM entities e
		JOIN files f ON e.file_id = f.id
		WHERE f.project_id = ? AND e.name = ?`)
	args := []any{projectID, name}
	if len(kinds) > 0 {
		sb.WriteString(" AND e.kind IN (" + placeholders(len(kinds)) + ")")
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	sb.WriteString(" ORDER BY f.file_path, e.line")

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}
	return scanEntities(rows)
}

func (s *SQLiteStorage) LookupEntities(ctx context.Context, projectID int64, name string, kinds []string) ([]*Entity, error) {
	return s.lookupEntitiesWithQuerier(ctx, s.querier(), projectID, name, kinds)
}

// Search operations

func (s *SQLiteStorage) searchTextWithQuerier(ctx context.Context, q querier, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	match := FTSQuery(query)
	if match == "" {
		return []TextResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT e.id, bm25(entities_fts) AS score
		FROM entities_fts
		JOIN entities e ON e.id = entities_fts.rowid
		JOIN files f ON e.file_id = f.id
		WHERE entities_fts MATCH ? AND f.project_id = ?`)
	args := []any{match, projectID}

	if filters != nil {
		if len(filters.Kinds) > 0 {
			sb.WriteString(" AND e.kind IN (" + placeholders(len(filters.Kinds)) + ")")
			for _, k := range filters.Kinds {
				args = append(args, k)
			}
		}
		if len(filters.Visibilities) > 0 {
			sb.WriteString(" AND e.visibility IN (" + placeholders(len(filters.Visibilities)) + ")")
			for _, v := range filters.Visibilities {
				args = append(args, v)
			}
		}
		if filters.Namespace != "" {
			sb.WriteString(" AND (e.namespace = ? OR e.namespace LIKE ? ESCAPE '\\')")
			args = append(args, filters.Namespace, escapeLike(filters.Namespace)+"::%")
		}
		if filters.Group != "" {
			sb.WriteString(" AND e.group_name = ?")
			args = append(args, filters.Group)
		}
	}

	// bm25() is lower-is-better
	sb.WriteString(" ORDER BY score LIMIT ?")
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var r TextResult
		var score float64
		if err := rows.Scan(&r.EntityID, &score); err != nil {
			return nil, err
		}
		r.BM25Score = -score
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStorage) SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return s.searchTextWithQuerier(ctx, s.querier(), projectID, query, limit, filters)
}

// FTSQuery turns free text into an FTS5 query: every whitespace separated
// term becomes a quoted string, so Perl names like My::Widget or $self->new
// are matched as phrases instead of parsed as query syntax. Terms are ANDed.
func FTSQuery(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, projectID int64) (*ProjectStatus, error) {
	project, err := s.getProjectByIDWithQuerier(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Project:       project,
		LastIndexedAt: project.LastIndexedAt,
		KindCounts:    make(map[string]int),
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(parse_error) FROM files WHERE project_id = ?
	`, projectID).Scan(&status.FilesCount, &status.FailedFiles)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT e.kind, COUNT(*) FROM entities e
		JOIN files f ON e.file_id = f.id
		WHERE f.project_id = ?
		GROUP BY e.kind
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		status.KindCounts[kind] = n
		status.EntitiesCount += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var fts string
	ftsErr := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='entities_fts'").Scan(&fts)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      ftsErr == nil,
	}
	if v, err := schemaVersion(ctx, q); err == nil {
		status.Health.SchemaVersion = v.String()
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), projectID)
}

// sqliteTx runs every Storage operation on one SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (t *sqliteTx) CreateProject(ctx context.Context, project *Project) error {
	return t.storage.createProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return t.storage.getProjectWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) UpdateProject(ctx context.Context, project *Project) error {
	return t.storage.updateProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), projectID, filePath)
}

func (t *sqliteTx) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return t.storage.getFileByIDWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) UpsertEntity(ctx context.Context, entity *Entity) error {
	return t.storage.upsertEntityWithQuerier(ctx, t.querier(), entity)
}

func (t *sqliteTx) GetEntity(ctx context.Context, entityID int64) (*Entity, error) {
	return t.storage.getEntityWithQuerier(ctx, t.querier(), entityID)
}

func (t *sqliteTx) ListEntitiesByFile(ctx context.Context, fileID int64) ([]*Entity, error) {
	return t.storage.listEntitiesByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) DeleteEntitiesByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteEntitiesByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) LookupEntities(ctx context.Context, projectID int64, name string, kinds []string) ([]*Entity, error) {
	return t.storage.lookupEntitiesWithQuerier(ctx, t.querier(), projectID, name, kinds)
}

func (t *sqliteTx) SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return t.storage.searchTextWithQuerier(ctx, t.querier(), projectID, query, limit, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
