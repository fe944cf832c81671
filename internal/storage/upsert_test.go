package storage

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWidget(t *testing.T, s *SQLiteStorage) (*Project, *File) {
	t.Helper()
	ctx := context.Background()
	project, file := createTestFile(t, s, "lib/My/Widget.pm")

	entities := []*Entity{
		{FileID: file.ID, Kind: "docblock", Line: 1, Docstring: "= NAME\n\nMy::Widget - widget things\n"},
		{FileID: file.ID, Kind: "module", Name: "My::Widget", Namespace: "My", Superclass: "My::Base", Line: 11, Docstring: "Widgets do things.\n"},
		{FileID: file.ID, Kind: "function", Name: "new", Visibility: "public", Line: 16, Docstring: "Creates a widget.\n"},
		{FileID: file.ID, Kind: "function", Name: "frobnicate", Visibility: "public", GroupName: "Actions", Line: 34, Docstring: "Frobs the widget.\n"},
		{FileID: file.ID, Kind: "function", Name: "_internal", Visibility: "protected", Line: 21},
	}
	for _, e := range entities {
		require.NoError(t, s.UpsertEntity(ctx, e))
	}
	return project, file
}

func TestSearchText(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	project, _ := seedWidget(t, store)

	results, err := store.SearchText(ctx, project.ID, "frobs", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	e, err := store.GetEntity(ctx, results[0].EntityID)
	require.NoError(t, err)
	assert.Equal(t, "frobnicate", e.Name)
	assert.Greater(t, results[0].BM25Score, 0.0)

	results, err = store.SearchText(ctx, project.ID, "My::Widget", 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results, "qualified names are searched as phrases")

	results, err = store.SearchText(ctx, project.ID, `widget "AND`, 10, nil)
	require.NoError(t, err, "query syntax characters are quoted")
	assert.Empty(t, results)

	results, err = store.SearchText(ctx, project.ID, "   ", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.SearchText(ctx, project.ID+1, "frobs", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "other projects are not searched")
}

func TestSearchText_Filters(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	project, _ := seedWidget(t, store)

	all, err := store.SearchText(ctx, project.ID, "widget", 10, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	fns, err := store.SearchText(ctx, project.ID, "widget", 10, &SearchFilters{Kinds: []string{"function"}})
	require.NoError(t, err)
	assert.Len(t, fns, 2)

	grouped, err := store.SearchText(ctx, project.ID, "widget", 10, &SearchFilters{Group: "Actions"})
	require.NoError(t, err)
	assert.Len(t, grouped, 1)

	ns, err := store.SearchText(ctx, project.ID, "widget", 10, &SearchFilters{Namespace: "My"})
	require.NoError(t, err)
	assert.Len(t, ns, 1)

	public, err := store.SearchText(ctx, project.ID, "widget", 1, &SearchFilters{Visibilities: []string{"public"}})
	require.NoError(t, err)
	assert.Len(t, public, 1, "limit applies")
}

func TestLookupEntities(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	project, _ := seedWidget(t, store)

	got, err := store.LookupEntities(ctx, project.ID, "My::Widget", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "My::Base", got[0].Superclass)

	got, err = store.LookupEntities(ctx, project.ID, "new", []string{"module"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.LookupEntities(ctx, project.ID, "ne", nil)
	require.NoError(t, err)
	assert.Empty(t, got, "lookup is exact")
}

func TestGetStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	project, _ := seedWidget(t, store)

	msg := "tokenize: binary file"
	require.NoError(t, store.UpsertFile(ctx, &File{
		ProjectID: project.ID, FilePath: "bin/blob.pl", ParseError: &msg,
	}))

	status, err := store.GetStatus(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.FilesCount)
	assert.Equal(t, 1, status.FailedFiles)
	assert.Equal(t, 5, status.EntitiesCount)
	assert.Equal(t, 3, status.KindCounts["function"])
	assert.Equal(t, 1, status.KindCounts["module"])
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.FTSIndexBuilt)
	assert.Equal(t, CurrentSchemaVersion, status.Health.SchemaVersion)

	_, err = store.GetStatus(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrations_Applied(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	v, err := SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.True(t, v.Equal(semver.MustParse(CurrentSchemaVersion)))

	var ddl string
	err = store.db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type='table' AND name='projects'").Scan(&ddl)
	require.NoError(t, err)
	assert.Contains(t, ddl, "last_run_id")

	require.NoError(t, ApplyMigrations(ctx, store.db), "re-applying is a no-op")
}

func TestRollbackMigration(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, RollbackMigration(ctx, store.db))

	v, err := SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, RollbackMigration(ctx, store.db))
	v, err = SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	assert.Error(t, RollbackMigration(ctx, store.db))

	require.NoError(t, ApplyMigrations(ctx, store.db))
	v, err = SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"My::Widget" "new"`, FTSQuery("My::Widget  new"))
	assert.Equal(t, `"say ""hi"""`, FTSQuery(`say "hi"`))
	assert.Empty(t, FTSQuery(" \t"))
}
