package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func createTestFile(t *testing.T, s Storage, path string) (*Project, *File) {
	t.Helper()
	ctx := context.Background()

	project, err := s.GetProject(ctx, "/test/path")
	if err == ErrNotFound {
		project = &Project{RootPath: "/test/path", IndexVersion: "1.0.0"}
		require.NoError(t, s.CreateProject(ctx, project))
	} else {
		require.NoError(t, err)
	}

	file := &File{
		ProjectID:   project.ID,
		FilePath:    path,
		ModuleName:  "My::Widget",
		ContentHash: [32]byte{1, 2, 3},
		ModTime:     time.Now(),
		SizeBytes:   100,
	}
	require.NoError(t, s.UpsertFile(ctx, file))
	return project, file
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	assert.NoError(t, storage.Close())
}

func TestCreateProject(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	project := &Project{RootPath: "/test/path", IndexVersion: "1.0.0"}

	require.NoError(t, storage.CreateProject(ctx, project))
	assert.Greater(t, project.ID, int64(0))

	duplicate := &Project{RootPath: "/test/path"}
	err := storage.CreateProject(ctx, duplicate)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetProject_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetProject(context.Background(), "/nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProject(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	project := &Project{RootPath: "/test/path", IndexVersion: "1.0.0"}
	require.NoError(t, storage.CreateProject(ctx, project))

	project.TotalFiles = 10
	project.TotalEntities = 100
	project.LastRunID = "run-1"
	project.LastIndexedAt = time.Now()
	require.NoError(t, storage.UpdateProject(ctx, project))

	updated, err := storage.GetProject(ctx, "/test/path")
	require.NoError(t, err)
	assert.Equal(t, 10, updated.TotalFiles)
	assert.Equal(t, 100, updated.TotalEntities)
	assert.Equal(t, "run-1", updated.LastRunID)
	assert.False(t, updated.LastIndexedAt.IsZero())

	missing := &Project{ID: 9999}
	assert.ErrorIs(t, storage.UpdateProject(ctx, missing), ErrNotFound)
}

func TestUpsertFile(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	project, file := createTestFile(t, storage, "lib/My/Widget.pm")
	firstID := file.ID
	assert.Greater(t, firstID, int64(0))

	msg := "tokenize: binary file"
	again := &File{
		ProjectID:   project.ID,
		FilePath:    "lib/My/Widget.pm",
		ContentHash: [32]byte{9},
		ModTime:     time.Now(),
		ParseError:  &msg,
	}
	require.NoError(t, storage.UpsertFile(ctx, again))
	assert.Equal(t, firstID, again.ID, "upsert keeps the row id")

	got, err := storage.GetFile(ctx, project.ID, "lib/My/Widget.pm")
	require.NoError(t, err)
	assert.Equal(t, [32]byte{9}, got.ContentHash)
	require.NotNil(t, got.ParseError)
	assert.Equal(t, msg, *got.ParseError)
	assert.Empty(t, got.ModuleName)

	byID, err := storage.GetFileByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, got.FilePath, byID.FilePath)
}

func TestGetFile_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetFile(context.Background(), 1, "nope.pm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteFiles(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	project, b := createTestFile(t, storage, "lib/B.pm")
	createTestFile(t, storage, "lib/A.pm")

	files, err := storage.ListFiles(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "lib/A.pm", files[0].FilePath)
	assert.Equal(t, "lib/B.pm", files[1].FilePath)

	e := &Entity{FileID: b.ID, Kind: "function", Name: "run", Line: 3}
	require.NoError(t, storage.UpsertEntity(ctx, e))

	require.NoError(t, storage.DeleteFile(ctx, b.ID))
	files, err = storage.ListFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = storage.GetEntity(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound, "entities cascade with their file")
}

func TestUpsertEntity(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, file := createTestFile(t, storage, "lib/My/Widget.pm")

	e := &Entity{
		FileID:     file.ID,
		Kind:       "function",
		Name:       "new",
		Visibility: "public",
		Line:       16,
		Docstring:  "Creates a widget.\n",
	}
	require.NoError(t, storage.UpsertEntity(ctx, e))
	assert.Greater(t, e.ID, int64(0))
	assert.Equal(t, "[]", e.Parameters)

	for i := 0; i < 5; i++ {
		again := &Entity{
			FileID:     file.ID,
			Kind:       "function",
			Name:       "new",
			Visibility: "private",
			Line:       16,
			Docstring:  "Builds a widget.\n",
		}
		require.NoError(t, storage.UpsertEntity(ctx, again), "iteration %d", i)
		assert.Equal(t, e.ID, again.ID)
	}

	entities, err := storage.ListEntitiesByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "private", entities[0].Visibility)
	assert.Equal(t, "Builds a widget.\n", entities[0].Docstring)

	results, err := storage.SearchText(ctx, file.ProjectID, "creates", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "update replaces the indexed docstring")

	results, err = storage.SearchText(ctx, file.ProjectID, "builds", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDeleteEntitiesByFile(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, file := createTestFile(t, storage, "lib/X.pm")
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, storage.UpsertEntity(ctx, &Entity{
			FileID: file.ID, Kind: "function", Name: name, Line: i + 1, Docstring: "shared words",
		}))
	}

	require.NoError(t, storage.DeleteEntitiesByFile(ctx, file.ID))

	entities, err := storage.ListEntitiesByFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Empty(t, entities)

	results, err := storage.SearchText(ctx, file.ProjectID, "shared", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "deleted entities leave the FTS index")
}

func TestRecordConversion(t *testing.T) {
	r := types.Record{
		Kind:       types.KindFunction,
		Name:       "new",
		Visibility: types.VisibilityPublic,
		Parameters: []types.Parameter{{Expr: "$class"}, {Expr: "%args"}},
		Group:      "Constructors",
		SourceID:   "lib/My/Widget.pm",
		Line:       16,
		Docstring:  "Creates a widget.\n",
	}

	e, err := FromRecord(r, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.FileID)
	assert.Equal(t, "function", e.Kind)
	assert.Equal(t, "Constructors", e.GroupName)
	assert.JSONEq(t, `[{"expr":"$class"},{"expr":"%args"}]`, e.Parameters)

	assert.Equal(t, r, e.ToRecord("lib/My/Widget.pm"))

	bare, err := FromRecord(types.Record{Kind: types.KindComment, Line: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "[]", bare.Parameters)
	assert.Nil(t, bare.ToRecord("x").Parameters)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	project := &Project{RootPath: "/test"}
	require.NoError(t, tx.CreateProject(ctx, project))

	inTx, err := tx.GetProject(ctx, "/test")
	require.NoError(t, err, "transaction sees its own writes")
	assert.Equal(t, project.ID, inTx.ID)

	require.NoError(t, tx.Commit())

	retrieved, err := storage.GetProject(ctx, "/test")
	require.NoError(t, err)
	assert.Equal(t, project.ID, retrieved.ID)

	tx2, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.CreateProject(ctx, &Project{RootPath: "/test2"}))
	require.NoError(t, tx2.Rollback())

	_, err = storage.GetProject(ctx, "/test2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTx_NestedNotSupported(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	tx, err := storage.BeginTx(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(context.Background())
	assert.Error(t, err)
	assert.NoError(t, tx.Close())
}
