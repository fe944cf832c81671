package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

const widgetSource = `package My::Widget;
use parent 'My::Base';

# Creates a widget.
sub new {
    my ($class, %args) = @_;
    return bless {%args}, $class;
}

1;
`

func setupTestStorage(t testing.TB) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupProject(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	createTestFile(t, dir, "lib/My/Widget.pm", widgetSource)
	createTestFile(t, dir, "bin/helper.pl", "sub helper { 1 }\n")
	createTestFile(t, dir, "README.md", "# not perl\n")
	return dir
}

func projectStatus(t *testing.T, store storage.Storage, dir string) *storage.ProjectStatus {
	t.Helper()
	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	project, err := store.GetProject(context.Background(), root)
	require.NoError(t, err)
	status, err := store.GetStatus(context.Background(), project.ID)
	require.NoError(t, err)
	return status
}

func TestNew(t *testing.T) {
	idx := New(setupTestStorage(t))
	assert.NotNil(t, idx.parser)
	assert.NotNil(t, idx.logger)
}

func TestIndexProject_Success(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	idx := New(store)

	stats, err := idx.IndexProject(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 3, stats.EntitiesExtracted)
	assert.NotEmpty(t, stats.RunID)
	assert.Empty(t, stats.ErrorMessages)

	status := projectStatus(t, store, dir)
	assert.Equal(t, 2, status.FilesCount)
	assert.Equal(t, 3, status.EntitiesCount)
	assert.Equal(t, 1, status.KindCounts["module"])
	assert.Equal(t, 2, status.KindCounts["function"])
	assert.Equal(t, stats.RunID, status.Project.LastRunID)
	assert.Equal(t, 2, status.Project.TotalFiles)

	file, err := store.GetFile(context.Background(), status.Project.ID, "lib/My/Widget.pm")
	require.NoError(t, err)
	assert.Equal(t, "My::Widget", file.ModuleName)
	assert.Nil(t, file.ParseError)

	entities, err := store.ListEntitiesByFile(context.Background(), file.ID)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "My::Widget", entities[0].Name)
	assert.Equal(t, "My::Base", entities[0].Superclass)
	assert.Equal(t, "new", entities[1].Name)
	assert.Equal(t, "Creates a widget.\n", entities[1].Docstring)
	assert.JSONEq(t, `[{"expr":"$class"},{"expr":"%args"}]`, entities[1].Parameters)
}

func TestIndexProject_EmptyProject(t *testing.T) {
	idx := New(setupTestStorage(t))

	stats, err := idx.IndexProject(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.FilesIndexed)
	assert.Zero(t, stats.EntitiesExtracted)
}

func TestIndexProject_IncrementalUpdate(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	idx := New(store)
	ctx := context.Background()

	_, err := idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)

	stats, err := idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesSkipped)

	createTestFile(t, dir, "bin/helper.pl", "sub helper { 1 }\nsub other { 2 }\n")
	stats, err = idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 2, stats.EntitiesExtracted)

	status := projectStatus(t, store, dir)
	assert.Equal(t, 4, status.EntitiesCount, "old entities of a changed file are replaced")
}

func TestIndexProject_RemovesDeletedFiles(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	idx := New(store)
	ctx := context.Background()

	_, err := idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "bin", "helper.pl")))
	stats, err := idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesRemoved)

	status := projectStatus(t, store, dir)
	assert.Equal(t, 1, status.FilesCount)
	assert.Equal(t, 2, status.EntitiesCount)
}

func TestIndexProject_WithParseErrors(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	createTestFile(t, dir, "lib/Bad.pm", "package Bad;\x00\x01\x02")
	idx := New(store)

	stats, err := idx.IndexProject(context.Background(), dir, nil)
	require.NoError(t, err, "a file that cannot be tokenized does not fail the run")
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.NotEmpty(t, stats.ErrorMessages)
	assert.Contains(t, stats.ErrorMessages[0], "lib/Bad.pm")

	status := projectStatus(t, store, dir)
	assert.Equal(t, 1, status.FailedFiles)

	file, err := store.GetFile(context.Background(), status.Project.ID, "lib/Bad.pm")
	require.NoError(t, err)
	require.NotNil(t, file.ParseError)
	assert.Contains(t, *file.ParseError, "binary")

	stats, err = idx.IndexProject(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesSkipped, "failed files are not retried until they change")
}

func TestIndexProject_BatchProcessing(t *testing.T) {
	store := setupTestStorage(t)
	dir := t.TempDir()
	for i := range 25 {
		createTestFile(t, dir, filepath.Join("lib", "M"+string(rune('a'+i))+".pm"), "sub f { 1 }\n")
	}
	idx := New(store)

	stats, err := idx.IndexProject(context.Background(), dir, &Config{Workers: 3, BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 25, stats.FilesIndexed)
	assert.Equal(t, 25, stats.EntitiesExtracted)
}

func TestIndexProject_InvalidPattern(t *testing.T) {
	idx := New(setupTestStorage(t))

	_, err := idx.IndexProject(context.Background(), t.TempDir(), &Config{Exclude: []string{"[oops"}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestIndexProject_ContextCancellation(t *testing.T) {
	idx := New(setupTestStorage(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.IndexProject(ctx, setupProject(t), nil)
	assert.Error(t, err)
}

func TestIndexFiles(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	idx := New(store)
	ctx := context.Background()

	_, err := idx.IndexProject(ctx, dir, nil)
	require.NoError(t, err)

	createTestFile(t, dir, "lib/My/Widget.pm", "package My::Widget;\n1;\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "bin", "helper.pl")))

	stats, err := idx.IndexFiles(ctx, dir, []string{
		filepath.Join(dir, "lib", "My", "Widget.pm"),
		"bin/helper.pl",
		"README.md",
		"/somewhere/else.pm",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Equal(t, 1, stats.EntitiesExtracted)

	status := projectStatus(t, store, dir)
	assert.Equal(t, 1, status.FilesCount)
	assert.Equal(t, 1, status.EntitiesCount)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "lib/A.pm", "1;")
	createTestFile(t, dir, "lib/A.pod", "=pod")
	createTestFile(t, dir, "t/basic.t", "1;")
	createTestFile(t, dir, "script.pl", "1;")
	createTestFile(t, dir, "blib/lib/A.pm", "1;")
	createTestFile(t, dir, ".git/hooks/x.pl", "1;")
	createTestFile(t, dir, "Makefile", "all:")

	m, err := newMatcher(DefaultConfig().Include, []string{"blib/**"})
	require.NoError(t, err)

	files, err := discoverFiles(context.Background(), dir, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/A.pm", "lib/A.pod", "script.pl", "t/basic.t"}, files)
}

func TestMatcher(t *testing.T) {
	m, err := newMatcher([]string{"lib/**.pm"}, []string{"**/Private/**", "lib/Skip.pm"})
	require.NoError(t, err)

	assert.True(t, m.Match("lib/My/Widget.pm"))
	assert.False(t, m.Match("bin/tool.pm"))
	assert.False(t, m.Match("lib/Skip.pm"))
	assert.False(t, m.Match("lib/My/Private/Thing.pm"))

	assert.False(t, m.SkipDir("."))
	assert.True(t, m.SkipDir(".git"))
	assert.True(t, m.SkipDir("lib/My/Private"))
	assert.False(t, m.SkipDir("lib/My"))
}

func TestRelativePath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "src", "dist")

	rel, ok := relativePath(root, filepath.Join(root, "lib", "A.pm"))
	assert.True(t, ok)
	assert.Equal(t, "lib/A.pm", rel)

	rel, ok = relativePath(root, "lib/A.pm")
	assert.True(t, ok)
	assert.Equal(t, "lib/A.pm", rel)

	_, ok = relativePath(root, filepath.Join(string(filepath.Separator), "src", "other", "A.pm"))
	assert.False(t, ok)

	_, ok = relativePath(root, root)
	assert.False(t, ok)
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.False(t, l.Busy())
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Busy())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}

func TestWatch(t *testing.T) {
	store := setupTestStorage(t)
	dir := setupProject(t)
	idx := New(store)

	_, err := idx.IndexProject(context.Background(), dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan *Statistics, 1)
	done := make(chan error, 1)
	go func() {
		done <- idx.Watch(ctx, dir, nil, 20*time.Millisecond, func(s *Statistics, err error) {
			if err != nil {
				return
			}
			select {
			case runs <- s:
			default:
			}
		})
	}()

	// The watcher registers directories asynchronously; keep changing the
	// file until a run reports it.
	var got *Statistics
	for i := 0; i < 50 && got == nil; i++ {
		createTestFile(t, dir, "lib/My/Widget.pm", widgetSource+"# revision "+string(rune('a'+i%26))+"\n")
		select {
		case s := <-runs:
			if s.FilesIndexed > 0 {
				got = s
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
	cancel()

	require.NotNil(t, got, "watcher never re-indexed the changed file")
	assert.Equal(t, 1, got.FilesIndexed)
	assert.NoError(t, <-done)
}
