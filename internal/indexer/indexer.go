package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mcartmell/yard-perl-plugin/internal/parser"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// ErrInvalidPattern is returned when an include or exclude glob does not compile
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Indexer coordinates the indexing pipeline: discover -> parse -> store
type Indexer struct {
	parser  *parser.Parser
	storage storage.Storage
	logger  *slog.Logger
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int      // Number of concurrent parsers (default: runtime.NumCPU())
	BatchSize int      // Number of files to commit per transaction (default: 20)
	Include   []string // Globs over slash-separated relative paths (default: Perl sources)
	Exclude   []string // Globs that win over Include; a match on "dir/" prunes the directory
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *Config {
	return &Config{
		Workers:   runtime.NumCPU(),
		BatchSize: 20,
		Include:   []string{"**.pm", "**.pl", "**.pod", "**.t"},
	}
}

// Statistics contains statistics about one indexing run
type Statistics struct {
	RunID             string
	FilesIndexed      int
	FilesSkipped      int // unchanged since the last run
	FilesFailed       int // unreadable, or recorded with a parse error
	FilesRemoved      int
	EntitiesExtracted int
	Duration          time.Duration
	ErrorMessages     []string
}

// New creates an Indexer with a default Parser
func New(store storage.Storage) *Indexer {
	return NewWithParser(store, parser.New(), nil)
}

// NewWithParser creates an Indexer. A nil logger selects slog.Default().
func NewWithParser(store storage.Storage, p *parser.Parser, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{parser: p, storage: store, logger: logger}
}

// fileResult is one parsed file waiting to be written
type fileResult struct {
	relPath string
	hash    [32]byte
	modTime time.Time
	size    int64
	result  *types.ParseResult
}

// IndexProject indexes every matching file under rootPath. Files whose
// content hash is unchanged are skipped, and files that disappeared since
// the last run are removed from the index.
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*Statistics, error) {
	config = normalizeConfig(config)
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	m, err := newMatcher(config.Include, config.Exclude)
	if err != nil {
		return nil, err
	}

	project, err := idx.getOrCreateProject(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	files, err := discoverFiles(ctx, root, m)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	return idx.run(ctx, project, files, config, true)
}

// IndexFiles re-indexes the given paths of an already indexed project.
// Paths are absolute or relative to rootPath; paths that no longer exist
// are removed from the index and paths the patterns reject are ignored.
func (idx *Indexer) IndexFiles(ctx context.Context, rootPath string, paths []string, config *Config) (*Statistics, error) {
	config = normalizeConfig(config)
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	m, err := newMatcher(config.Include, config.Exclude)
	if err != nil {
		return nil, err
	}

	project, err := idx.getOrCreateProject(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		rel, ok := relativePath(root, p)
		if !ok || seen[rel] || !m.Match(rel) {
			continue
		}
		seen[rel] = true
		files = append(files, rel)
	}
	slices.Sort(files)

	return idx.run(ctx, project, files, config, false)
}

func normalizeConfig(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	c := *config
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if len(c.Include) == 0 {
		c.Include = DefaultConfig().Include
	}
	return &c
}

// run parses files concurrently, then writes them in batches. With prune,
// stored files missing from files are deleted.
func (idx *Indexer) run(ctx context.Context, project *storage.Project, files []string, config *Config, prune bool) (*Statistics, error) {
	startTime := time.Now()
	stats := &Statistics{
		RunID:         uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}
	logger := idx.logger.With("run", stats.RunID, "root", project.RootPath)
	logger.Info("indexing started", "files", len(files))

	stored, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	known := make(map[string]*storage.File, len(stored))
	for _, f := range stored {
		known[f.FilePath] = f
	}

	results, removed, err := idx.parseFiles(ctx, project.RootPath, files, known, config.Workers, stats)
	if err != nil {
		return nil, err
	}

	if prune {
		wanted := make(map[string]bool, len(files))
		for _, f := range files {
			wanted[f] = true
		}
		for path, f := range known {
			if !wanted[path] {
				removed = append(removed, f)
			}
		}
	}

	if err := idx.writeResults(ctx, project, results, config.BatchSize, stats); err != nil {
		return nil, err
	}
	if err := idx.removeFiles(ctx, removed, stats); err != nil {
		return nil, err
	}

	if err := idx.updateProjectStats(ctx, project, stats.RunID); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	logger.Info("indexing finished",
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"removed", stats.FilesRemoved,
		"entities", stats.EntitiesExtracted,
		"duration", stats.Duration)
	return stats, nil
}

// parseFiles reads, hashes and parses files with a bounded errgroup. Files
// that vanished are returned in removed when they were indexed before.
func (idx *Indexer) parseFiles(ctx context.Context, root string, files []string, known map[string]*storage.File,
	workers int, stats *Statistics) ([]*fileResult, []*storage.File, error) {

	type outcome struct {
		res     *fileResult
		skipped bool
		gone    bool
		err     error
	}
	outcomes := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, info, err := readFile(filepath.Join(root, filepath.FromSlash(rel)))
			if errors.Is(err, fs.ErrNotExist) {
				outcomes[i].gone = true
				return nil
			}
			if err != nil {
				outcomes[i].err = err
				return nil
			}

			hash := sha256.Sum256(content)
			if prev, ok := known[rel]; ok && prev.ContentHash == hash {
				outcomes[i].skipped = true
				return nil
			}

			outcomes[i].res = &fileResult{
				relPath: rel,
				hash:    hash,
				modTime: info.ModTime(),
				size:    info.Size(),
				result:  idx.parser.ParseSource(rel, content, idx.parser.TokenizerFor(rel)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var results []*fileResult
	var removed []*storage.File
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", files[i], o.err))
		case o.gone:
			if prev, ok := known[files[i]]; ok {
				removed = append(removed, prev)
			}
		case o.skipped:
			stats.FilesSkipped++
		default:
			results = append(results, o.res)
		}
	}
	return results, removed, nil
}

// writeResults stores parsed files, batchSize files per transaction
func (idx *Indexer) writeResults(ctx context.Context, project *storage.Project, results []*fileResult, batchSize int, stats *Statistics) error {
	for start := 0; start < len(results); start += batchSize {
		end := min(start+batchSize, len(results))
		if err := idx.writeBatch(ctx, project, results[start:end], stats); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Indexer) writeBatch(ctx context.Context, project *storage.Project, batch []*fileResult, stats *Statistics) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var indexed, failed, entities int
	var messages []string
	for _, fr := range batch {
		n, err := idx.storeFile(ctx, tx, project, fr)
		if err != nil {
			return fmt.Errorf("%s: %w", fr.relPath, err)
		}
		entities += n
		if fr.result.HasErrors() {
			failed++
			for _, pe := range fr.result.Errors {
				messages = append(messages, fmt.Sprintf("%s: %s", fr.relPath, pe.Message))
			}
			continue
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	stats.FilesIndexed += indexed
	stats.FilesFailed += failed
	stats.EntitiesExtracted += entities
	stats.ErrorMessages = append(stats.ErrorMessages, messages...)
	return nil
}

// storeFile replaces the stored entities of one file and returns how many
// were written
func (idx *Indexer) storeFile(ctx context.Context, store storage.Storage, project *storage.Project, fr *fileResult) (int, error) {
	file := &storage.File{
		ProjectID:   project.ID,
		FilePath:    fr.relPath,
		ContentHash: fr.hash,
		ModTime:     fr.modTime,
		SizeBytes:   fr.size,
	}
	if modules := fr.result.Modules(); len(modules) > 0 {
		file.ModuleName = modules[0].Name
	}
	if fr.result.HasErrors() {
		msg := fr.result.Errors[0].Message
		file.ParseError = &msg
	}

	if err := store.UpsertFile(ctx, file); err != nil {
		return 0, err
	}
	if err := store.DeleteEntitiesByFile(ctx, file.ID); err != nil {
		return 0, fmt.Errorf("failed to delete old entities: %w", err)
	}

	count := 0
	for _, r := range fr.result.Records() {
		if err := r.Validate(); err != nil {
			idx.logger.Debug("skipping entity", "file", fr.relPath, "line", r.Line, "kind", r.Kind, "error", err)
			continue
		}
		e, err := storage.FromRecord(r, file.ID)
		if err != nil {
			return count, err
		}
		if err := store.UpsertEntity(ctx, e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (idx *Indexer) removeFiles(ctx context.Context, files []*storage.File, stats *Statistics) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range files {
		if err := tx.DeleteFile(ctx, f.ID); err != nil {
			return fmt.Errorf("failed to remove %s: %w", f.FilePath, err)
		}
		idx.logger.Debug("removed file from index", "file", f.FilePath)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	stats.FilesRemoved += len(files)
	return nil
}

// getOrCreateProject retrieves an existing project or creates a new one
func (idx *Indexer) getOrCreateProject(ctx context.Context, rootPath string) (*storage.Project, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	project = &storage.Project{
		RootPath:     rootPath,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := idx.storage.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// updateProjectStats refreshes the project's totals from the stored rows
func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project, runID string) error {
	status, err := idx.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return err
	}

	project.TotalFiles = status.FilesCount
	project.TotalEntities = status.EntitiesCount
	project.IndexVersion = storage.CurrentSchemaVersion
	project.LastRunID = runID
	project.LastIndexedAt = time.Now()

	return idx.storage.UpdateProject(ctx, project)
}

func readFile(path string) ([]byte, fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, fs.ErrNotExist
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return content, info, nil
}

// relativePath returns p relative to root with forward slashes. ok is false
// for paths outside root.
func relativePath(root, p string) (string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// matcher applies include and exclude globs to relative paths
type matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

func newMatcher(include, exclude []string) (*matcher, error) {
	inc, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileGlobs(exclude)
	if err != nil {
		return nil, err
	}
	return &matcher{include: inc, exclude: exc}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", p, err))
		}
		out = append(out, g)
	}
	return out, nil
}

// Match reports whether a file should be indexed
func (m *matcher) Match(rel string) bool {
	if m.excluded(rel) {
		return false
	}
	for _, g := range m.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory is pruned from the walk. Hidden
// directories are always skipped.
func (m *matcher) SkipDir(rel string) bool {
	if rel == "." {
		return false
	}
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return true
	}
	return m.excluded(rel + "/")
}

func (m *matcher) excluded(rel string) bool {
	for _, g := range m.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// discoverFiles walks root and returns matching files as sorted
// slash-separated relative paths
func discoverFiles(ctx context.Context, root string, m *matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && m.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}
