package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mcartmell/yard-perl-plugin/internal/storage"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
	DefaultLimit     = 10
	MaxLimit         = 100

	// snippetWidth bounds the excerpt around the first matching term
	snippetWidth = 160
)

var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrInvalidPattern  = errors.New("invalid file pattern")
	ErrInvalidMinScore = errors.New("min relevance must be between 0 and 1")
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Limit        int
	Filters      *storage.SearchFilters
	FilePattern  string  // Glob over the file path relative to the project root
	MinRelevance float64 // Drop results scoring below this, after normalization
	ProjectID    int64
	UseCache     bool
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
	TextResults  int // Rows returned by the full-text index before post-filtering
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Options configures a Searcher
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Searcher runs keyword searches over indexed documentation and caches the
// responses
type Searcher struct {
	storage storage.Storage
	ttl     time.Duration
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a Searcher with the default cache settings
func NewSearcher(store storage.Storage) *Searcher {
	s, err := NewWithOptions(store, Options{})
	if err != nil {
		// Only reachable with an invalid cache size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return s
}

// NewWithOptions creates a Searcher. Zero values select the defaults.
func NewWithOptions(store storage.Storage, opts Options) (*Searcher, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Searcher{storage: store, ttl: opts.CacheTTL, cache: cache}, nil
}

// Search performs a full-text search over entity names, namespaces and
// docstrings
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	var pattern glob.Glob
	if req.FilePattern != "" {
		g, err := glob.Compile(req.FilePattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		pattern = g
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	// Post-filters drop rows, so over-fetch when any are set
	fetch := req.Limit
	if pattern != nil || req.MinRelevance > 0 {
		fetch = min(req.Limit*3, MaxLimit*3)
	}

	textResults, err := s.storage.SearchText(ctx, req.ProjectID, req.Query, fetch, req.Filters)
	if err != nil {
		return nil, err
	}

	results, err := s.fetchResults(ctx, req, textResults, pattern)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextResults:  len(textResults),
		Duration:     time.Since(startTime),
	}

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}
	return response, nil
}

// fetchResults loads entities and files for ranked rows. Scores are
// normalized against the best row, so the top result scores 1.
func (s *Searcher) fetchResults(ctx context.Context, req SearchRequest, rows []storage.TextResult, pattern glob.Glob) ([]types.SearchResult, error) {
	best := 0.0
	for _, r := range rows {
		best = max(best, r.BM25Score)
	}

	terms := queryTerms(req.Query)
	files := make(map[int64]*storage.File)
	results := make([]types.SearchResult, 0, min(len(rows), req.Limit))

	for _, row := range rows {
		if len(results) == req.Limit {
			break
		}
		score := 1.0
		if best > 0 {
			score = max(row.BM25Score, 0) / best
		}
		if score < req.MinRelevance {
			continue
		}

		entity, err := s.storage.GetEntity(ctx, row.EntityID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // removed by a concurrent index run
			}
			return nil, err
		}
		file, ok := files[entity.FileID]
		if !ok {
			file, err = s.storage.GetFileByID(ctx, entity.FileID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			files[entity.FileID] = file
		}
		if file == nil {
			continue
		}
		if pattern != nil && !pattern.Match(file.FilePath) {
			continue
		}

		record := entity.ToRecord(file.FilePath)
		results = append(results, types.SearchResult{
			EntityID:       entity.ID,
			Rank:           len(results) + 1,
			RelevanceScore: score,
			Entity:         &record,
			File:           &types.FileInfo{Path: file.FilePath, Line: entity.Line},
			Snippet:        Snippet(entity.Docstring, terms),
		})
	}
	return results, nil
}

// Lookup returns every entity named exactly name, optionally restricted to
// kinds. Records carry the file path as their source.
func (s *Searcher) Lookup(ctx context.Context, projectID int64, name string, kinds []string) ([]types.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	entities, err := s.storage.LookupEntities(ctx, projectID, name, kinds)
	if err != nil {
		return nil, err
	}

	paths := make(map[int64]string)
	records := make([]types.Record, 0, len(entities))
	for _, e := range entities {
		path, ok := paths[e.FileID]
		if !ok {
			f, err := s.storage.GetFileByID(ctx, e.FileID)
			if err != nil {
				return nil, err
			}
			path = f.FilePath
			paths[e.FileID] = path
		}
		records = append(records, e.ToRecord(path))
	}
	return records, nil
}

// validateRequest ensures search request is valid
func validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.MinRelevance < 0 || req.MinRelevance > 1 {
		return ErrInvalidMinScore
	}
	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(s.ttl),
	}
	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Called after re-indexing.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen reports how many responses are cached
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, r := range src.Results {
		dst.Results[i] = r
		if r.Entity != nil {
			rec := *r.Entity
			rec.Parameters = append([]types.Parameter(nil), r.Entity.Parameters...)
			dst.Results[i].Entity = &rec
		}
		if r.File != nil {
			f := *r.File
			dst.Results[i].File = &f
		}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%s|%d|%d|%s|%.3f", req.Query, req.ProjectID, req.Limit, req.FilePattern, req.MinRelevance)
	if f := req.Filters; f != nil {
		fmt.Fprintf(&data, "|filters:%s|%s|%s|%s",
			strings.Join(f.Kinds, ","), strings.Join(f.Visibilities, ","), f.Namespace, f.Group)
	}
	return sha256.Sum256([]byte(data.String()))
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, `"`); f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// Snippet returns the docstring line containing the first query term found,
// trimmed to a window around the match. Without a match it returns the
// first non-blank line.
func Snippet(doc string, terms []string) string {
	lower := strings.ToLower(doc)
	for _, term := range terms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		start := strings.LastIndexByte(doc[:idx], '\n') + 1
		end := len(doc)
		if nl := strings.IndexByte(doc[idx:], '\n'); nl >= 0 {
			end = idx + nl
		}
		return window(doc[start:end], idx-start)
	}
	for _, line := range strings.Split(doc, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return window(line, 0)
		}
	}
	return ""
}

// window cuts line to snippetWidth bytes around offset at, on rune
// boundaries
func window(line string, at int) string {
	if len(line) <= snippetWidth {
		return strings.TrimSpace(line)
	}
	start := max(0, at-snippetWidth/4)
	end := min(len(line), start+snippetWidth)
	for start > 0 && !isRuneStart(line[start]) {
		start--
	}
	for end < len(line) && !isRuneStart(line[end]) {
		end++
	}
	out := strings.TrimSpace(line[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(line) {
		out += "..."
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
