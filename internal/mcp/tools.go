package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcartmell/yard-perl-plugin/internal/searcher"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not contain Perl sources
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// maxReportedErrors caps the per-file errors echoed by index_perl_docs
const maxReportedErrors = 5

// handleIndexPerlDocs handles the index_perl_docs tool invocation
func (s *Server) handleIndexPerlDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	if !hasPerlFiles(path) {
		return nil, newMCPError(ErrorCodeProjectNotFound, "no Perl sources found", map[string]interface{}{
			"param":  "path",
			"reason": ErrNoPerlFiles.Error(),
		})
	}

	config := s.config.IndexerConfig()
	if include := getStringSlice(args, "include"); len(include) > 0 {
		config.Include = include
	}
	if exclude := getStringSlice(args, "exclude"); exclude != nil {
		config.Exclude = exclude
	}

	lock := s.lockFor(path)
	if !lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress for this path", map[string]interface{}{
			"path": path,
		})
	}
	defer lock.Release()

	stats, err := s.indexer.IndexProject(ctx, path, config)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"indexed":            true,
		"run_id":             stats.RunID,
		"files_indexed":      stats.FilesIndexed,
		"files_skipped":      stats.FilesSkipped,
		"files_failed":       stats.FilesFailed,
		"files_removed":      stats.FilesRemoved,
		"entities_extracted": stats.EntitiesExtracted,
		"duration_ms":        stats.Duration.Milliseconds(),
	}
	if n := len(stats.ErrorMessages); n > 0 {
		response["errors"] = stats.ErrorMessages[:min(n, maxReportedErrors)]
		if n > maxReportedErrors {
			response["error_count"] = n
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		UseCache: true,
	}
	if filters, ok := args["filters"].(map[string]interface{}); ok {
		req.Filters = &storage.SearchFilters{
			Kinds:        getStringSlice(filters, "kinds"),
			Visibilities: getStringSlice(filters, "visibilities"),
			Namespace:    getStringDefault(filters, "namespace", ""),
			Group:        getStringDefault(filters, "group", ""),
		}
		req.FilePattern = getStringDefault(filters, "file_pattern", "")
		if v, ok := filters["min_relevance"].(float64); ok {
			req.MinRelevance = v
		}
	}

	project, err := s.indexedProject(ctx, path)
	if err != nil {
		return nil, err
	}
	req.ProjectID = project.ID

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, searcher.ErrInvalidPattern) || errors.Is(err, searcher.ErrInvalidMinScore) {
			code = ErrorCodeInvalidParams
		}
		return nil, newMCPError(code, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"rank":      r.Rank,
			"score":     fmt.Sprintf("%.3f", r.RelevanceScore),
			"kind":      r.Entity.Kind,
			"name":      r.Entity.Name,
			"file":      r.File.Path,
			"line":      r.File.Line,
			"snippet":   r.Snippet,
			"docstring": r.Entity.Docstring,
		}
		if r.Entity.Namespace != "" {
			entry["namespace"] = r.Entity.Namespace
		}
		if r.Entity.Visibility != "" {
			entry["visibility"] = r.Entity.Visibility
		}
		if r.Entity.Group != "" {
			entry["group"] = r.Entity.Group
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"query":       query,
		"results":     results,
		"total":       resp.TotalResults,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleLookupSymbol handles the lookup_symbol tool invocation
func (s *Server) handleLookupSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, _ := args["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "name parameter is required and cannot be empty", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	project, err := s.indexedProject(ctx, path)
	if err != nil {
		return nil, err
	}

	records, err := s.searcher.Lookup(ctx, project.ID, name, getStringSlice(args, "kinds"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"name":    name,
		"found":   len(records) > 0,
		"entries": records,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_perl_docs tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":     true,
		"in_progress": s.lockFor(path).Busy(),
		"project": map[string]interface{}{
			"path":            project.RootPath,
			"last_run_id":     project.LastRunID,
			"last_indexed_at": project.LastIndexedAt.Format(time.RFC3339),
		},
		"statistics": map[string]interface{}{
			"files_count":    status.FilesCount,
			"failed_files":   status.FailedFiles,
			"entities_count": status.EntitiesCount,
			"kinds":          status.KindCounts,
			"index_size_mb":  fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
			"schema_version":      status.Health.SchemaVersion,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requirePath extracts and validates the path argument
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// indexedProject returns the stored project for path or a not-indexed error
func (s *Server) indexedProject(ctx context.Context, path string) (*storage.Project, error) {
	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"path": path,
			"hint": "call index_perl_docs first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return project, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

var perlExtensions = map[string]bool{".pm": true, ".pl": true, ".pod": true, ".t": true}

// hasPerlFiles reports whether any Perl source lives under root, stopping
// at the first one
func hasPerlFiles(root string) bool {
	found := false
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if perlExtensions[strings.ToLower(filepath.Ext(p))] {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter. It returns nil when the
// key is absent and skips non-string items.
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoPerlFiles     = errors.New("directory does not contain Perl sources")
)
