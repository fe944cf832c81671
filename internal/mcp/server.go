package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mcartmell/yard-perl-plugin/internal/config"
	"github.com/mcartmell/yard-perl-plugin/internal/indexer"
	"github.com/mcartmell/yard-perl-plugin/internal/searcher"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "podextract"
	// ServerVersion is the current server version
	ServerVersion = "0.4.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	config   *config.Config
	logger   *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*indexer.IndexLock // by project root
}

// NewServer opens the index at cfg.DBPath and registers the tools. A nil
// logger selects slog.Default().
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	p, err := cfg.NewParser(logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	srch, err := searcher.NewWithOptions(store, searcher.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		indexer:  indexer.NewWithParser(store, p, logger),
		searcher: srch,
		config:   cfg,
		logger:   logger,
		locks:    make(map[string]*indexer.IndexLock),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", ServerVersion, "db", s.config.DBPath)
	return server.ServeStdio(s.mcp)
}

// Close releases the index
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexPerlDocsTool(), s.handleIndexPerlDocs)
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(lookupSymbolTool(), s.handleLookupSymbol)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// lockFor returns the index lock of a project root
func (s *Server) lockFor(root string) *indexer.IndexLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[root]
	if !ok {
		l = &indexer.IndexLock{}
		s.locks[root] = l
	}
	return l
}
