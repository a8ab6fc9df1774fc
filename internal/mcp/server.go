package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/indexer"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docvec"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Config holds the components a Server exposes as tools
type Config struct {
	Store    *storage.SQLiteStore
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher

	// Source and Options are the defaults of index_docs
	Source  indexer.Source
	Options indexer.Options

	Logger *zap.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    *storage.SQLiteStore
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	source   indexer.Source
	options  indexer.Options
	lock     indexer.IndexLock
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance. The server owns cfg.Store
// and closes it when Serve returns.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Searcher == nil {
		return nil, errors.New("mcp server needs a store and a searcher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		store:    cfg.Store,
		indexer:  cfg.Indexer,
		searcher: cfg.Searcher,
		source:   cfg.Source,
		options:  cfg.Options,
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	s.logger.Info("serving MCP on stdio", zap.String("name", ServerName))
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	// Without an indexer the server is read-only over a restored artifact
	if s.indexer != nil {
		s.mcp.AddTool(indexDocsTool(), s.handleIndexDocs)
	}
}
