package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress   = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed           = -32003 // Store holds no schema yet
	ErrorCodeEmptyQuery           = -32004 // Query parameter is empty
	ErrorCodeEmbeddingUnavailable = -32005 // No query vector for a vector search
)

var searchModes = []string{
	string(searcher.SearchModeHybrid),
	string(searcher.SearchModeVector),
	string(searcher.SearchModeKeyword),
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := getStringDefault(args, "search_mode", string(searcher.SearchModeHybrid))
	if !slices.Contains(searchModes, mode) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   mode,
			"allowed": searchModes,
		})
	}

	tolerance := getFloatDefault(args, "min_relevance", 0)
	if tolerance < 0 || tolerance > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_relevance must be between 0 and 1", map[string]interface{}{
			"param": "min_relevance",
			"value": tolerance,
		})
	}

	if s.store.Schema() == nil {
		return nil, newMCPError(ErrorCodeNotIndexed, "nothing indexed yet", nil)
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     query,
		Limit:     limit,
		Mode:      searcher.SearchMode(mode),
		Tolerance: tolerance,
		UseCache:  true,
	})
	switch {
	case errors.Is(err, types.ErrEmbeddingUnavailable):
		return nil, newMCPError(ErrorCodeEmbeddingUnavailable, "no query embedding available, try keyword mode", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":        r.Rank,
			"score":       r.RelevanceScore,
			"id":          r.Chunk.ID,
			"url":         r.Chunk.URL,
			"source_path": r.Chunk.SourcePath,
			"breadcrumbs": r.Chunk.Breadcrumbs,
			"heading":     r.Chunk.Heading,
			"summary":     r.Chunk.Summary,
			"text":        r.Chunk.Text,
		})
	}

	response := map[string]interface{}{
		"query":         query,
		"search_mode":   string(resp.SearchMode),
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": status.Health.Initialized,
		"statistics": map[string]interface{}{
			"documents":        status.Documents,
			"embedded":         status.Embedded,
			"vector_dimension": status.VectorDimension,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"indexing":             s.lock.Running(),
		},
	}
	if run := status.LastRun; run != nil {
		response["last_run"] = map[string]interface{}{
			"id":          run.ID,
			"source":      run.Source,
			"pages":       run.Pages,
			"chunks":      run.Chunks,
			"inserted":    run.Inserted,
			"skipped":     run.Skipped,
			"finished_at": run.FinishedAt.Format(time.RFC3339),
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexDocs handles the index_docs tool invocation
func (s *Server) handleIndexDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	src := s.source
	if path := getStringDefault(args, "path", ""); path != "" {
		if err := validatePath(path); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		src.Root = path
	}
	if pattern := getStringDefault(args, "pattern", ""); pattern != "" {
		src.Pattern = pattern
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	defer s.lock.Release()

	stats, err := s.indexer.Run(ctx, s.store, src, s.options)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, types.ErrConfiguration) {
			code = ErrorCodeInvalidParams
		}
		return nil, newMCPError(code, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()
	s.logger.Info("index_docs complete", zap.String("root", src.Root), zap.Int("inserted", stats.Inserted))

	response := map[string]interface{}{
		"indexed":       true,
		"run_id":        stats.RunID,
		"pages":         stats.Pages,
		"chunks":        stats.Chunks,
		"inserted":      stats.Inserted,
		"duplicates":    stats.Duplicates,
		"documents":     stats.Documents,
		"skipped_files": len(stats.SkippedFiles),
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
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

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
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

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
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

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
