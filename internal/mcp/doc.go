// Package mcp implements the Model Context Protocol (MCP) server for docvec.
//
// The server exposes the vector store to AI assistants through three tools:
//   - search_docs: Search the documentation with natural language or keywords
//   - get_status: Report document count, vector dimension and the last run
//   - index_docs: Index an HTML documentation tree into the served store
//
// index_docs is only registered when the server is built with an indexer.
// Serving a restored artifact leaves the store read-only.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
//	docvec serve                      # serve the generated artifact
//	docvec serve --live               # index docs.root and serve it
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "name": "search_docs",
//	  "arguments": {
//	    "query": "how do I draw a triangle",
//	    "limit": 5,
//	    "search_mode": "hybrid"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "how do I draw a triangle",
//	  "search_mode": "hybrid",
//	  "total_results": 5,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "score": 0.032,
//	      "id": "shapes#triangle",
//	      "url": "https://example.com/user-guide/components/shapes.html#triangle",
//	      "source_path": "components/shapes.html",
//	      "breadcrumbs": ["Shapes", "Triangle"],
//	      "summary": "The triangle tool draws a shape with three sides."
//	    }
//	  ]
//	}
//
// Hybrid scores are reciprocal rank fusion scores, vector scores are cosine
// similarities, keyword scores are normalized BM25.
//
// # Tool: index_docs
//
// path and pattern are optional and default to the configured docs.root and
// docs.pattern. Records already in the store are skipped. Only one run may
// be active; a concurrent call fails with code -32002.
//
// # Error Codes
//
//	-32602  Invalid parameters
//	-32603  Internal error
//	-32002  Indexing already in progress
//	-32003  Nothing indexed yet
//	-32004  Empty query
//	-32005  No query embedding available (vector mode)
package mcp
