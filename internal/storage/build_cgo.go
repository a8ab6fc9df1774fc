//go:build sqlite_vec && !purego
// +build sqlite_vec,!purego

package storage

// This file is compiled when building with CGO and the sqlite_vec tag.
// It enables the sqlite-vec extension for fast vector similarity search.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...
//
// Vector search runs vec_distance_cosine in SQL when the sqlite-vec
// extension is registered with the driver (for example through an
// auto-extension in a custom build). Open checks for vec_version() and falls
// back to the in-process cosine scan when the functions are missing.
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports that the build may carry sqlite-vec.
	// Whether the functions are registered is checked per connection.
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
