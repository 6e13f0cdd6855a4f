// Package mcp provides an MCP (Model Context Protocol) server adapter
// for vigil. It exposes the local CTI knowledge store to AI assistants
// as the search_local_cti tool and correlation reports as resources.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
