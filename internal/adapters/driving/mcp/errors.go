// Package mcp provides an MCP (Model Context Protocol) server adapter for intunesync.
// It lets AI assistants list managed devices, trigger syncs and read run history.
package mcp

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("mcp: sync orchestrator is required")
