// Package mcp provides an MCP (Model Context Protocol) server adapter for clause.
// It lets an AI assistant load contract text into a session and retrieve
// the passages relevant to a question.
package mcp

import "errors"

// Errors returned when a required port is missing.
var (
	ErrMissingSessionService   = errors.New("mcp: session service is required")
	ErrMissingIngestionService = errors.New("mcp: ingestion service is required")
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
)
