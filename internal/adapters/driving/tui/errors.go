package tui

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("tui: retrieval service is required")

// ErrMissingSession is returned when no session ID is provided.
var ErrMissingSession = errors.New("tui: session id is required")
