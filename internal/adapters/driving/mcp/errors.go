package mcp

import "errors"

// Port validation errors.
var (
	// ErrMissingRetriever indicates the retriever port was not set.
	ErrMissingRetriever = errors.New("mcp: retriever port is required")

	// ErrMissingChat indicates the chat port was not set.
	ErrMissingChat = errors.New("mcp: chat port is required")
)
