// Package domain contains the core business entities and errors for
// LocalMind: documents and their chunks, conversation turns, retrieval
// results, the orchestrator turn states, and style profiles.
//
// The package has no dependencies on adapters or services; everything
// here is plain data shared across the hexagon.
package domain
