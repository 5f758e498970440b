package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrContent indicates an unreadable or empty document.
	// Ingestion skips the document; the index is not mutated.
	ErrContent = errors.New("unreadable or empty document")

	// ErrEmbeddingUnavailable indicates the embedding service cannot
	// be reached. The current operation aborts with no partial state.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service cannot
	// be reached. The current turn fails; persisted state is untouched.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrIndexInconsistency indicates the vector index and chunk store
	// id sets diverged. This must never occur under correct operation;
	// on detection all further mutation is refused rather than
	// attempting silent repair.
	ErrIndexInconsistency = errors.New("vector index and chunk store are inconsistent")

	// ErrUnknownTool indicates planning referenced a tool that is not
	// in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolLoopExceeded indicates the bounded tool-call iteration
	// cap was hit; the turn fails with partial context retained for
	// diagnostics.
	ErrToolLoopExceeded = errors.New("tool call loop exceeded")

	// ErrSnapshotMismatch indicates the vector index snapshot and the
	// chunk store carry different version tags and the pair was
	// rejected at load time.
	ErrSnapshotMismatch = errors.New("index snapshot and chunk store versions do not match")
)
