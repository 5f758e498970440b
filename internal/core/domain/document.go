package domain

import "time"

// Document represents an ingested source file.
// It is immutable once ingested; re-ingestion replaces its chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Path is the original location on disk.
	Path string

	// Title is the human-readable title, usually the file name.
	Title string

	// Format is the source format (txt, md, pdf).
	Format string

	// Content is the full raw text.
	Content string

	// IngestedAt is when the document was last ingested.
	IngestedAt time.Time
}

// Chunk is a bounded fragment of a document, the unit of retrieval.
// Chunk ids are dense integers shared with the vector index: every id
// present in the index has exactly one chunk in the store and vice versa.
type Chunk struct {
	// ID is the chunk id, identical to its vector index id.
	ID int64

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk, including the
	// overlap prefix carried over from the previous chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// StartOffset and EndOffset are rune offsets into the document
	// text covered by this chunk (excluding the overlap prefix).
	StartOffset int
	EndOffset   int

	// Categories are the labels assigned by the keyword classifier.
	Categories []string

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// IngestResult summarises one document ingestion.
type IngestResult struct {
	// ChunksAdded is the number of chunks created for the document.
	ChunksAdded int

	// ChunksRemoved is the number of prior chunks replaced.
	ChunksRemoved int
}
