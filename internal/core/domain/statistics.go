package domain

// Statistics reports corpus and conversation counts for the
// get_statistics tool.
type Statistics struct {
	// DocumentCount is the number of ingested documents.
	DocumentCount int

	// ChunkCount is the number of indexed chunks.
	ChunkCount int

	// CategoryCounts maps category name to the number of chunks
	// carrying that label.
	CategoryCounts map[string]int

	// SessionCount is the number of conversation sessions.
	SessionCount int

	// TurnCount is the number of recorded conversation turns.
	TurnCount int
}
