package domain

// StyleProfile summarises the stylistic features of exemplar text.
// It is passed to the generation port as a constraint in style mode
// instead of factual grounding.
type StyleProfile struct {
	// SentenceCount is the number of sentences analysed.
	SentenceCount int

	// AvgSentenceLen is the mean sentence length in runes.
	AvgSentenceLen float64

	// MaxSentenceLen is the longest sentence length in runes.
	MaxSentenceLen int

	// VocabularyRichness is the type-token ratio of the exemplars
	// (distinct words / total words, 0-1).
	VocabularyRichness float64

	// FormalityScore is the share of sentences ending in a formal
	// marker (0-1).
	FormalityScore float64

	// Excerpts are short exemplar passages for the model to imitate.
	Excerpts []string
}

// Empty reports whether the profile carries no usable signal.
func (p StyleProfile) Empty() bool {
	return p.SentenceCount == 0 && len(p.Excerpts) == 0
}
