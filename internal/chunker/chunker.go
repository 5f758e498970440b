// Package chunker splits document text into bounded, overlapping
// chunks along sentence boundaries.
package chunker

import (
	"strings"
	"unicode"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// DefaultMaxChars is the default chunk budget in runes.
const DefaultMaxChars = 1000

// DefaultOverlap is the default number of overlapping runes carried
// from one chunk into the next.
const DefaultOverlap = 200

// Chunker packs sentences into chunks bounded by a rune budget, with a
// suffix of each chunk repeated as the prefix of the next so semantic
// units are not severed across boundaries.
type Chunker struct {
	maxChars int
	overlap  int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk budget in runes.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in runes.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new content in every chunk.
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}

	return c
}

// span is a half-open rune range into the source text.
type span struct {
	start, end int
}

// Split chunks the document content. Chunk ids and embeddings are left
// zero; the store and the embedding service fill them in later.
// Empty or whitespace-only content yields no chunks.
func (c *Chunker) Split(doc *domain.Document) []domain.Chunk {
	runes := []rune(doc.Content)
	cores := c.pack(runes, c.sentences(runes))
	if len(cores) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(cores))
	var prev []rune

	for i, core := range cores {
		body := runes[core.start:core.end]

		content := make([]rune, 0, c.overlap+len(body))
		if i > 0 && c.overlap > 0 {
			tail := prev
			if len(tail) > c.overlap {
				tail = tail[len(tail)-c.overlap:]
			}
			content = append(content, tail...)
		}
		content = append(content, body...)

		chunks = append(chunks, domain.Chunk{
			DocumentID:  doc.ID,
			Content:     string(content),
			Position:    i,
			StartOffset: core.start,
			EndOffset:   core.end,
		})
		prev = content
	}

	return chunks
}

// sentences splits the text into sentence spans. A sentence ends at a
// terminator (Latin or CJK) or a newline; the terminator stays with
// its sentence.
func (c *Chunker) sentences(runes []rune) []span {
	var spans []span
	start := 0

	for i, r := range runes {
		if isTerminator(r) {
			if s, ok := trimSpan(runes, start, i+1); ok {
				spans = append(spans, s)
			}
			start = i + 1
		}
	}
	if s, ok := trimSpan(runes, start, len(runes)); ok {
		spans = append(spans, s)
	}

	return spans
}

// pack greedily groups sentence spans into cores bounded by maxChars.
// A single sentence over budget is hard-split at the budget.
func (c *Chunker) pack(runes []rune, sentences []span) []span {
	var cores []span
	cur := span{-1, -1}

	flush := func() {
		if cur.start >= 0 && cur.end > cur.start {
			cores = append(cores, cur)
		}
		cur = span{-1, -1}
	}

	for _, s := range sentences {
		length := s.end - s.start
		if length > c.maxChars {
			flush()
			for off := s.start; off < s.end; off += c.maxChars {
				end := off + c.maxChars
				if end > s.end {
					end = s.end
				}
				if piece, ok := trimSpan(runes, off, end); ok {
					cores = append(cores, piece)
				}
			}
			continue
		}

		if cur.start < 0 {
			cur = s
			continue
		}
		if s.end-cur.start <= c.maxChars {
			cur.end = s.end
			continue
		}
		flush()
		cur = s
	}
	flush()

	return cores
}

// trimSpan shrinks a span to exclude surrounding whitespace.
func trimSpan(runes []rune, start, end int) (span, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start >= end {
		return span{}, false
	}
	return span{start, end}, true
}

// isTerminator reports whether r ends a sentence.
func isTerminator(r rune) bool {
	return strings.ContainsRune(".!?\n。！？", r)
}
