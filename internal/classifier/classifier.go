// Package classifier provides deterministic, dictionary-driven
// category tagging and keyword extraction. It is a pure function of
// its trigger dictionary and the input text: no learning, no external
// calls. The vocabulary is externally configurable so it can be
// swapped without touching the orchestrator.
package classifier

import (
	"sort"
	"strings"
	"unicode"
)

// CategoryGeneral is the fallback category when nothing matches.
const CategoryGeneral = "general"

// Classifier tags text with categories from a trigger dictionary and
// extracts frequency-ranked keywords.
type Classifier struct {
	triggers  map[string][]string
	stopwords map[string]struct{}
}

// Option configures the classifier.
type Option func(*Classifier)

// WithTriggers replaces the trigger dictionary (category to trigger
// keywords). Triggers are matched case-insensitively.
func WithTriggers(triggers map[string][]string) Option {
	return func(c *Classifier) {
		if len(triggers) > 0 {
			c.triggers = lowerTriggers(triggers)
		}
	}
}

// WithStopwords replaces the stopword list used by Keywords.
func WithStopwords(words []string) Option {
	return func(c *Classifier) {
		c.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			c.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// New creates a classifier with the default dictionary unless
// overridden by options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		triggers:  lowerTriggers(DefaultTriggers()),
		stopwords: defaultStopwords(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTriggers returns the built-in trigger dictionary.
func DefaultTriggers() map[string][]string {
	return map[string][]string{
		"technology": {
			"programming", "development", "coding", "algorithm", "ai",
			"machine learning", "deep learning", "data", "analysis",
			"system", "server", "database", "web", "app", "software",
		},
		"work": {
			"meeting", "project", "schedule", "plan", "report",
			"presentation", "team", "collaboration", "management",
			"goal", "strategy", "marketing", "deadline",
		},
		"learning": {
			"study", "education", "lecture", "book", "paper",
			"research", "exam", "assignment", "knowledge", "concept",
			"theory", "practice", "course",
		},
		CategoryGeneral: {
			"question", "answer", "help", "problem", "solution",
			"method", "information", "example", "reason", "purpose",
		},
	}
}

// Classify returns the categories whose triggers match the text,
// sorted ascending for determinism. Empty or whitespace-only text
// yields an empty set, not an error.
func (c *Classifier) Classify(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var matched []string
	for category, triggers := range c.triggers {
		if matchesAny(tokens, triggers) {
			matched = append(matched, category)
		}
	}

	sort.Strings(matched)
	return matched
}

// BestCategory picks the single highest-scoring category for a set of
// keywords, falling back to the general category. Ties resolve to the
// alphabetically first category.
func (c *Classifier) BestCategory(keywords []string) string {
	if len(keywords) == 0 {
		return CategoryGeneral
	}

	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	best, bestScore := CategoryGeneral, 0
	names := make([]string, 0, len(c.triggers))
	for name := range c.triggers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		score := 0
		for _, kw := range lowered {
			for _, trig := range c.triggers[name] {
				if kw == trig {
					score += 2
				} else if strings.Contains(trig, kw) || strings.Contains(kw, trig) {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	return best
}

// Keywords extracts up to max frequency-ranked keywords from the
// text. Ties are broken alphabetically so the result is stable.
func (c *Classifier) Keywords(text string, max int) []string {
	if max <= 0 {
		max = 10
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		if _, stop := c.stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}

// tokenize lowers the text and splits it into letter/digit runs,
// dropping single runes and pure numbers. Unicode-aware, so CJK text
// tokenizes as well as Latin.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || isNumeric(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// matchesAny reports whether any token matches any trigger, by
// equality or substring in either direction.
func matchesAny(tokens, triggers []string) bool {
	for _, tok := range tokens {
		for _, trig := range triggers {
			if tok == trig || strings.Contains(trig, tok) || strings.Contains(tok, trig) {
				return true
			}
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func lowerTriggers(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for cat, trigs := range in {
		lowered := make([]string, len(trigs))
		for i, t := range trigs {
			lowered[i] = strings.ToLower(t)
		}
		out[cat] = lowered
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"the", "a", "an", "and", "or", "but", "so", "of", "in", "on",
		"at", "to", "for", "with", "by", "from", "about", "as", "is",
		"are", "was", "were", "be", "been", "it", "this", "that",
		"these", "those", "there", "here", "what", "which", "who",
		"when", "where", "why", "how", "not", "no", "yes", "can",
		"will", "would", "should", "could", "do", "does", "did",
		"have", "has", "had", "you", "your", "we", "our", "they",
		"their", "he", "she", "his", "her", "its", "my", "me",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
