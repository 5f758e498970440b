package services

import (
	"strings"
	"unicode"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// Style profiling limits.
const (
	maxStyleExcerpts   = 3
	maxExcerptRunes    = 150
	maxProfiledPassage = 40
)

// formalEndings mark a sentence as formal register. Korean polite
// endings and a plain period both count; exclamations and trailing
// emoticons do not.
var formalEndings = []string{"니다.", "습니다.", "입니다.", "됩니다.", "십시오.", "."}

// BuildStyleProfile summarises the stylistic features of the given
// exemplar passages.
func BuildStyleProfile(passages []string) domain.StyleProfile {
	var profile domain.StyleProfile

	totalLen := 0
	wordTotal := 0
	wordSet := make(map[string]struct{})
	formal := 0

	profiled := 0
	for _, passage := range passages {
		if profiled >= maxProfiledPassage {
			break
		}
		profiled++

		for _, sentence := range splitSentences(passage) {
			runes := []rune(sentence)
			profile.SentenceCount++
			totalLen += len(runes)
			if len(runes) > profile.MaxSentenceLen {
				profile.MaxSentenceLen = len(runes)
			}
			if isFormal(sentence) {
				formal++
			}
			for _, word := range strings.Fields(strings.ToLower(sentence)) {
				word = strings.TrimFunc(word, unicode.IsPunct)
				if word == "" {
					continue
				}
				wordTotal++
				wordSet[word] = struct{}{}
			}
		}

		if len(profile.Excerpts) < maxStyleExcerpts {
			excerpt := strings.TrimSpace(passage)
			if runes := []rune(excerpt); len(runes) > maxExcerptRunes {
				excerpt = string(runes[:maxExcerptRunes])
			}
			if excerpt != "" {
				profile.Excerpts = append(profile.Excerpts, excerpt)
			}
		}
	}

	if profile.SentenceCount > 0 {
		profile.AvgSentenceLen = float64(totalLen) / float64(profile.SentenceCount)
		profile.FormalityScore = float64(formal) / float64(profile.SentenceCount)
	}
	if wordTotal > 0 {
		profile.VocabularyRichness = float64(len(wordSet)) / float64(wordTotal)
	}
	return profile
}

// splitSentences breaks text on sentence terminators, keeping the
// terminator attached.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isFormal reports whether a sentence ends in a formal marker.
func isFormal(sentence string) bool {
	sentence = strings.TrimSpace(sentence)
	for _, ending := range formalEndings {
		if strings.HasSuffix(sentence, ending) {
			return true
		}
	}
	return false
}
