package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Noise patterns typical of misrecognized glyph runs.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[|]{2,}`),
	regexp.MustCompile(`[l1]{4,}`),
	regexp.MustCompile(`[o0]{4,}`),
}

var (
	punctuationRe = regexp.MustCompile(`[.!?,;:]`)
	uppercaseRe   = regexp.MustCompile(`[A-Z]`)
)

// ConfidenceScorer derives a deterministic [0,1] quality estimate from
// recognized text. The score is a heuristic, not a probability reported by
// the recognition capability.
type ConfidenceScorer struct{}

func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Score returns 0.0 for empty or whitespace-only input regardless of any
// other signal; otherwise a base of 0.5 adjusted by length, noise, token
// shape, punctuation and capitalization, clamped to [0,1] and rounded to
// three decimals.
func (s *ConfidenceScorer) Score(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.0
	}

	score := 0.5

	length := utf8.RuneCountInString(trimmed)
	switch {
	case length > 100:
		score += 0.10
	case length > 50:
		score += 0.05
	case length < 10:
		score -= 0.10
	}

	noise := 0
	for _, re := range noisePatterns {
		noise += len(re.FindAllString(text, -1))
	}
	if noise == 0 {
		score += 0.10
	} else if noise > 5 {
		score -= 0.15
	}

	tokens := strings.Fields(text)
	if len(tokens) > 0 {
		reasonable := 0
		for _, tok := range tokens {
			if n := utf8.RuneCountInString(tok); n >= 2 && n <= 20 {
				reasonable++
			}
		}
		score += float64(reasonable) / float64(len(tokens)) * 0.20
	}

	if punctuationRe.MatchString(text) {
		score += 0.05
	}
	if uppercaseRe.MatchString(text) {
		score += 0.05
	}

	score = math.Max(0.0, math.Min(1.0, score))
	return math.Round(score*1000) / 1000
}
