package extraction

import (
	"strings"
	"testing"
)

func TestScoreZeroOnlyForBlankInput(t *testing.T) {
	s := NewConfidenceScorer()

	for _, blank := range []string{"", " ", "\n", " \t \n "} {
		if got := s.Score(blank); got != 0.0 {
			t.Fatalf("Score(%q) = %v, want 0.0", blank, got)
		}
	}
	for _, nonBlank := range []string{"a", ".", "x y z", "|", "0"} {
		if got := s.Score(nonBlank); got == 0.0 {
			t.Fatalf("Score(%q) = 0.0, want > 0", nonBlank)
		}
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	s := NewConfidenceScorer()

	inputs := []string{
		"short",
		strings.Repeat("word ", 200),
		strings.Repeat("||||", 50),
		"llll1111 oooo0000 " + strings.Repeat("|| ", 20),
		"A well written sentence, with punctuation and Capital letters.",
		strings.Repeat("x", 5000),
		"\x00\x01 binary-ish",
	}
	for _, in := range inputs {
		got := s.Score(in)
		if got < 0.0 || got > 1.0 {
			t.Fatalf("Score(%q) = %v, out of [0,1]", in, got)
		}
	}
}

func TestScoreCleanSentence(t *testing.T) {
	s := NewConfidenceScorer()

	// 44 chars: no length bonus; no noise +0.1; all 9 tokens reasonable
	// +0.2; punctuation +0.05; uppercase +0.05.
	got := s.Score("The quick brown fox jumps over the lazy dog.")
	if got != 0.9 {
		t.Fatalf("expected 0.9, got %v", got)
	}
}

func TestScoreShortCleanToken(t *testing.T) {
	s := NewConfidenceScorer()

	// length 2 < 10 penalty, no noise, single reasonable token.
	got := s.Score("ab")
	if got != 0.7 {
		t.Fatalf("expected 0.7, got %v", got)
	}
}

func TestScoreHeavyNoisePenalty(t *testing.T) {
	s := NewConfidenceScorer()

	// Six pipe runs plus the two glyph runs: 8 noise matches > 5.
	got := s.Score("|||| |||| |||| |||| |||| |||| llll1111 oooo0000")
	if got != 0.55 {
		t.Fatalf("expected 0.55, got %v", got)
	}
}

func TestScoreLongDocumentBonus(t *testing.T) {
	s := NewConfidenceScorer()

	text := strings.Repeat("Meaningful sentences add reliability. ", 5)
	got := s.Score(text)
	// 0.5 base + 0.1 length>100 + 0.1 no noise + 0.2 all-reasonable tokens
	// + 0.05 punctuation + 0.05 uppercase, clamped to 1.0.
	if got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}
