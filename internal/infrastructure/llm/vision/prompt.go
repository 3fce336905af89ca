package vision

import (
	"regexp"
	"strings"
)

const ocrInstruction = "Extract all text from this image. Preserve the formatting and structure as much as possible."

// Large documents are trimmed to fit the model context window: the head and
// tail survive so intro and conclusion stay available to the summarizer.
const (
	maxSummaryInput = 80000
	headKeep        = 60000
	tailKeep        = 20000
)

var (
	codeFenceRe  = regexp.MustCompile("```\\w*\\s*")
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
	lineEdgeTrim = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

func buildSummaryPrompt(text string) string {
	cleaned := cleanRecognizedText(truncateForContext(text))

	return `You are an expert document analyst. Classify the document type, then produce a structured summary.
Return a strict JSON object with keys:
raw_text (string, the cleaned document text), summary (string, markdown with "##" section headings), confidence_score (number from 0 to 1), metadata (object).
No prose outside the JSON object.

Document text:
` + cleaned
}

func truncateForContext(text string) string {
	if len(text) <= maxSummaryInput {
		return text
	}
	return text[:headKeep] + "\n\n[... middle content truncated ...]\n\n" + text[len(text)-tailKeep:]
}

// cleanRecognizedText strips recognition artifacts before the text reaches
// the model: markdown fences, runs of blank lines, per-line edge whitespace.
func cleanRecognizedText(text string) string {
	cleaned := codeFenceRe.ReplaceAllString(text, "")
	cleaned = lineEdgeTrim.ReplaceAllString(cleaned, "")
	cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
