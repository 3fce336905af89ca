package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kirillkom/ocr-pipeline/internal/core/domain"
)

// Candidate JSON locations inside an unstructured model response, tried in
// order: fenced code block with a language tag, fenced block without one,
// then an inline object that carries both required keys.
var jsonPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile(`(?s)(\{[^{}]*"raw_text"[^{}]*"summary"[^{}]*\})`),
}

// Parser recovers structured content from the opaque output of the combined
// extraction+summarization step. Parsing never fails: when no JSON object
// with both "raw_text" and "summary" can be found, the blob degrades to a
// summary-only result marked as fallback.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(raw string) domain.ParsedResult {
	// Tier 1: the whole blob is the object.
	if result, ok := parseCandidate(raw); ok {
		return result
	}

	// Tiers 2 and 3: object embedded in fences or surrounding prose.
	for _, pattern := range jsonPatterns {
		match := pattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		if result, ok := parseCandidate(match[1]); ok {
			return result
		}
	}

	// Tier 4: unstructured text. Markdown headings mean the model produced
	// a structured summary; otherwise whatever follows the first blank line
	// is the summary.
	return fallbackResult(raw)
}

func parseCandidate(candidate string) (domain.ParsedResult, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return domain.ParsedResult{}, false
	}
	rawText, hasRawText := obj["raw_text"]
	summary, hasSummary := obj["summary"]
	if !hasRawText || !hasSummary {
		return domain.ParsedResult{}, false
	}

	return domain.ParsedResult{
		RawText:    asString(rawText),
		Summary:    asString(summary),
		Confidence: asFloat(obj["confidence_score"]),
		Metadata:   asMap(obj["metadata"]),
	}, true
}

func fallbackResult(raw string) domain.ParsedResult {
	var summary string
	if strings.Contains(raw, "##") {
		summary = strings.TrimSpace(raw)
	} else {
		parts := strings.SplitN(raw, "\n\n", 2)
		if len(parts) > 1 {
			summary = strings.TrimSpace(parts[1])
		} else {
			summary = strings.TrimSpace(raw)
		}
	}

	return domain.ParsedResult{
		Summary:  summary,
		Metadata: map[string]any{"parsing_method": "fallback"},
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
