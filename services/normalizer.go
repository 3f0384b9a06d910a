package services

import (
	"regexp"
	"strings"
)

// Scanner boilerplate that carries no clinical signal. Matched
// case-insensitively, line by line.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)scan to validate.*`),
	regexp.MustCompile(`(?i)page\s*\d+\s*of\s*\d+`),
	regexp.MustCompile(`(?i)barcode id.*`),
	regexp.MustCompile(`(?i)end of report.*`),
	regexp.MustCompile(`={5,}`),
	regexp.MustCompile(`-{5,}`),
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText strips scanner noise and collapses whitespace in OCR output.
// Idempotent: normalizing already-normalized text is a no-op. Returns ""
// for empty input, never errors.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	for _, pattern := range noisePatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	text = strings.ReplaceAll(text, "\r", "")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
