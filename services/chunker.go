package services

import (
	"regexp"
	"strings"
)

// DocumentSeparator delimits individual reports when several extracted texts
// are concatenated into one corpus before chunking.
const DocumentSeparator = "\n\n[DOCUMENT BREAK]\n\n"

// Section markers that commonly open a new block inside a lab report. Used
// by the header-split strategy before falling back to paragraph packing.
var sectionMarkers = []string{
	"complete blood count",
	"lipid profile",
	"liver function",
	"kidney function",
	"thyroid profile",
	"thyroid function",
	"vitamin d",
	"vitamin b12",
	"blood sugar",
	"urine examination",
	"patient name",
	"investigations",
	"interpretation",
	"follow up",
}

// Chunker converts normalized report text into bounded, overlapping segments
// for embedding. Pure and deterministic for fixed settings.
type Chunker struct {
	maxWords      int
	overlapWords  int
	minWords      int
	sentenceRegex *regexp.Regexp
	markerRegex   *regexp.Regexp
}

// NewChunker creates a chunker with the given word budgets.
func NewChunker(maxWords, overlapWords, minWords int) *Chunker {
	alternatives := make([]string, len(sectionMarkers))
	for i, m := range sectionMarkers {
		alternatives[i] = strings.ReplaceAll(regexp.QuoteMeta(m), `\ `, `\s+`)
	}

	return &Chunker{
		maxWords:      maxWords,
		overlapWords:  overlapWords,
		minWords:      minWords,
		sentenceRegex: regexp.MustCompile(`[.!?]+`),
		markerRegex:   regexp.MustCompile(`(?i)` + strings.Join(alternatives, "|")),
	}
}

// ChunkText splits text using a cascade of strategies: explicit document
// separators, then medical section headers, then paragraph packing with
// overlap. Returns nil when the text has too few words to index.
func (c *Chunker) ChunkText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if chunks := c.splitOnSeparators(text); len(chunks) >= 2 {
		return chunks
	}

	if chunks := c.splitOnSectionMarkers(text); len(chunks) >= 3 {
		return chunks
	}

	return c.packParagraphs(text)
}

// splitOnSeparators splits at explicit document-break markers, dropping
// segments below the word floor.
func (c *Chunker) splitOnSeparators(text string) []string {
	if !strings.Contains(text, strings.TrimSpace(DocumentSeparator)) {
		return nil
	}

	var chunks []string
	for _, segment := range strings.Split(text, strings.TrimSpace(DocumentSeparator)) {
		segment = strings.TrimSpace(segment)
		if wordCount(segment) >= c.minWords {
			// Oversized reports still get packed to the word budget.
			chunks = append(chunks, c.packParagraphs(segment)...)
		}
	}
	return chunks
}

// splitOnSectionMarkers cuts the text at each known section header.
func (c *Chunker) splitOnSectionMarkers(text string) []string {
	locs := c.markerRegex.FindAllStringIndex(text, -1)
	if len(locs) < 3 {
		return nil
	}

	bounds := make([]int, 0, len(locs)+2)
	bounds = append(bounds, 0)
	for _, loc := range locs {
		if loc[0] > 0 {
			bounds = append(bounds, loc[0])
		}
	}
	bounds = append(bounds, len(text))

	var sections []string
	for i := 0; i < len(bounds)-1; i++ {
		section := strings.TrimSpace(text[bounds[i]:bounds[i+1]])
		if wordCount(section) >= c.minWords {
			sections = append(sections, section)
		}
	}

	if len(sections) < 3 {
		return nil
	}
	return sections
}

// packParagraphs greedily packs paragraphs into chunks of at most maxWords,
// seeding each new chunk with the tail of the previous one for continuity.
// Paragraphs longer than the budget are re-split at sentence boundaries.
func (c *Chunker) packParagraphs(text string) []string {
	paragraphs := splitNonEmpty(text, "\n\n")
	if len(paragraphs) == 0 {
		paragraphs = splitNonEmpty(text, "\n")
	}
	if len(paragraphs) == 0 {
		// Degenerate fallback: the whole text as one chunk, if substantial.
		if wordCount(text) >= 20 {
			return []string{text}
		}
		return nil
	}

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			currentWords = 0
		}
	}

	for _, para := range paragraphs {
		paraWords := wordCount(para)

		if paraWords > c.maxWords {
			flush()
			chunks = append(chunks, c.packSentences(para)...)
			continue
		}

		if currentWords+paraWords <= c.maxWords {
			current = append(current, para)
			currentWords += paraWords
			continue
		}

		flush()

		// Seed the next chunk with the previous chunk's tail.
		if len(chunks) > 0 && c.overlapWords > 0 {
			prev := strings.Fields(chunks[len(chunks)-1])
			if len(prev) > c.overlapWords {
				prev = prev[len(prev)-c.overlapWords:]
			}
			current = []string{strings.Join(prev, " "), para}
			currentWords = len(prev) + paraWords
		} else {
			current = []string{para}
			currentWords = paraWords
		}
	}
	flush()

	// Drop fragments below the word floor.
	kept := chunks[:0]
	for _, chunk := range chunks {
		if wordCount(chunk) >= c.minWords {
			kept = append(kept, chunk)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// packSentences splits an oversized paragraph at sentence boundaries and
// greedily packs the sentences, without cross-chunk overlap.
func (c *Chunker) packSentences(para string) []string {
	var chunks []string
	var current []string
	count := 0

	for _, sentence := range c.sentenceRegex.Split(para, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		words := wordCount(sentence)
		if count+words <= c.maxWords {
			current = append(current, sentence)
			count += words
		} else {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, ". ")+".")
			}
			current = []string{sentence}
			count = words
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ". ")+".")
	}

	return chunks
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func splitNonEmpty(text, sep string) []string {
	parts := strings.Split(text, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
