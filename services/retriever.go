package services

import (
	"sort"
	"strings"
)

const chunkJoiner = "\n\n---\n\n"

// Retriever selects the most relevant chunks for a query and assembles them
// into a bounded context, balancing coverage across source documents.
type Retriever struct {
	topK int
}

// NewRetriever creates a retriever taking up to topK chunks.
func NewRetriever(topK int) *Retriever {
	return &Retriever{topK: topK}
}

// contextBudget returns the character budget for the assembled context.
// Grows with document count but sub-linearly, to stay within the completion
// model's practical input limits.
func contextBudget(docCount int) int {
	switch {
	case docCount <= 1:
		return 6000
	case docCount <= 3:
		return 8000
	default:
		return 10000
	}
}

// AssembleContext embeds the query with the index's vectorizer, over-retrieves
// 2*topK candidates, caps the share any single document contributes, and
// joins the survivors in original document order. Falls back to the leading
// chunks when the query shares no vocabulary with the corpus.
func (r *Retriever) AssembleContext(idx *VectorIndex, query string, docCount int) (string, error) {
	if idx == nil || idx.Len() == 0 {
		return "", ErrEmptyCorpus
	}
	if docCount < 1 {
		docCount = 1
	}

	searchK := r.topK * 2
	if searchK > idx.Len() {
		searchK = idx.Len()
	}

	candidates, err := idx.Search(query, searchK)
	if err != nil || allZeroScores(candidates) {
		// Query vocabulary disjoint from the corpus. Use the leading
		// chunks rather than returning nothing.
		candidates = candidates[:0]
		for i, text := range idx.Chunks() {
			if i >= r.topK {
				break
			}
			candidates = append(candidates, SearchResult{ChunkIndex: i, Text: text})
		}
	}
	if len(candidates) == 0 {
		return "", ErrEmptyCorpus
	}

	selected := r.balanceAcrossDocuments(candidates, idx.Len(), docCount)

	// Re-order by document position so the context reads coherently.
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].ChunkIndex < selected[j].ChunkIndex
	})

	budget := contextBudget(docCount)
	var sb strings.Builder
	for i, res := range selected {
		piece := res.Text
		if i > 0 {
			piece = chunkJoiner + piece
		}
		if sb.Len()+len(piece) > budget {
			// Keep a truncated slice of a relevant chunk rather than
			// dropping it outright.
			remaining := budget - sb.Len()
			if remaining > len(chunkJoiner)+100 {
				sb.WriteString(piece[:remaining])
				sb.WriteString("\n\n[Content truncated]")
			}
			break
		}
		sb.WriteString(piece)
	}

	context := sb.String()
	if strings.TrimSpace(context) == "" {
		return "", ErrEmptyCorpus
	}
	return context, nil
}

// balanceAcrossDocuments caps how many chunks any single document may
// contribute. Chunks are contiguous per document in the concatenated
// sequence, so document membership is estimated by position.
func (r *Retriever) balanceAcrossDocuments(candidates []SearchResult, totalChunks, docCount int) []SearchResult {
	limit := r.topK
	if limit > len(candidates) {
		limit = len(candidates)
	}
	if docCount <= 1 {
		return candidates[:limit]
	}

	chunksPerDoc := (totalChunks + docCount - 1) / docCount
	if chunksPerDoc < 1 {
		chunksPerDoc = 1
	}

	perDocCap := limit / docCount
	if perDocCap < 2 {
		perDocCap = 2
	}

	taken := make(map[int]int, docCount)
	selected := make([]SearchResult, 0, limit)
	for _, res := range candidates {
		if len(selected) >= limit {
			break
		}
		doc := res.ChunkIndex / chunksPerDoc
		if taken[doc] >= perDocCap {
			continue
		}
		taken[doc]++
		selected = append(selected, res)
	}

	// Backfill with skipped candidates if the caps left the budget unused.
	if len(selected) < limit {
		have := make(map[int]bool, len(selected))
		for _, res := range selected {
			have[res.ChunkIndex] = true
		}
		for _, res := range candidates {
			if len(selected) >= limit {
				break
			}
			if !have[res.ChunkIndex] {
				selected = append(selected, res)
			}
		}
	}

	return selected
}

func allZeroScores(results []SearchResult) bool {
	for _, r := range results {
		if r.Score != 0 {
			return false
		}
	}
	return true
}
