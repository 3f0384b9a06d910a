package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrEmptyCorpus is returned when every chunk is blank after filtering.
	ErrEmptyCorpus = errors.New("no non-empty chunks to index")
	// ErrDimensionMismatch is returned when a produced vector is not
	// exactly the configured width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var tokenRegex = regexp.MustCompile(`\w+`)

// Vectorizer is a bounded-vocabulary TF-IDF model over unigrams and bigrams.
// The vocabulary is capped at the embedding dimension so every transform
// yields exactly dim columns after zero-padding.
type Vectorizer struct {
	dim   int
	vocab map[string]int
	idf   []float64
}

// NewVectorizer creates an unfitted vectorizer of the given dimension.
func NewVectorizer(dim int) *Vectorizer {
	return &Vectorizer{dim: dim}
}

func tokenize(text string) []string {
	unigrams := tokenRegex.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(unigrams)*2)
	terms = append(terms, unigrams...)
	for i := 0; i+1 < len(unigrams); i++ {
		terms = append(terms, unigrams[i]+" "+unigrams[i+1])
	}
	return terms
}

// Fit builds the vocabulary and inverse document frequencies from the chunk
// set. The dim most frequent terms across the corpus are kept, ties broken
// alphabetically for determinism.
func (v *Vectorizer) Fit(chunks []string) error {
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)
	docs := 0

	for _, chunk := range chunks {
		terms := tokenize(chunk)
		if len(terms) == 0 {
			continue
		}
		docs++

		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			corpusFreq[t]++
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}

	if docs == 0 {
		return ErrEmptyCorpus
	}

	terms := make([]string, 0, len(corpusFreq))
	for t := range corpusFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.dim {
		terms = terms[:v.dim]
	}

	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log(float64(1+docs)/float64(1+docFreq[t])) + 1
	}

	return nil
}

// Transform embeds text into the fitted space: TF-IDF weights, zero-padded
// to dim columns, L2-normalized. A text sharing no vocabulary with the
// corpus yields the zero vector.
func (v *Vectorizer) Transform(text string) ([]float32, error) {
	if v.vocab == nil {
		return nil, fmt.Errorf("vectorizer not fitted")
	}

	weights := make([]float64, v.dim)
	for _, t := range tokenize(text) {
		if col, ok := v.vocab[t]; ok {
			weights[col] += v.idf[col]
		}
	}

	var norm float64
	for _, w := range weights {
		norm += w * w
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, v.dim)
	if norm > 0 {
		for i, w := range weights {
			vec[i] = float32(w / norm)
		}
	}
	if len(vec) != v.dim {
		return nil, ErrDimensionMismatch
	}
	return vec, nil
}

// SearchResult is one retrieved chunk with its cosine similarity score.
type SearchResult struct {
	ChunkIndex int
	Text       string
	Score      float32
}

// VectorIndex is a request-scoped exact inner-product index. The fitted
// vectorizer, chunk list, and vectors travel together as one unit; mixing
// vectors from a differently-fitted vectorizer is meaningless.
type VectorIndex struct {
	vectorizer *Vectorizer
	chunks     []string
	vectors    [][]float32
}

// BuildIndex fits a vectorizer on the chunk set and embeds every chunk.
func BuildIndex(chunks []string, dim int) (*VectorIndex, error) {
	valid := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, ErrEmptyCorpus
	}

	vectorizer := NewVectorizer(dim)
	if err := vectorizer.Fit(valid); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(valid))
	for i, chunk := range valid {
		vec, err := vectorizer.Transform(chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}

	return &VectorIndex{
		vectorizer: vectorizer,
		chunks:     valid,
		vectors:    vectors,
	}, nil
}

// Chunks returns the indexed chunk list in original order.
func (idx *VectorIndex) Chunks() []string { return idx.chunks }

// Len returns the number of indexed chunks.
func (idx *VectorIndex) Len() int { return len(idx.chunks) }

// Search embeds the query with the index's own vectorizer and returns the
// top k chunks by inner product, highest first.
func (idx *VectorIndex) Search(query string, k int) ([]SearchResult, error) {
	queryVec, err := idx.vectorizer.Transform(query)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(idx.vectors))
	for i, vec := range idx.vectors {
		var score float32
		for j := range vec {
			score += vec[j] * queryVec[j]
		}
		results[i] = SearchResult{ChunkIndex: i, Text: idx.chunks[i], Score: score}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}
