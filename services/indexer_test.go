package services

import (
	"errors"
	"math"
	"testing"
)

var labChunks = []string{
	"Hemoglobin 13.5 g/dL within normal reference range for adult female",
	"Total cholesterol 210 mg/dL slightly above the desirable limit",
	"TSH 2.1 uIU/mL thyroid function within normal limits",
	"Serum creatinine 0.9 mg/dL kidney function normal",
	"Vitamin D 18 ng/mL deficient supplementation advised",
}

func TestBuildIndexEmptyCorpus(t *testing.T) {
	if _, err := BuildIndex(nil, 64); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if _, err := BuildIndex([]string{"", "   "}, 64); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus for blank chunks, got %v", err)
	}
}

func TestTransformDimensionAndNorm(t *testing.T) {
	dim := 64
	v := NewVectorizer(dim)
	if err := v.Fit(labChunks); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	for _, chunk := range labChunks {
		vec, err := v.Transform(chunk)
		if err != nil {
			t.Fatalf("transform failed: %v", err)
		}
		if len(vec) != dim {
			t.Fatalf("expected %d columns, got %d", dim, len(vec))
		}

		var norm float64
		for _, x := range vec {
			norm += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
			t.Errorf("vector not unit length: %v", math.Sqrt(norm))
		}
	}
}

func TestTransformUnknownVocabularyYieldsZeroVector(t *testing.T) {
	v := NewVectorizer(32)
	if err := v.Fit(labChunks); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	vec, err := v.Transform("xylophone quartz zeppelin")
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for i, x := range vec {
		if x != 0 {
			t.Fatalf("expected zero vector, found %v at column %d", x, i)
		}
	}
}

func TestTransformUnfittedFails(t *testing.T) {
	if _, err := NewVectorizer(16).Transform("anything"); err == nil {
		t.Fatal("expected error from unfitted vectorizer")
	}
}

func TestSearchRanksExactChunkFirst(t *testing.T) {
	idx, err := BuildIndex(labChunks, 128)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	for i, chunk := range labChunks {
		results, err := idx.Search(chunk, 1)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].ChunkIndex != i {
			t.Errorf("query of chunk %d ranked chunk %d first", i, results[0].ChunkIndex)
		}
	}
}

func TestSearchTopicRelevance(t *testing.T) {
	idx, err := BuildIndex(labChunks, 128)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := idx.Search("what is the cholesterol level", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results[0].ChunkIndex != 1 {
		t.Errorf("expected cholesterol chunk first, got chunk %d", results[0].ChunkIndex)
	}
}

func TestSearchKLargerThanCorpus(t *testing.T) {
	idx, err := BuildIndex(labChunks, 128)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := idx.Search("hemoglobin", 50)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != len(labChunks) {
		t.Errorf("expected %d results, got %d", len(labChunks), len(results))
	}
}

func TestFitDeterministic(t *testing.T) {
	a := NewVectorizer(48)
	b := NewVectorizer(48)
	if err := a.Fit(labChunks); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if err := b.Fit(labChunks); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	va, _ := a.Transform(labChunks[0])
	vb, _ := b.Transform(labChunks[0])
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("vectors differ at column %d across identical fits", i)
		}
	}
}
