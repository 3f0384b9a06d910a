package services

import (
	"fmt"
	"strings"
	"testing"
)

func buildTestIndex(t *testing.T, chunks []string) *VectorIndex {
	t.Helper()
	idx, err := BuildIndex(chunks, 128)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return idx
}

func TestAssembleContextNilIndex(t *testing.T) {
	r := NewRetriever(10)
	if _, err := r.AssembleContext(nil, "query", 1); err == nil {
		t.Fatal("expected error for nil index")
	}
}

func TestAssembleContextJoinsWithSeparator(t *testing.T) {
	r := NewRetriever(10)
	idx := buildTestIndex(t, labChunks)

	context, err := r.AssembleContext(idx, "hemoglobin and cholesterol values", 1)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if !strings.Contains(context, "---") {
		t.Errorf("expected chunk separator in context: %q", context)
	}
	if !strings.Contains(context, "Hemoglobin") {
		t.Errorf("expected hemoglobin chunk in context")
	}
}

func TestAssembleContextPreservesDocumentOrder(t *testing.T) {
	r := NewRetriever(10)
	idx := buildTestIndex(t, labChunks)

	context, err := r.AssembleContext(idx, "cholesterol creatinine hemoglobin", 1)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	// Selected chunks must appear in corpus order regardless of score order.
	posHb := strings.Index(context, "Hemoglobin")
	posChol := strings.Index(context, "cholesterol")
	posCreat := strings.Index(context, "creatinine")
	if posHb == -1 || posChol == -1 || posCreat == -1 {
		t.Fatalf("expected all three topics in context: %q", context)
	}
	if !(posHb < posChol && posChol < posCreat) {
		t.Errorf("chunks out of corpus order: hb=%d chol=%d creat=%d", posHb, posChol, posCreat)
	}
}

func TestAssembleContextDisjointQueryFallsBack(t *testing.T) {
	r := NewRetriever(3)
	idx := buildTestIndex(t, labChunks)

	context, err := r.AssembleContext(idx, "zzz qqq xxx", 1)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if !strings.Contains(context, labChunks[0]) {
		t.Errorf("fallback should include the leading chunk")
	}
}

func TestAssembleContextBudgetTruncation(t *testing.T) {
	// Chunks big enough that a handful blow the single-document budget.
	big := make([]string, 8)
	for i := range big {
		big[i] = fmt.Sprintf("report section %d ", i) + strings.Repeat(fmt.Sprintf("value%d mg/dL measured ", i), 80)
	}
	r := NewRetriever(8)
	idx := buildTestIndex(t, big)

	context, err := r.AssembleContext(idx, "value mg/dL measured report section", 1)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(context) > 6000+len("\n\n[Content truncated]") {
		t.Errorf("context exceeds single-document budget: %d chars", len(context))
	}
	if !strings.Contains(context, "[Content truncated]") {
		t.Errorf("expected truncation marker")
	}
}

func TestContextBudgetScalesWithDocumentCount(t *testing.T) {
	cases := []struct {
		docs int
		want int
	}{
		{1, 6000},
		{2, 8000},
		{3, 8000},
		{4, 10000},
		{12, 10000},
	}
	for _, tc := range cases {
		if got := contextBudget(tc.docs); got != tc.want {
			t.Errorf("contextBudget(%d) = %d, want %d", tc.docs, got, tc.want)
		}
	}
}

func TestBalanceAcrossDocumentsCapsPerDocument(t *testing.T) {
	// Simulate 2 documents of 5 chunks each; all candidates from document 0.
	candidates := make([]SearchResult, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, SearchResult{ChunkIndex: i, Score: float32(10 - i)})
	}

	r := NewRetriever(6)
	selected := r.balanceAcrossDocuments(candidates, 10, 2)

	if len(selected) != 6 {
		t.Fatalf("expected 6 selected, got %d", len(selected))
	}
	perDoc := map[int]int{}
	for _, res := range selected {
		perDoc[res.ChunkIndex/5]++
	}
	if perDoc[0] < 1 || perDoc[1] < 1 {
		t.Errorf("expected both documents represented, got %v", perDoc)
	}
}
