package services

import (
	"testing"

	"medvault-rag/models"
)

func TestTallyOutcome(t *testing.T) {
	tests := []struct {
		status       string
		processed    int
		deduplicated int
		skipped      int
		failed       int
		changed      bool
	}{
		{FileProcessed, 1, 0, 0, 0, true},
		{FileDeduplicated, 0, 1, 0, 0, true},
		{FileSkipped, 0, 0, 1, 0, false},
		{FileFailed, 0, 0, 0, 1, false},
	}

	for _, tt := range tests {
		result := &models.BatchResult{}
		changed := tallyOutcome(result, tt.status)
		if changed != tt.changed {
			t.Errorf("%s: changed = %v, want %v", tt.status, changed, tt.changed)
		}
		if result.Processed != tt.processed || result.Deduplicated != tt.deduplicated ||
			result.Skipped != tt.skipped || result.Failed != tt.failed {
			t.Errorf("%s: got {processed:%d deduplicated:%d skipped:%d failed:%d}, want {%d %d %d %d}",
				tt.status, result.Processed, result.Deduplicated, result.Skipped, result.Failed,
				tt.processed, tt.deduplicated, tt.skipped, tt.failed)
		}
	}
}

func TestTallyOutcomeKeepsClonesOutOfProcessed(t *testing.T) {
	result := &models.BatchResult{}
	tallyOutcome(result, FileProcessed)
	tallyOutcome(result, FileDeduplicated)
	tallyOutcome(result, FileDeduplicated)

	if result.Processed != 1 {
		t.Errorf("Processed = %d, want 1", result.Processed)
	}
	if result.Deduplicated != 2 {
		t.Errorf("Deduplicated = %d, want 2", result.Deduplicated)
	}
}
