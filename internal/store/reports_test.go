package store

import (
	"context"
	"testing"
)

func TestDeleteOrphansRefusesEmptyListing(t *testing.T) {
	// An empty live-path list would make the $nin filter match every record
	// of the user. The guard must return before any database access, so a
	// store with no collection wired is enough to prove it.
	s := &ReportStore{}

	for _, livePaths := range [][]string{nil, {}} {
		deleted, err := s.DeleteOrphans(context.Background(), "user1", "", livePaths)
		if err != nil {
			t.Fatalf("DeleteOrphans(%v): %v", livePaths, err)
		}
		if deleted != 0 {
			t.Errorf("DeleteOrphans(%v) deleted %d records, want 0", livePaths, deleted)
		}
	}
}
