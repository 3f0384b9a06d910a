package services

import (
	"testing"

	"medvault-rag/models"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Dr. Jane Doe", "jane doe"},
		{"MR. John Smith", "john smith"},
		{"  Jane   Doe  ", "jane doe"},
		{"Jane Doe Jr.", "jane doe"},
		{"Mrs. Anita R Sharma", "anita r sharma"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNameSimilarityBands(t *testing.T) {
	cases := []struct {
		a, b     string
		min, max float64
	}{
		// Exact after honorific stripping.
		{"Dr. Jane Doe", "Jane Doe", 1.0, 1.0},
		// Containment: first name inside full name.
		{"Jane", "Jane Doe", 0.75, 0.95},
		// Shared first and last name with a middle difference.
		{"Jane Anne Doe", "Jane Doe", 0.85, 1.0},
		// Shared surname only.
		{"Robert Doe", "Jane Doe", 0.70, 0.95},
		// Unrelated names stay below the mismatch threshold.
		{"Jane Doe", "Ramesh Kumar", 0.0, 0.40},
	}
	for _, tc := range cases {
		got := NameSimilarity(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Errorf("NameSimilarity(%q, %q) = %.3f, want [%.2f, %.2f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestNameSimilaritySymmetricAndDeterministic(t *testing.T) {
	a, b := "Jane Anne Doe", "Jane Doe"
	if NameSimilarity(a, b) != NameSimilarity(b, a) {
		t.Errorf("similarity not symmetric")
	}
	if NameSimilarity(a, b) != NameSimilarity(a, b) {
		t.Errorf("similarity not deterministic")
	}
}

func TestNameSimilarityEmptyInputs(t *testing.T) {
	if got := NameSimilarity("", "Jane Doe"); got != 0 {
		t.Errorf("expected 0 for empty name, got %v", got)
	}
	if got := NameSimilarity("Jane Doe", ""); got != 0 {
		t.Errorf("expected 0 for empty name, got %v", got)
	}
}

func TestVerifyPatientNameClassification(t *testing.T) {
	v := VerifyPatientName("Jane Doe", "Dr. Jane Doe", "report.pdf")
	if v.Status != models.MatchMatched || v.LowConfidence {
		t.Errorf("expected confident match, got %+v", v)
	}

	v = VerifyPatientName("Ramesh Kumar", "Jane Doe", "report.pdf")
	if v.Status != models.MatchMismatched {
		t.Errorf("expected mismatch, got %+v", v)
	}
}

func TestVerifyPatientNameLowConfidenceIncluded(t *testing.T) {
	// A weak partial match lands in the low-confidence band: still matched,
	// but flagged.
	v := VerifyPatientName("Jane Smith", "Jane Doe", "report.pdf")
	if v.Status != models.MatchMatched {
		t.Fatalf("expected matched status, got %+v", v)
	}
	if v.Confidence >= matchThreshold && v.LowConfidence {
		t.Errorf("confidence %v at or above threshold should not be flagged", v.Confidence)
	}
}

func TestVerifyPatientNameFilenameFallback(t *testing.T) {
	v := VerifyPatientName("", "Jane Doe", "jane_cbc_march.pdf")
	if v.Status != models.MatchMatched {
		t.Fatalf("expected filename-based match, got %+v", v)
	}
	if v.Confidence != filenameMatchScore {
		t.Errorf("expected fallback confidence %v, got %v", filenameMatchScore, v.Confidence)
	}

	v = VerifyPatientName("", "Jane Doe", "scan001.pdf")
	if v.Status != models.MatchPending {
		t.Errorf("expected pending without filename signal, got %+v", v)
	}
}

func TestVerifyPatientNameNoProfile(t *testing.T) {
	v := VerifyPatientName("Jane Doe", "", "report.pdf")
	if v.Status != models.MatchPending {
		t.Errorf("expected pending without profile name, got %+v", v)
	}
}

func TestVerifyPatientNameRejectsInvalidExtraction(t *testing.T) {
	v := VerifyPatientName("Unknown", "Jane Doe", "scan001.pdf")
	if v.Status != models.MatchPending {
		t.Errorf("expected pending for blacklisted extraction, got %+v", v)
	}
}

func TestDistributionOf(t *testing.T) {
	reports := []models.Report{
		{PatientName: "Jane Doe"},
		{PatientName: "Jane Doe"},
		{PatientName: "Ramesh Kumar"},
		{PatientName: ""},
		{PatientName: "Unknown"},
	}

	dist := DistributionOf(reports)
	if dist.TotalReports != 5 {
		t.Errorf("expected 5 total, got %d", dist.TotalReports)
	}
	if dist.PrimaryPatient != "Jane Doe" {
		t.Errorf("expected Jane Doe primary, got %q", dist.PrimaryPatient)
	}
	if !dist.HasMultiplePatients {
		t.Errorf("expected multiple patients flag")
	}
	if len(dist.OtherPatients) != 1 || dist.OtherPatients[0] != "Ramesh Kumar" {
		t.Errorf("unexpected other patients: %v", dist.OtherPatients)
	}
	if dist.PatientCounts["Unknown"] != 0 {
		t.Errorf("blacklisted name should not be counted")
	}
}
