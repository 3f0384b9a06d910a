package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestHashBytes(t *testing.T) {
	data := []byte("Complete Blood Count\nHemoglobin 13.5 g/dL")
	got := HashBytes(data)

	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])
	if got != want {
		t.Errorf("HashBytes = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(got))
	}
}

func TestHashBytesDistinguishesContent(t *testing.T) {
	a := HashBytes([]byte("report A"))
	b := HashBytes([]byte("report B"))
	if a == b {
		t.Error("different content produced the same digest")
	}
}

func TestReportsSignatureOrderIndependent(t *testing.T) {
	lines := []ReportLine{
		{FilePath: "jane/cbc_march.pdf", TextLength: 4200, ProcessedAtUnix: 1710000000},
		{FilePath: "jane/lipid_april.pdf", TextLength: 3100, ProcessedAtUnix: 1712600000},
		{FilePath: "jane/thyroid_may.pdf", TextLength: 2800, ProcessedAtUnix: 1715200000},
	}
	shuffled := []ReportLine{lines[2], lines[0], lines[1]}

	if ReportsSignature(lines) != ReportsSignature(shuffled) {
		t.Error("signature changed with iteration order")
	}
}

func TestReportsSignatureSensitivity(t *testing.T) {
	base := []ReportLine{
		{FilePath: "jane/cbc_march.pdf", TextLength: 4200, ProcessedAtUnix: 1710000000},
		{FilePath: "jane/lipid_april.pdf", TextLength: 3100, ProcessedAtUnix: 1712600000},
	}
	sig := ReportsSignature(base)

	reprocessed := []ReportLine{base[0], {FilePath: base[1].FilePath, TextLength: base[1].TextLength, ProcessedAtUnix: 1712999999}}
	if ReportsSignature(reprocessed) == sig {
		t.Error("reprocessing a report did not change the signature")
	}

	edited := []ReportLine{base[0], {FilePath: base[1].FilePath, TextLength: 3105, ProcessedAtUnix: base[1].ProcessedAtUnix}}
	if ReportsSignature(edited) == sig {
		t.Error("text length change did not change the signature")
	}

	added := append([]ReportLine{}, base...)
	added = append(added, ReportLine{FilePath: "jane/xray_june.pdf", TextLength: 900, ProcessedAtUnix: 1717800000})
	if ReportsSignature(added) == sig {
		t.Error("adding a report did not change the signature")
	}

	if ReportsSignature(base[:1]) == sig {
		t.Error("removing a report did not change the signature")
	}
}

func TestReportsSignatureEmpty(t *testing.T) {
	a := ReportsSignature(nil)
	b := ReportsSignature([]ReportLine{})
	if a != b {
		t.Error("nil and empty slices should produce the same signature")
	}
	if a == "" {
		t.Error("empty corpus should still produce a digest")
	}
}
