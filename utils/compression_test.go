package utils

import (
	"strings"
	"testing"
)

func TestCompressTextRoundTrip(t *testing.T) {
	text := strings.Repeat("Hemoglobin 13.5 g/dL within reference range. ", 50)

	data, compressed, err := CompressText(text)
	if err != nil {
		t.Fatalf("CompressText: %v", err)
	}
	if !compressed {
		t.Fatal("long text should be compressed")
	}
	if len(data) >= len(text) {
		t.Errorf("compressed size %d not smaller than original %d", len(data), len(text))
	}

	got, err := DecompressText(data, compressed)
	if err != nil {
		t.Fatalf("DecompressText: %v", err)
	}
	if got != text {
		t.Error("round trip did not reproduce original text")
	}
}

func TestCompressTextShortInputPassthrough(t *testing.T) {
	text := "Short report."

	data, compressed, err := CompressText(text)
	if err != nil {
		t.Fatalf("CompressText: %v", err)
	}
	if compressed {
		t.Error("short text should not be compressed")
	}
	if string(data) != text {
		t.Errorf("passthrough bytes = %q, want %q", data, text)
	}

	got, err := DecompressText(data, compressed)
	if err != nil {
		t.Fatalf("DecompressText: %v", err)
	}
	if got != text {
		t.Errorf("DecompressText = %q, want %q", got, text)
	}
}

func TestDecompressTextEmpty(t *testing.T) {
	got, err := DecompressText(nil, true)
	if err != nil {
		t.Fatalf("DecompressText: %v", err)
	}
	if got != "" {
		t.Errorf("empty input = %q, want empty string", got)
	}
}

func TestDecompressTextCorruptData(t *testing.T) {
	if _, err := DecompressText([]byte("not gzip data"), true); err == nil {
		t.Error("corrupt gzip data should return an error")
	}
}
