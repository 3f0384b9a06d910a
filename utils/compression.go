package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// compressThreshold is the minimum text size worth compressing; below this
// the gzip header overhead eats the savings.
const compressThreshold = 500

// CompressText gzips report text for storage. Returns the compressed bytes
// and whether compression was applied; short inputs pass through unchanged.
func CompressText(text string) ([]byte, bool, error) {
	data := []byte(text)
	if len(data) < compressThreshold {
		return data, false, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, false, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, false, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), true, nil
}

// DecompressText reverses CompressText.
func DecompressText(data []byte, compressed bool) (string, error) {
	if !compressed || len(data) == 0 {
		return string(data), nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read from gzip reader: %w", err)
	}
	return string(out), nil
}
