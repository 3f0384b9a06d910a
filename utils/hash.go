package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// HashBytes returns the hex SHA-256 digest of raw file content. Used to
// detect re-uploads of the same document under a different path.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReportLine is one report's contribution to a corpus signature.
type ReportLine struct {
	FilePath        string
	TextLength      int
	ProcessedAtUnix int64
}

// ReportsSignature derives a stable fingerprint for a set of reports. Lines
// are sorted before hashing so iteration order never changes the result;
// any report added, removed, or reprocessed produces a new signature.
func ReportsSignature(lines []ReportLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s|%d|%d", l.FilePath, l.TextLength, l.ProcessedAtUnix))
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}
