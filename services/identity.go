package services

import (
	"regexp"
	"sort"
	"strings"

	"medvault-rag/models"
)

// Classification thresholds. At or above matchThreshold a document is
// trusted outright; between lowConfidenceThreshold and matchThreshold it is
// included but flagged; below it is excluded as another patient's document.
const (
	matchThreshold         = 0.70
	lowConfidenceThreshold = 0.40
	filenameMatchScore     = 0.60
)

var (
	namePrefixes = []string{"mr", "mrs", "ms", "miss", "dr", "prof", "sr", "sra", "srta"}
	nameSuffixes = []string{"jr", "sr", "ii", "iii", "iv", "esq", "md", "phd"}
)

// NormalizeName lowercases, trims, and strips honorific prefixes and
// suffixes for comparison.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))

	for _, prefix := range namePrefixes {
		re := regexp.MustCompile(`^` + prefix + `\.?\s+`)
		normalized = re.ReplaceAllString(normalized, "")
	}
	for _, suffix := range nameSuffixes {
		re := regexp.MustCompile(`\s+` + suffix + `\.?$`)
		normalized = re.ReplaceAllString(normalized, "")
	}

	return strings.Join(strings.Fields(normalized), " ")
}

// NameSimilarity scores how plausibly two names refer to the same person,
// in [0,1]. Pure function of its inputs; identical inputs always yield
// identical scores.
func NameSimilarity(name1, name2 string) float64 {
	if name1 == "" || name2 == "" {
		return 0.0
	}

	n1 := NormalizeName(name1)
	n2 := NormalizeName(name2)
	if n1 == "" || n2 == "" {
		return 0.0
	}

	if n1 == n2 {
		return 1.0
	}

	// One name contains the other, e.g. "jane" inside "jane doe".
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		longer := len(n1)
		shorter := len(n2)
		if shorter > longer {
			longer, shorter = shorter, longer
		}
		return 0.75 + (float64(shorter)/float64(longer))*0.20
	}

	words1 := strings.Fields(n1)
	words2 := strings.Fields(n2)
	if overlap := jaccardOverlap(words1, words2); overlap > 0 {
		firstMatch := words1[0] == words2[0]
		lastMatch := words1[len(words1)-1] == words2[len(words2)-1]

		switch {
		case firstMatch && lastMatch && commonWords(words1, words2) >= 2:
			return 0.90
		case firstMatch || lastMatch:
			return 0.70 + overlap*0.25
		default:
			return 0.50 + overlap*0.30
		}
	}

	// Character-level similarity, dampened when weak so short generic
	// names do not false-positive.
	ratio := sequenceRatio(n1, n2)
	if ratio >= 0.8 {
		return ratio
	}
	return ratio * 0.7
}

func commonWords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	n := 0
	seen := make(map[string]bool, len(b))
	for _, w := range b {
		if set[w] && !seen[w] {
			n++
			seen[w] = true
		}
	}
	return n
}

func jaccardOverlap(a, b []string) float64 {
	union := make(map[string]bool, len(a)+len(b))
	for _, w := range a {
		union[w] = true
	}
	for _, w := range b {
		union[w] = true
	}
	common := commonWords(a, b)
	if common == 0 || len(union) == 0 {
		return 0
	}
	return float64(common) / float64(len(union))
}

// sequenceRatio is the classic match-ratio over two strings: twice the
// total length of matching blocks divided by the combined length.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matches := matchingBlocks(a, b)
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

// matchingBlocks totals the lengths of the longest common blocks found by
// recursively splitting around the longest common substring.
func matchingBlocks(a, b string) int {
	start1, start2, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:start1], b[:start2])
	total += matchingBlocks(a[start1+size:], b[start2+size:])
	return total
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestLen, bestA, bestB := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestLen = cur[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestLen
}

// Verification is the outcome of checking one document's extracted name
// against the account owner's display name.
type Verification struct {
	Status        string  `json:"status"` // matched, mismatched, pending
	Confidence    float64 `json:"confidence"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// VerifyPatientName classifies an extracted report name against the profile
// name. When no usable name was extracted, the file name is scanned for
// parts of the profile name before giving up as pending.
func VerifyPatientName(reportName, profileName, fileName string) Verification {
	if profileName == "" || invalidNames[strings.ToLower(strings.TrimSpace(profileName))] {
		return Verification{Status: models.MatchPending, Message: "profile name not set"}
	}

	if reportName == "" || invalidNames[strings.ToLower(strings.TrimSpace(reportName))] {
		if filenameContainsName(fileName, profileName) {
			return Verification{
				Status:     models.MatchMatched,
				Confidence: filenameMatchScore,
				Message:    "matched by file name",
			}
		}
		return Verification{Status: models.MatchPending, Message: "patient name not found in report"}
	}

	similarity := NameSimilarity(reportName, profileName)
	switch {
	case similarity >= matchThreshold:
		return Verification{Status: models.MatchMatched, Confidence: similarity}
	case similarity >= lowConfidenceThreshold:
		return Verification{
			Status:        models.MatchMatched,
			Confidence:    similarity,
			LowConfidence: true,
			Message:       "name match is low confidence",
		}
	default:
		return Verification{
			Status:     models.MatchMismatched,
			Confidence: similarity,
			Message:    "report appears to belong to " + reportName,
		}
	}
}

// filenameContainsName reports whether any part of the profile name longer
// than two characters appears in the file name.
func filenameContainsName(fileName, profileName string) bool {
	if fileName == "" {
		return false
	}
	lower := strings.ToLower(fileName)
	for _, part := range strings.Fields(NormalizeName(profileName)) {
		if len(part) > 2 && strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// PatientDistribution summarizes how many distinct patients appear in a
// record set, for actionable mismatch errors.
type PatientDistribution struct {
	TotalReports        int            `json:"total_reports"`
	PatientCounts       map[string]int `json:"patient_names"`
	HasMultiplePatients bool           `json:"has_multiple_patients"`
	PrimaryPatient      string         `json:"primary_patient,omitempty"`
	OtherPatients       []string       `json:"other_patients,omitempty"`
}

// DistributionOf tallies the patient names across reports.
func DistributionOf(reports []models.Report) PatientDistribution {
	counts := make(map[string]int)
	for _, r := range reports {
		name := strings.TrimSpace(r.PatientName)
		if name == "" || invalidNames[strings.ToLower(name)] {
			continue
		}
		if NormalizeName(name) != "" {
			counts[name]++
		}
	}

	dist := PatientDistribution{
		TotalReports:  len(reports),
		PatientCounts: counts,
	}
	if len(counts) == 0 {
		return dist
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	dist.HasMultiplePatients = len(names) > 1
	dist.PrimaryPatient = names[0]
	dist.OtherPatients = names[1:]
	return dist
}
