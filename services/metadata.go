package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"medvault-rag/internal/ai"
	"medvault-rag/internal/logger"
)

// ExtractedMetadata holds the structured fields derived from report text.
// Empty string means the field was not found.
type ExtractedMetadata struct {
	PatientName  string  `json:"patient_name"`
	Age          string  `json:"age"`
	Gender       string  `json:"gender"`
	ReportDate   string  `json:"report_date"`
	ReportType   string  `json:"report_type"`
	DoctorName   string  `json:"doctor_name"`
	HospitalName string  `json:"hospital_name"`
	Confidence   float64 `json:"extraction_confidence"`
	Source       string  `json:"source"` // "llm" or "regex"
}

// Placeholder words that are never valid extracted values.
var invalidNames = map[string]bool{
	"name": true, "patient": true, "sex": true, "age": true, "gender": true,
	"male": true, "female": true, "mr": true, "mrs": true, "ms": true,
	"dr": true, "test": true, "report": true, "unknown": true, "n/a": true,
	"null": true, "none": true, "": true,
}

const metadataSystemPrompt = `You are a medical metadata extractor. Extract patient info from reports.

OUTPUT: Valid JSON only, no explanations.

RULES:
- If field not found: use null
- Patient name: actual person's name (NOT "Name", "Patient", "Sex")
- Date format: DD/MM/YYYY
- Be precise, don't guess

EXAMPLE:
{
  "patient_name": "Rajesh Kumar",
  "age": "45",
  "gender": "Male",
  "report_date": "15/01/2025",
  "report_type": "Blood Test",
  "doctor_name": "Dr. Sharma",
  "hospital_name": "City Hospital"
}`

// headerSampleSize limits how much text is sent for extraction; metadata
// lives in the document header, not the body.
const headerSampleSize = 800

// MetadataExtractor derives structured fields from report text: LLM
// structured extraction first, regex heuristics when the model is
// unavailable or returns garbage. Extract never fails; at worst it returns
// an all-empty, zero-confidence result.
type MetadataExtractor struct {
	gemini *ai.GeminiClient
}

// NewMetadataExtractor creates an extractor. A nil client forces the regex
// path, useful in tests and degraded deployments.
func NewMetadataExtractor(gemini *ai.GeminiClient) *MetadataExtractor {
	return &MetadataExtractor{gemini: gemini}
}

// Extract pulls metadata from the report text header.
func (e *MetadataExtractor) Extract(ctx context.Context, text string) ExtractedMetadata {
	if e.gemini != nil {
		meta, err := e.extractWithModel(ctx, text)
		if err == nil {
			return meta
		}
		logger.Warn("metadata extraction via model failed, using regex fallback", "error", err)
	}
	return e.extractWithRegex(text)
}

type llmMetadata struct {
	PatientName  *string     `json:"patient_name"`
	Age          interface{} `json:"age"`
	Gender       *string     `json:"gender"`
	ReportDate   *string     `json:"report_date"`
	ReportType   *string     `json:"report_type"`
	DoctorName   *string     `json:"doctor_name"`
	HospitalName *string     `json:"hospital_name"`
}

func (e *MetadataExtractor) extractWithModel(ctx context.Context, text string) (ExtractedMetadata, error) {
	sample := text
	if len(sample) > headerSampleSize {
		sample = sample[:headerSampleSize]
	}

	userPrompt := fmt.Sprintf(`Extract metadata from this medical report header:

%s

Return JSON with: patient_name, age, gender, report_date, report_type, doctor_name, hospital_name`, sample)

	content, err := e.gemini.GenerateJSON(ctx, metadataSystemPrompt, userPrompt)
	if err != nil {
		return ExtractedMetadata{}, err
	}

	var raw llmMetadata
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return ExtractedMetadata{}, fmt.Errorf("unparsable extraction output: %w", err)
	}

	meta := validateMetadata(raw)
	meta.Confidence = extractionConfidence(meta, 1.0)
	meta.Source = "llm"
	return meta, nil
}

// validateMetadata cleans raw model output: placeholder words rejected,
// age clamped to a plausible range, gender canonicalized, dates
// standardized to DD/MM/YYYY.
func validateMetadata(raw llmMetadata) ExtractedMetadata {
	var meta ExtractedMetadata

	if raw.PatientName != nil {
		name := strings.TrimSpace(*raw.PatientName)
		if !invalidNames[strings.ToLower(name)] && len(name) > 2 && hasLetters(name) {
			meta.PatientName = name
		}
	}

	meta.Age = validateAge(raw.Age)

	if raw.Gender != nil {
		g := strings.ToLower(*raw.Gender)
		if strings.Contains(g, "female") {
			meta.Gender = "Female"
		} else if strings.Contains(g, "male") {
			meta.Gender = "Male"
		}
	}

	if raw.ReportDate != nil && strings.TrimSpace(*raw.ReportDate) != "" {
		meta.ReportDate = StandardizeDate(*raw.ReportDate)
	}

	meta.ReportType = validateLabel(raw.ReportType, "test", "report")
	meta.DoctorName = validateLabel(raw.DoctorName, "doctor", "dr")
	meta.HospitalName = validateLabel(raw.HospitalName, "hospital", "clinic")

	return meta
}

func validateAge(v interface{}) string {
	if v == nil {
		return ""
	}
	m := regexp.MustCompile(`\d+`).FindString(fmt.Sprintf("%v", v))
	if m == "" {
		return ""
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 || n >= 150 {
		return ""
	}
	return strconv.Itoa(n)
}

func validateLabel(v *string, blacklist ...string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	if len(s) <= 2 {
		return ""
	}
	lower := strings.ToLower(s)
	if lower == "unknown" || lower == "null" || lower == "none" {
		return ""
	}
	for _, b := range blacklist {
		if lower == b {
			return ""
		}
	}
	return s
}

func hasLetters(s string) bool {
	return regexp.MustCompile(`[a-zA-Z]{2,}`).MatchString(s)
}

// extractionConfidence scores the fraction of the seven fields found,
// boosted to at least 0.5 when a patient name is present, capped at limit.
func extractionConfidence(meta ExtractedMetadata, limit float64) float64 {
	found := 0
	for _, v := range []string{
		meta.PatientName, meta.Age, meta.Gender, meta.ReportDate,
		meta.ReportType, meta.DoctorName, meta.HospitalName,
	} {
		if v != "" {
			found++
		}
	}

	confidence := float64(found) / 7.0
	if meta.PatientName != "" && confidence < 0.5 {
		confidence = 0.5
	}
	if confidence > limit {
		confidence = limit
	}
	return math.Round(confidence*100) / 100
}

var (
	// Name continuations only cross spaces and tabs, never a newline, so a
	// following "Age:" line is not swallowed into the name.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Patient\s*Name\s*[:\-]?[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`(?i)Name\s*[:\-]?[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`Mr\.?[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`Mrs\.?[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)`),
	}
	agePattern    = regexp.MustCompile(`(?i)Age\s*[:\-]?\s*(\d+)`)
	malePattern   = regexp.MustCompile(`(?i)\b(Male|M)\b`)
	femalePattern = regexp.MustCompile(`(?i)\b(Female|F)\b`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Date\s*[:\-]?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}
	typePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Complete Blood Count|CBC|Blood Test|Lipid Profile|Kidney Function|Liver Function|Thyroid Profile)`),
		regexp.MustCompile(`(?i)Test:\s*([A-Za-z\s]+)`),
	}
)

// extractWithRegex is the degraded path: pattern heuristics over the raw
// text. Confidence is capped at 0.6 since regexes misfire more often.
func (e *MetadataExtractor) extractWithRegex(text string) ExtractedMetadata {
	var meta ExtractedMetadata

	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) > 2 && !invalidNames[strings.ToLower(name)] {
				meta.PatientName = name
				break
			}
		}
	}

	if m := agePattern.FindStringSubmatch(text); m != nil {
		meta.Age = validateAge(m[1])
	}

	if femalePattern.MatchString(text) {
		meta.Gender = "Female"
	} else if malePattern.MatchString(text) {
		meta.Gender = "Male"
	}

	for _, pattern := range datePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			meta.ReportDate = StandardizeDate(m[1])
			break
		}
	}

	for _, pattern := range typePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			meta.ReportType = strings.TrimSpace(m[1])
			break
		}
	}

	meta.Confidence = extractionConfidence(meta, 0.6)
	meta.Source = "regex"
	return meta
}

var (
	dmyDate  = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	ymdDate  = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	dmy2Date = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2})`)
)

// StandardizeDate normalizes a recognized date layout to DD/MM/YYYY.
// Two-digit years pivot at 50: below maps to 20xx, at or above to 19xx.
// Unrecognized input passes through unchanged.
func StandardizeDate(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)

	if m := dmyDate.FindStringSubmatch(dateStr); m != nil {
		return fmt.Sprintf("%s/%s/%s", pad2(m[1]), pad2(m[2]), m[3])
	}
	if m := ymdDate.FindStringSubmatch(dateStr); m != nil {
		return fmt.Sprintf("%s/%s/%s", pad2(m[3]), pad2(m[2]), m[1])
	}
	if m := dmy2Date.FindStringSubmatch(dateStr); m != nil {
		year, _ := strconv.Atoi(m[3])
		century := "19"
		if year < 50 {
			century = "20"
		}
		return fmt.Sprintf("%s/%s/%s%s", pad2(m[1]), pad2(m[2]), century, m[3])
	}

	return dateStr
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
