package models

import "time"

// ProcessRequest is the body of POST /api/v1/reports/process and its async
// variant. Paths are storage keys relative to the user's vault bucket; an
// empty list means process everything under the folder scope.
type ProcessRequest struct {
	Paths       []string `json:"paths"`
	FolderScope string   `json:"folder_scope"`
	PatientName string   `json:"patient_name"`
}

// FileResult reports the outcome of processing one file in a batch.
type FileResult struct {
	FilePath            string  `json:"file_path"`
	Status              string  `json:"status"`
	Error               string  `json:"error,omitempty"`
	TextLength          int     `json:"text_length,omitempty"`
	PatientName         string  `json:"patient_name,omitempty"`
	NameMatchStatus     string  `json:"name_match_status,omitempty"`
	NameMatchConfidence float64 `json:"name_match_confidence,omitempty"`
	Deduplicated        bool    `json:"deduplicated,omitempty"`
}

// BatchResult aggregates a whole process call. Deduplicated counts files
// persisted by cloning a content-identical record rather than re-extracting.
type BatchResult struct {
	Processed    int          `json:"processed"`
	Deduplicated int          `json:"deduplicated"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	Results      []FileResult `json:"results"`
}

// SummaryRequest is the body of POST /api/v1/summary. An empty question
// falls back to the default health-summary prompt. UseCache defaults to
// true when omitted; ForceRegenerate bypasses the cache read but the fresh
// answer is still written back.
type SummaryRequest struct {
	Question        string `json:"question"`
	FolderScope     string `json:"folder_scope"`
	PatientName     string `json:"patient_name"`
	UseCache        *bool  `json:"use_cache"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

// SummaryResponse is the answer envelope for POST /api/v1/summary.
type SummaryResponse struct {
	Answer        string    `json:"answer"`
	Cached        bool      `json:"cached"`
	ReportCount   int       `json:"report_count"`
	MatchedCount  int       `json:"matched_count"`
	LowConfidence int       `json:"low_confidence_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// SummaryCacheEntry is the Redis-persisted form of a generated answer. The
// signature pins the entry to the exact corpus state it was computed from.
type SummaryCacheEntry struct {
	Answer        string    `json:"answer"`
	Signature     string    `json:"signature"`
	ReportCount   int       `json:"report_count"`
	MatchedCount  int       `json:"matched_count"`
	LowConfidence int       `json:"low_confidence_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}
