package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report is one processed medical document. Exactly one record exists per
// (user_id, file_path); reprocessing the same path updates it in place.
type Report struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	FilePath       string             `bson:"file_path" json:"file_path"`
	FileName       string             `bson:"file_name" json:"file_name"`
	FolderScope    string             `bson:"folder_scope" json:"folder_scope"`
	SourceHash     string             `bson:"source_hash,omitempty" json:"source_hash,omitempty"` // SHA-256 of raw file bytes
	ExtractedText  string             `bson:"extracted_text,omitempty" json:"-"`
	CompressedText []byte             `bson:"compressed_text,omitempty" json:"-"`
	Compressed     bool               `bson:"compressed" json:"-"`
	StructuredData *StructuredReport  `bson:"structured_data,omitempty" json:"structured_data,omitempty"`

	PatientName  string `bson:"patient_name,omitempty" json:"patient_name,omitempty"`
	ReportDate   string `bson:"report_date,omitempty" json:"report_date,omitempty"` // DD/MM/YYYY
	Age          string `bson:"age,omitempty" json:"age,omitempty"`
	Gender       string `bson:"gender,omitempty" json:"gender,omitempty"`
	ReportType   string `bson:"report_type,omitempty" json:"report_type,omitempty"`
	DoctorName   string `bson:"doctor_name,omitempty" json:"doctor_name,omitempty"`
	HospitalName string `bson:"hospital_name,omitempty" json:"hospital_name,omitempty"`

	NameMatchStatus     string  `bson:"name_match_status" json:"name_match_status"` // pending, matched, mismatched
	NameMatchConfidence float64 `bson:"name_match_confidence" json:"name_match_confidence"`

	TextLength  int       `bson:"text_length" json:"text_length"`
	Status      string    `bson:"status" json:"status"` // completed, failed
	ProcessedAt time.Time `bson:"processed_at" json:"processed_at"`
}

// StructuredReport is the typed extraction payload stored alongside the raw
// text. Fields mirror what the extractor can actually recover; anything
// missing stays zero-valued.
type StructuredReport struct {
	Patient PatientBlock `bson:"patient" json:"patient"`
	Metrics []Metric     `bson:"metrics,omitempty" json:"metrics,omitempty"`
	Dates   []string     `bson:"dates,omitempty" json:"dates,omitempty"`
}

// PatientBlock groups the patient-identity fields of a structured report.
type PatientBlock struct {
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
	Age    string `bson:"age,omitempty" json:"age,omitempty"`
	Gender string `bson:"gender,omitempty" json:"gender,omitempty"`
}

// Metric is a single numeric test value harvested from report text.
type Metric struct {
	Name  string `bson:"name" json:"name"`
	Value string `bson:"value" json:"value"`
	Unit  string `bson:"unit,omitempty" json:"unit,omitempty"`
}

// ReportSummary is the list-view projection of a Report (no text bodies).
type ReportSummary struct {
	ID                  string    `json:"id"`
	FileName            string    `json:"file_name"`
	FilePath            string    `json:"file_path"`
	FolderScope         string    `json:"folder_scope"`
	PatientName         string    `json:"patient_name,omitempty"`
	ReportDate          string    `json:"report_date,omitempty"`
	ReportType          string    `json:"report_type,omitempty"`
	DoctorName          string    `json:"doctor_name,omitempty"`
	HospitalName        string    `json:"hospital_name,omitempty"`
	NameMatchStatus     string    `json:"name_match_status"`
	NameMatchConfidence float64   `json:"name_match_confidence"`
	TextLength          int       `json:"text_length"`
	Status              string    `json:"status"`
	ProcessedAt         time.Time `json:"processed_at"`
}

// Name-match classifications.
const (
	MatchPending    = "pending"
	MatchMatched    = "matched"
	MatchMismatched = "mismatched"
)

// Record lifecycle states.
const (
	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

// Summarize projects a Report into its list-view form.
func (r *Report) Summarize() ReportSummary {
	return ReportSummary{
		ID:                  r.ID.Hex(),
		FileName:            r.FileName,
		FilePath:            r.FilePath,
		FolderScope:         r.FolderScope,
		PatientName:         r.PatientName,
		ReportDate:          r.ReportDate,
		ReportType:          r.ReportType,
		DoctorName:          r.DoctorName,
		HospitalName:        r.HospitalName,
		NameMatchStatus:     r.NameMatchStatus,
		NameMatchConfidence: r.NameMatchConfidence,
		TextLength:          r.TextLength,
		Status:              r.Status,
		ProcessedAt:         r.ProcessedAt,
	}
}
