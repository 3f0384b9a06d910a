package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"medvault-rag/internal/store"
	"medvault-rag/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ReportExportData is the structured payload for JSON exports.
type ReportExportData struct {
	ExportDate   time.Time              `json:"export_date"`
	FolderScope  string                 `json:"folder_scope,omitempty"`
	TotalRecords int                    `json:"total_records"`
	Reports      []models.ReportSummary `json:"reports"`
}

// ExportService produces downloadable views of a user's processed reports.
type ExportService struct {
	reports *store.ReportStore
}

func NewExportService(reports *store.ReportStore) *ExportService {
	return &ExportService{reports: reports}
}

// BuildExportData loads a user's completed records as export summaries.
func (es *ExportService) BuildExportData(ctx context.Context, userID, scope string) (*ReportExportData, error) {
	reports, err := es.reports.ListCompleted(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	summaries := make([]models.ReportSummary, len(reports))
	for i := range reports {
		summaries[i] = reports[i].Summarize()
	}

	return &ReportExportData{
		ExportDate:   time.Now().UTC(),
		FolderScope:  scope,
		TotalRecords: len(summaries),
		Reports:      summaries,
	}, nil
}

// StreamExport writes the export directly to the HTTP response in the
// requested format ("json" or "excel").
func (es *ExportService) StreamExport(ctx *gin.Context, data *ReportExportData, format string) error {
	switch format {
	case "json":
		jsonData, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}

		ctx.Header("Content-Disposition", "attachment; filename=reports_export.json")
		ctx.Header("Content-Length", strconv.Itoa(len(jsonData)))
		ctx.Data(http.StatusOK, "application/json", jsonData)

	case "excel":
		buf, err := es.buildWorkbook(data)
		if err != nil {
			return err
		}

		ctx.Header("Content-Disposition", "attachment; filename=reports_export.xlsx")
		ctx.Header("Content-Length", strconv.Itoa(buf.Len()))
		ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())

	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	return nil
}

func (es *ExportService) buildWorkbook(data *ReportExportData) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reports"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"File Name", "Folder", "Patient Name", "Report Date", "Report Type",
		"Doctor", "Hospital", "Match Status", "Match Confidence", "Text Length", "Processed At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, r := range data.Reports {
		row := rowIdx + 2

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.FileName)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.FolderScope)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.PatientName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.ReportDate)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.ReportType)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.DoctorName)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.HospitalName)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.NameMatchStatus)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), fmt.Sprintf("%.2f", r.NameMatchConfidence))
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), r.TextLength)
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), r.ProcessedAt.Format("2006-01-02 15:04:05"))
	}

	for i := 0; i < len(headers); i++ {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	// Default Sheet1 is left empty by excelize; drop it.
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return &buf, nil
}
