package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"medvault-rag/internal/config"
	"medvault-rag/internal/logger"
	"medvault-rag/internal/store"
	"medvault-rag/internal/telemetry"
	"medvault-rag/models"
	"medvault-rag/utils"
)

// minTextLength is the smallest extraction considered usable.
const minTextLength = 30

// Per-file outcome labels surfaced in batch results.
const (
	FileProcessed    = "processed"
	FileSkipped      = "skipped"
	FileDeduplicated = "deduplicated"
	FileFailed       = "failed"
)

// IngestService runs the per-file pipeline: fetch bytes, extract text,
// derive metadata, verify patient identity, and persist with content-hash
// dedup. Files are handled sequentially; one document failing never aborts
// the batch.
type IngestService struct {
	cfg       *config.Config
	storage   *StorageClient
	ocr       *OCRClient
	extractor *MetadataExtractor
	reports   *store.ReportStore
	cache     *store.SummaryCache
}

func NewIngestService(cfg *config.Config, storage *StorageClient, ocr *OCRClient, extractor *MetadataExtractor, reports *store.ReportStore, cache *store.SummaryCache) *IngestService {
	return &IngestService{
		cfg:       cfg,
		storage:   storage,
		ocr:       ocr,
		extractor: extractor,
		reports:   reports,
		cache:     cache,
	}
}

// ProcessBatch processes the given paths, or everything currently stored
// under the user's scope when paths is empty. Orphaned records are pruned
// only on full-scope runs, since a partial path list says nothing about
// what else still exists in storage.
func (s *IngestService) ProcessBatch(ctx context.Context, userID, profileName, scope string, paths []string) (*models.BatchResult, error) {
	fullScope := len(paths) == 0
	if fullScope {
		var err error
		paths, err = s.storage.List(ctx, userID, scope)
		if err != nil {
			return nil, fmt.Errorf("listing storage scope: %w", err)
		}
	}

	result := &models.BatchResult{Results: make([]models.FileResult, 0, len(paths))}
	changed := false

	for _, filePath := range paths {
		start := time.Now()
		fileResult := s.processFile(ctx, userID, profileName, scope, filePath)
		telemetry.RecordIngestOutcome(time.Since(start).Seconds(), fileResult.Status)
		result.Results = append(result.Results, fileResult)

		if tallyOutcome(result, fileResult.Status) {
			changed = true
		}
	}

	// Prune only against a non-empty full-scope listing: an empty one is
	// indistinguishable from a listing failure and must not delete anything.
	if fullScope && len(paths) > 0 {
		pruned, err := s.reports.DeleteOrphans(ctx, userID, scope, paths)
		if err != nil {
			logger.Warn("orphan prune failed", "user_id", userID, "error", err)
		} else if pruned > 0 {
			logger.Info("orphaned records pruned", "user_id", userID, "count", pruned)
			changed = true
		}
	}

	if changed {
		if _, err := s.cache.Clear(ctx, userID, scope); err != nil {
			logger.Warn("summary cache clear failed", "user_id", userID, "error", err)
		}
	}

	return result, nil
}

func (s *IngestService) processFile(ctx context.Context, userID, profileName, scope, filePath string) models.FileResult {
	fileName := path.Base(filePath)
	logger.Info("processing report file", "user_id", userID, "file", fileName)

	fileData, err := s.storage.Download(ctx, filePath)
	if err != nil {
		logger.Error("file download failed", "file", fileName, "error", err)
		return failedResult(filePath, err)
	}

	sourceHash := utils.HashBytes(fileData)

	existing, err := s.reports.FindByPath(ctx, userID, filePath)
	if err != nil {
		return failedResult(filePath, err)
	}

	// Same path, same bytes, already extracted: nothing to do.
	if existing != nil && existing.SourceHash == sourceHash && existing.Status == models.ReportCompleted {
		return models.FileResult{FilePath: filePath, Status: FileSkipped}
	}

	// New path but known content: clone the donor's extraction instead of
	// re-running OCR and the model.
	if existing == nil {
		donor, err := s.reports.FindByHash(ctx, userID, sourceHash)
		if err != nil {
			return failedResult(filePath, err)
		}
		if donor != nil {
			return s.cloneRecord(ctx, donor, userID, profileName, scope, filePath, fileName, sourceHash)
		}
	}

	text, err := s.extractText(ctx, fileData, fileName)
	if err != nil {
		s.persistFailure(ctx, userID, scope, filePath, fileName, sourceHash)
		return failedResult(filePath, err)
	}
	if len(strings.TrimSpace(text)) < minTextLength {
		s.persistFailure(ctx, userID, scope, filePath, fileName, sourceHash)
		return failedResult(filePath, fmt.Errorf("insufficient extracted text (%d chars)", len(text)))
	}

	meta := s.extractor.Extract(ctx, text)
	verification := VerifyPatientName(meta.PatientName, profileName, fileName)
	logger.Info("identity verification",
		"file", fileName,
		"status", verification.Status,
		"confidence", verification.Confidence,
	)

	compressed, isCompressed, err := utils.CompressText(text)
	if err != nil {
		return failedResult(filePath, err)
	}

	report := &models.Report{
		UserID:              userID,
		FilePath:            filePath,
		FileName:            fileName,
		FolderScope:         scope,
		SourceHash:          sourceHash,
		CompressedText:      compressed,
		Compressed:          isCompressed,
		StructuredData:      BuildStructuredData(meta, text),
		PatientName:         meta.PatientName,
		ReportDate:          meta.ReportDate,
		Age:                 meta.Age,
		Gender:              meta.Gender,
		ReportType:          meta.ReportType,
		DoctorName:          meta.DoctorName,
		HospitalName:        meta.HospitalName,
		NameMatchStatus:     verification.Status,
		NameMatchConfidence: verification.Confidence,
		TextLength:          len(text),
		Status:              models.ReportCompleted,
		ProcessedAt:         time.Now().UTC(),
	}
	if !isCompressed {
		report.ExtractedText = text
		report.CompressedText = nil
	}

	if err := s.reports.Upsert(ctx, report); err != nil {
		return failedResult(filePath, err)
	}

	return models.FileResult{
		FilePath:            filePath,
		Status:              FileProcessed,
		TextLength:          len(text),
		PatientName:         meta.PatientName,
		NameMatchStatus:     verification.Status,
		NameMatchConfidence: verification.Confidence,
	}
}

// cloneRecord copies a content-identical record's extraction output under a
// new path. Verification is recomputed: the new file name can change the
// filename-fallback outcome.
func (s *IngestService) cloneRecord(ctx context.Context, donor *models.Report, userID, profileName, scope, filePath, fileName, sourceHash string) models.FileResult {
	logger.Info("content hash match, reusing extraction", "file", fileName, "donor", donor.FileName)

	verification := VerifyPatientName(donor.PatientName, profileName, fileName)

	report := &models.Report{
		UserID:              userID,
		FilePath:            filePath,
		FileName:            fileName,
		FolderScope:         scope,
		SourceHash:          sourceHash,
		ExtractedText:       donor.ExtractedText,
		CompressedText:      donor.CompressedText,
		Compressed:          donor.Compressed,
		StructuredData:      donor.StructuredData,
		PatientName:         donor.PatientName,
		ReportDate:          donor.ReportDate,
		Age:                 donor.Age,
		Gender:              donor.Gender,
		ReportType:          donor.ReportType,
		DoctorName:          donor.DoctorName,
		HospitalName:        donor.HospitalName,
		NameMatchStatus:     verification.Status,
		NameMatchConfidence: verification.Confidence,
		TextLength:          donor.TextLength,
		Status:              models.ReportCompleted,
		ProcessedAt:         time.Now().UTC(),
	}

	if err := s.reports.Upsert(ctx, report); err != nil {
		return failedResult(filePath, err)
	}

	return models.FileResult{
		FilePath:            filePath,
		Status:              FileDeduplicated,
		Deduplicated:        true,
		TextLength:          donor.TextLength,
		PatientName:         donor.PatientName,
		NameMatchStatus:     verification.Status,
		NameMatchConfidence: verification.Confidence,
	}
}

// extractText runs OCR when the service is configured and healthy, falling
// back to the PDF's embedded text layer.
func (s *IngestService) extractText(ctx context.Context, fileData []byte, fileName string) (string, error) {
	if s.ocr.Enabled() {
		if healthy, err := s.ocr.IsHealthy(ctx); err == nil && healthy {
			resp, err := s.ocr.ExtractText(ctx, fileData, fileName)
			if err == nil {
				return resp.Text, nil
			}
			logger.Warn("OCR extraction failed, trying text layer", "file", fileName, "error", err)
		} else {
			logger.Warn("OCR service unavailable, trying text layer", "file", fileName)
		}
	}

	if isPDF(fileData, fileName) {
		return ExtractPDFText(fileData)
	}
	return "", fmt.Errorf("no extraction path available for %s", fileName)
}

func isPDF(data []byte, fileName string) bool {
	return bytes.HasPrefix(data, []byte("%PDF")) || strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}

// persistFailure records a failed attempt so the next batch run sees a stale
// hash and retries the file instead of skipping it.
func (s *IngestService) persistFailure(ctx context.Context, userID, scope, filePath, fileName, sourceHash string) {
	report := &models.Report{
		UserID:          userID,
		FilePath:        filePath,
		FileName:        fileName,
		FolderScope:     scope,
		SourceHash:      sourceHash,
		NameMatchStatus: models.MatchPending,
		Status:          models.ReportFailed,
		ProcessedAt:     time.Now().UTC(),
	}
	if err := s.reports.Upsert(ctx, report); err != nil {
		logger.Error("failed to persist failure record", "file", fileName, "error", err)
	}
}

// tallyOutcome folds one file outcome into the batch aggregates and reports
// whether it mutated stored records.
func tallyOutcome(result *models.BatchResult, status string) bool {
	switch status {
	case FileProcessed:
		result.Processed++
		return true
	case FileDeduplicated:
		result.Deduplicated++
		return true
	case FileSkipped:
		result.Skipped++
	case FileFailed:
		result.Failed++
	}
	return false
}

func failedResult(filePath string, err error) models.FileResult {
	return models.FileResult{FilePath: filePath, Status: FileFailed, Error: err.Error()}
}

// SweepOrphans removes records of every known user whose backing files have
// disappeared from storage. Run periodically from the scheduler.
func (s *IngestService) SweepOrphans(ctx context.Context) error {
	users, err := s.reports.DistinctUsers(ctx)
	if err != nil {
		return err
	}

	for _, userID := range users {
		paths, err := s.storage.List(ctx, userID, "")
		if err != nil {
			logger.Warn("orphan sweep: storage listing failed", "user_id", userID, "error", err)
			continue
		}
		if len(paths) == 0 {
			logger.Warn("orphan sweep: empty listing, skipping prune", "user_id", userID)
			continue
		}
		pruned, err := s.reports.DeleteOrphans(ctx, userID, "", paths)
		if err != nil {
			logger.Warn("orphan sweep: prune failed", "user_id", userID, "error", err)
			continue
		}
		if pruned > 0 {
			logger.Info("orphan sweep pruned records", "user_id", userID, "count", pruned)
			if _, err := s.cache.ClearAll(ctx, userID); err != nil {
				logger.Warn("orphan sweep: cache clear failed", "user_id", userID, "error", err)
			}
		}
	}
	return nil
}
