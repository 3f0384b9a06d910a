package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medvault-rag/internal/ai"
	"medvault-rag/internal/config"
	"medvault-rag/internal/logger"
	"medvault-rag/internal/store"
	"medvault-rag/internal/telemetry"
	"medvault-rag/models"
	"medvault-rag/utils"
)

var (
	// ErrNoDocuments means no completed records exist for the scope.
	ErrNoDocuments = errors.New("no completed reports for this scope")
	// ErrEmptyAnswer means the completion model produced unusable output.
	ErrEmptyAnswer = errors.New("answer generation produced no usable text")
)

// NoMatchedDocumentsError reports that identity verification excluded every
// candidate, with enough detail for the user to act on.
type NoMatchedDocumentsError struct {
	Distribution PatientDistribution    `json:"distribution"`
	Excluded     []models.ReportSummary `json:"excluded"`
}

func (e *NoMatchedDocumentsError) Error() string {
	return fmt.Sprintf("no reports matched the profile name (%d excluded)", len(e.Excluded))
}

// SummaryService answers the analytical question over a user's verified
// reports. Each call builds its own chunk set, vectorizer, and index; no
// state is shared between requests.
type SummaryService struct {
	cfg       *config.Config
	gemini    *ai.GeminiClient
	reports   *store.ReportStore
	cache     *store.SummaryCache
	chunker   *Chunker
	retriever *Retriever
}

func NewSummaryService(cfg *config.Config, gemini *ai.GeminiClient, reports *store.ReportStore, cache *store.SummaryCache) *SummaryService {
	return &SummaryService{
		cfg:       cfg,
		gemini:    gemini,
		reports:   reports,
		cache:     cache,
		chunker:   NewChunker(cfg.MaxChunkWords, cfg.ChunkOverlapWords, cfg.MinChunkWords),
		retriever: NewRetriever(cfg.RetrievalTopK),
	}
}

// Summarize returns a cached or freshly generated summary over the user's
// matched reports. forceRegenerate bypasses the cache unconditionally.
func (s *SummaryService) Summarize(ctx context.Context, userID, profileName, scope, question string, useCache, forceRegenerate bool) (*models.SummaryResponse, error) {
	if strings.TrimSpace(question) == "" {
		question = DefaultQuestion
	}

	reports, err := s.reports.ListCompleted(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNoDocuments
	}

	matched, excluded := partitionByVerification(reports)
	if len(matched) == 0 {
		return nil, &NoMatchedDocumentsError{
			Distribution: DistributionOf(reports),
			Excluded:     summarizeAll(excluded),
		}
	}

	lowConfidence := 0
	for _, r := range matched {
		if r.NameMatchConfidence < matchThreshold {
			lowConfidence++
		}
	}

	signature := corpusSignature(matched)

	if useCache && !forceRegenerate {
		entry, ok := s.cache.Get(ctx, userID, scope, signature)
		telemetry.RecordCacheLookup(ok)
		if ok {
			logger.Info("summary cache hit", "user_id", userID, "scope", scope)
			return &models.SummaryResponse{
				Answer:        entry.Answer,
				Cached:        true,
				ReportCount:   entry.ReportCount,
				MatchedCount:  entry.MatchedCount,
				LowConfidence: entry.LowConfidence,
				GeneratedAt:   entry.GeneratedAt,
			}, nil
		}
		logger.Info("summary cache miss", "user_id", userID, "scope", scope)
	}

	answer, err := s.generate(ctx, matched, question)
	if err != nil {
		return nil, err
	}

	entry := models.SummaryCacheEntry{
		Answer:        answer,
		Signature:     signature,
		ReportCount:   len(reports),
		MatchedCount:  len(matched),
		LowConfidence: lowConfidence,
		GeneratedAt:   time.Now().UTC(),
	}
	if err := s.cache.Put(ctx, userID, scope, entry); err != nil {
		logger.Warn("summary cache write failed", "user_id", userID, "error", err)
	}

	logger.Info("summary generated",
		"user_id", userID,
		"scope", scope,
		"matched", len(matched),
		"excluded", len(excluded),
	)

	return &models.SummaryResponse{
		Answer:        answer,
		Cached:        false,
		ReportCount:   len(reports),
		MatchedCount:  len(matched),
		LowConfidence: lowConfidence,
		GeneratedAt:   entry.GeneratedAt,
	}, nil
}

// generate runs the retrieval pipeline over the matched records and calls
// the completion model.
func (s *SummaryService) generate(ctx context.Context, matched []models.Report, question string) (string, error) {
	var chunks []string
	docCount := 0

	for _, report := range matched {
		text, err := reportText(&report)
		if err != nil {
			logger.Warn("failed to read report text", "file", report.FileName, "error", err)
			continue
		}

		recordChunks := s.chunker.ChunkText(NormalizeText(text))
		if len(recordChunks) == 0 {
			continue
		}
		chunks = append(chunks, recordChunks...)
		docCount++
	}

	if len(chunks) == 0 {
		return "", ErrEmptyCorpus
	}

	index, err := BuildIndex(chunks, s.cfg.VectorDim)
	if err != nil {
		return "", err
	}

	contextText, err := s.retriever.AssembleContext(index, question, docCount)
	if err != nil {
		return "", err
	}

	header := BuildMetadataHeader(primaryName(matched), docCount, datesOf(matched))
	prompt := BuildPrompt(docCount, header, contextText)

	answer, err := s.gemini.GenerateText(ctx, prompt.SystemPrompt, prompt.UserPrompt, prompt.MaxTokens, prompt.Temperature)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || strings.HasPrefix(strings.ToLower(answer), "error") {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// ListRecords returns the user's records without text bodies.
func (s *SummaryService) ListRecords(ctx context.Context, userID, scope string) ([]models.ReportSummary, error) {
	reports, err := s.reports.ListCompleted(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	return summarizeAll(reports), nil
}

// ClearCache drops the cached summary for (user, scope); empty scope clears
// every scope. Idempotent.
func (s *SummaryService) ClearCache(ctx context.Context, userID, scope string) (int64, error) {
	if scope == "" {
		return s.cache.ClearAll(ctx, userID)
	}
	return s.cache.Clear(ctx, userID, scope)
}

// ClearData removes all records and cached summaries for a user.
func (s *SummaryService) ClearData(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.reports.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if _, err := s.cache.ClearAll(ctx, userID); err != nil {
		logger.Warn("cache clear during data wipe failed", "user_id", userID, "error", err)
	}
	return deleted, nil
}

// corpusSignature derives the cache-freshness fingerprint from the matched
// record set.
func corpusSignature(reports []models.Report) string {
	lines := make([]utils.ReportLine, len(reports))
	for i, r := range reports {
		lines[i] = utils.ReportLine{
			FilePath:        r.FilePath,
			TextLength:      r.TextLength,
			ProcessedAtUnix: r.ProcessedAt.Unix(),
		}
	}
	return utils.ReportsSignature(lines)
}

// partitionByVerification splits records into summarizable and excluded
// sets. Low-confidence matches are included; mismatched and pending records
// are excluded but reported, never silently dropped.
func partitionByVerification(reports []models.Report) (matched, excluded []models.Report) {
	for _, r := range reports {
		if r.NameMatchStatus == models.MatchMatched {
			matched = append(matched, r)
		} else {
			excluded = append(excluded, r)
		}
	}
	return matched, excluded
}

func summarizeAll(reports []models.Report) []models.ReportSummary {
	summaries := make([]models.ReportSummary, len(reports))
	for i := range reports {
		summaries[i] = reports[i].Summarize()
	}
	return summaries
}

// reportText returns a record's extracted text, decompressing when stored
// gzipped.
func reportText(r *models.Report) (string, error) {
	if r.Compressed {
		return utils.DecompressText(r.CompressedText, true)
	}
	return r.ExtractedText, nil
}

func primaryName(reports []models.Report) string {
	for _, r := range reports {
		if r.PatientName != "" {
			return r.PatientName
		}
	}
	return ""
}

func datesOf(reports []models.Report) []string {
	var dates []string
	seen := make(map[string]bool)
	for _, r := range reports {
		if r.ReportDate != "" && !seen[r.ReportDate] {
			seen[r.ReportDate] = true
			dates = append(dates, r.ReportDate)
		}
	}
	return dates
}
