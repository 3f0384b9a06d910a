package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"medvault-rag/internal/logger"
	"medvault-rag/models"
	"medvault-rag/services"
)

const (
	TaskIngestReports = "vault:ingest"
)

// IngestPayload carries a background batch-processing request.
type IngestPayload struct {
	UserID      string   `json:"user_id"`
	PatientName string   `json:"patient_name"`
	FolderScope string   `json:"folder_scope"`
	Paths       []string `json:"paths"`
}

// NewIngestTask builds an asynq task for a batch ingest. Ingests run on the
// critical queue since follow-up summaries wait on their results.
func NewIngestTask(userID, patientName, scope string, paths []string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		UserID:      userID,
		PatientName: patientName,
		FolderScope: scope,
		Paths:       paths,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestReports,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor dispatches queued tasks to the ingest pipeline.
type TaskProcessor struct {
	ingest *services.IngestService
}

func NewTaskProcessor(ingest *services.IngestService) *TaskProcessor {
	return &TaskProcessor{ingest: ingest}
}

func (p *TaskProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("queued ingest starting",
		"user_id", payload.UserID,
		"scope", payload.FolderScope,
		"paths", len(payload.Paths),
	)

	result, err := p.ingest.ProcessBatch(ctx, payload.UserID, payload.PatientName, payload.FolderScope, payload.Paths)
	if err != nil {
		return err
	}

	logFailedFiles(payload.UserID, result)

	logger.Info("queued ingest finished",
		"user_id", payload.UserID,
		"processed", result.Processed,
		"deduplicated", result.Deduplicated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return nil
}

func logFailedFiles(userID string, result *models.BatchResult) {
	for _, fr := range result.Results {
		if fr.Status == services.FileFailed {
			logger.Warn("file processing failed", "user_id", userID, "file", fr.FilePath, "error", fr.Error)
		}
	}
}
