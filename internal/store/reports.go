package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medvault-rag/models"
	"medvault-rag/utils"
)

// ReportStore persists one record per (user_id, file_path).
type ReportStore struct {
	col *mongo.Collection
}

func NewReportStore(db *mongo.Database) *ReportStore {
	return &ReportStore{col: db.Collection("reports")}
}

// FindByPath returns the record for this exact path, or nil when absent.
func (s *ReportStore) FindByPath(ctx context.Context, userID, filePath string) (*models.Report, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var report models.Report
	err := s.col.FindOne(ctx, bson.M{"user_id": userID, "file_path": filePath}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByHash returns any completed record of this user sharing the content
// hash, regardless of path. Used for content-level dedup.
func (s *ReportStore) FindByHash(ctx context.Context, userID, hash string) (*models.Report, error) {
	if hash == "" {
		return nil, nil
	}
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var report models.Report
	err := s.col.FindOne(ctx, bson.M{
		"user_id":     userID,
		"source_hash": hash,
		"status":      models.ReportCompleted,
	}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Upsert writes the record keyed by (user_id, file_path), replacing any
// existing one. Records are updated in place, never duplicated.
func (s *ReportStore) Upsert(ctx context.Context, report *models.Report) error {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"user_id": report.UserID, "file_path": report.FilePath}
	update := bson.M{"$set": bson.M{
		"user_id":               report.UserID,
		"file_path":             report.FilePath,
		"file_name":             report.FileName,
		"folder_scope":          report.FolderScope,
		"source_hash":           report.SourceHash,
		"extracted_text":        report.ExtractedText,
		"compressed_text":       report.CompressedText,
		"compressed":            report.Compressed,
		"structured_data":       report.StructuredData,
		"patient_name":          report.PatientName,
		"report_date":           report.ReportDate,
		"age":                   report.Age,
		"gender":                report.Gender,
		"report_type":           report.ReportType,
		"doctor_name":           report.DoctorName,
		"hospital_name":         report.HospitalName,
		"name_match_status":     report.NameMatchStatus,
		"name_match_confidence": report.NameMatchConfidence,
		"text_length":           report.TextLength,
		"status":                report.Status,
		"processed_at":          report.ProcessedAt,
	}}

	_, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListCompleted returns the user's completed records, optionally filtered
// by folder scope, ordered by processing time.
func (s *ReportStore) ListCompleted(ctx context.Context, userID, scope string) ([]models.Report, error) {
	ctx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()

	filter := bson.M{"user_id": userID, "status": models.ReportCompleted}
	if scope != "" {
		filter["folder_scope"] = scope
	}

	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "processed_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// DeleteOrphans removes records whose file paths are no longer present in
// storage. Returns the number removed. An empty live-path list is refused:
// with `$nin: []` matching everything, a failed or shallow storage listing
// would wipe all of the user's records instead of pruning strays.
func (s *ReportStore) DeleteOrphans(ctx context.Context, userID, scope string, livePaths []string) (int64, error) {
	if len(livePaths) == 0 {
		return 0, nil
	}

	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"user_id":   userID,
		"file_path": bson.M{"$nin": livePaths},
	}
	if scope != "" {
		filter["folder_scope"] = scope
	}

	result, err := s.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteAll removes every record of a user. Idempotent.
func (s *ReportStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	result, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DistinctUsers lists user IDs that currently hold records. Used by the
// orphan sweep.
func (s *ReportStore) DistinctUsers(ctx context.Context) ([]string, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	values, err := s.col.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			users = append(users, s)
		}
	}
	return users, nil
}
