package routes

import (
	"net/http"

	"medvault-rag/internal/logger"
	"medvault-rag/internal/queue"
	"medvault-rag/middleware"
	"medvault-rag/models"
	"medvault-rag/services"
	"medvault-rag/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupReportRoutes wires the document-processing endpoints.
func SetupReportRoutes(
	router *gin.Engine,
	ingest *services.IngestService,
	summary *services.SummaryService,
	export *services.ExportService,
	queueClient *asynq.Client,
	authMiddleware *middleware.AuthMiddleware,
) {
	reports := router.Group("/api/v1/reports")
	reports.Use(authMiddleware.RequireAuth())

	// Synchronous batch processing. Blocks until every file is handled.
	reports.POST("/process", func(c *gin.Context) {
		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		profileName := resolveProfileName(c, req.PatientName)

		result, err := ingest.ProcessBatch(c.Request.Context(), userID, profileName, req.FolderScope, req.Paths)
		if err != nil {
			utils.RespondWithInternalError(c, "Batch processing failed", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	// Queued batch processing for large uploads.
	reports.POST("/process-async", func(c *gin.Context) {
		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		profileName := resolveProfileName(c, req.PatientName)

		task, err := queue.NewIngestTask(userID, profileName, req.FolderScope, req.Paths)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build task", gin.H{"error": err.Error()})
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			utils.RespondWithServiceUnavailable(c, "Task queue unavailable")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id": info.ID,
			"queue":   info.Queue,
			"files":   len(req.Paths),
		})
	})

	// List processed records (no text bodies).
	reports.GET("", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		scope := c.Query("folder")

		records, err := summary.ListRecords(c.Request.Context(), userID, scope)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list reports", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"reports": records,
			"count":   len(records),
		})
	})

	// Download the record set as a spreadsheet or JSON file.
	reports.GET("/export", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		scope := c.Query("folder")
		format := c.DefaultQuery("format", "excel")

		data, err := export.BuildExportData(c.Request.Context(), userID, scope)
		if err != nil {
			utils.RespondWithInternalError(c, "Export failed", gin.H{"error": err.Error()})
			return
		}

		if err := export.StreamExport(c, data, format); err != nil {
			utils.RespondWithBadRequest(c, "Export failed", gin.H{"error": err.Error()})
		}
	})

	// Delete all records and cached summaries for the user, and revoke
	// every outstanding session.
	reports.DELETE("", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		deleted, err := summary.ClearData(c.Request.Context(), userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to clear data", gin.H{"error": err.Error()})
			return
		}

		// Best effort: the data is already gone, a revocation failure
		// should not fail the wipe.
		if err := authMiddleware.RevokeUserSessions(userID); err != nil {
			logger.Warn("failed to revoke sessions after data wipe",
				"user_id", userID, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	})
}

// resolveProfileName prefers an explicit override from the request body and
// falls back to the authenticated profile's display name.
func resolveProfileName(c *gin.Context, override string) string {
	if override != "" {
		return override
	}
	return middleware.GetProfileName(c)
}
