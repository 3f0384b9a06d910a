package routes

import (
	"errors"
	"net/http"

	"medvault-rag/middleware"
	"medvault-rag/models"
	"medvault-rag/services"
	"medvault-rag/utils"

	"github.com/gin-gonic/gin"
)

// SetupSummaryRoutes wires the question-answering endpoints.
func SetupSummaryRoutes(
	router *gin.Engine,
	summary *services.SummaryService,
	authMiddleware *middleware.AuthMiddleware,
) {
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/summary", func(c *gin.Context) {
		var req models.SummaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		profileName := resolveProfileName(c, req.PatientName)

		useCache := req.UseCache == nil || *req.UseCache

		resp, err := summary.Summarize(c.Request.Context(), userID, profileName,
			req.FolderScope, req.Question, useCache, req.ForceRegenerate)
		if err != nil {
			respondSummaryError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	api.DELETE("/summary/cache", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		scope := c.Query("folder")

		cleared, err := summary.ClearCache(c.Request.Context(), userID, scope)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to clear cache", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"cleared": cleared})
	})
}

func respondSummaryError(c *gin.Context, err error) {
	var noMatch *services.NoMatchedDocumentsError

	switch {
	case errors.Is(err, services.ErrNoDocuments):
		utils.RespondWithNotFound(c, "No processed reports found. Upload and process documents first.")
	case errors.As(err, &noMatch):
		utils.RespondWithError(c, http.StatusUnprocessableEntity,
			"no_matched_reports",
			"None of the reports matched the profile name",
			gin.H{
				"distribution": noMatch.Distribution,
				"excluded":     noMatch.Excluded,
			})
	case errors.Is(err, services.ErrEmptyAnswer), errors.Is(err, services.ErrEmptyCorpus):
		utils.RespondWithError(c, http.StatusBadGateway,
			"generation_failed",
			"Summary generation produced no usable answer",
			nil)
	default:
		utils.RespondWithInternalError(c, "Summary generation failed", gin.H{"error": err.Error()})
	}
}
