package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/services"
)

// CompleteStepRequest represents the optional body of a complete call
type CompleteStepRequest struct {
	Notes *string `json:"notes"`
}

// UpdateNotesRequest represents the request body for updating step notes
type UpdateNotesRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

func jobService() *services.JobService {
	return services.NewJobService(config.GetDB(), services.GetDispatcher())
}

// ListMyJobs handles GET /api/v1/my-jobs - the requester's steps grouped by state
func ListMyJobs(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	jobs, err := jobService().ListMine(c.Request.Context(), user.ID, user.CompanyID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve jobs")
		return
	}

	respondData(c, http.StatusOK, jobs)
}

// StartJob handles POST /api/v1/my-jobs/:stepId/start
func StartJob(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepId")
	if !ok {
		return
	}

	step, err := jobService().Start(c.Request.Context(), stepID, user.ID, user.CompanyID)
	if err != nil {
		respondServiceError(c, err, "Failed to start step")
		return
	}

	respondData(c, http.StatusOK, step)
}

// CompleteJob handles POST /api/v1/my-jobs/:stepId/complete
func CompleteJob(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepId")
	if !ok {
		return
	}

	// The body is optional
	var req CompleteStepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}

	step, completed, err := jobService().Complete(c.Request.Context(), stepID, user.ID, user.CompanyID, req.Notes)
	if err != nil {
		respondServiceError(c, err, "Failed to complete step")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"data":           step,
		"orderCompleted": completed,
	})
}

// UpdateJobNotes handles PUT /api/v1/my-jobs/:stepId/notes
func UpdateJobNotes(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepId")
	if !ok {
		return
	}

	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	step, err := jobService().UpdateNotes(c.Request.Context(), stepID, user.ID, user.CompanyID, *req.Notes)
	if err != nil {
		respondServiceError(c, err, "Failed to update notes")
		return
	}

	respondData(c, http.StatusOK, step)
}

// UploadJobAttachment handles POST /api/v1/my-jobs/:stepId/attachment - multipart field "image"
func UploadJobAttachment(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	stepID, ok := idParam(c, "stepId")
	if !ok {
		return
	}

	images := services.GetImageService()
	if images == nil {
		respondError(c, http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Attachment storage is not configured")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "No image file provided")
		return
	}

	step, err := jobService().AttachImage(c.Request.Context(), stepID, user.ID, user.CompanyID, fileHeader, images)
	if err != nil {
		respondServiceError(c, err, "Failed to upload attachment")
		return
	}

	respondData(c, http.StatusOK, step)
}
