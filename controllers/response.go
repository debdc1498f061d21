package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/middleware"
	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/kendall-kelly/production-tracker-api/utils"
	"go.uber.org/zap"
)

var statusForKind = map[services.ErrorKind]int{
	services.KindValidation: http.StatusBadRequest,
	services.KindGating:     http.StatusBadRequest,
	services.KindAssignment: http.StatusBadRequest,
	services.KindNotFound:   http.StatusNotFound,
	services.KindConflict:   http.StatusConflict,
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError writes the envelope for an error returned by a service
func respondServiceError(c *gin.Context, err error, fallback string) {
	var wfErr *services.WorkflowError
	if errors.As(err, &wfErr) {
		respondError(c, statusForKind[wfErr.Kind], wfErr.Code, wfErr.Message)
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	zap.S().Errorw(fallback, "path", c.FullPath(), "error", err)
	respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", fallback)
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    services.CodeValidation,
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// requester returns the authenticated company user or writes a 401
func requester(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetRequester(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}
	return user, true
}

// idParam parses a positive numeric path parameter or writes a 400
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
