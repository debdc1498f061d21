package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/models"
)

// GetMyProfile handles GET /api/v1/users/me - the requester with their company
func GetMyProfile(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	var company models.Company
	if err := config.GetDB().WithContext(c.Request.Context()).First(&company, user.CompanyID).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve company")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user":    user,
			"company": company,
		},
	})
}
