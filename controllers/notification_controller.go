package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/services"
)

// ListNotifications handles GET /api/v1/notifications - ?unread=true limits to unread ones
func ListNotifications(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := services.ListNotifications(c.Request.Context(), config.GetDB(), user.ID, user.CompanyID, unreadOnly)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve notifications")
		return
	}

	respondData(c, http.StatusOK, notifications)
}

// MarkNotificationRead handles PUT /api/v1/notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	notificationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	notification, err := services.MarkNotificationRead(c.Request.Context(), config.GetDB(), notificationID, user.ID, user.CompanyID)
	if err != nil {
		respondServiceError(c, err, "Failed to update notification")
		return
	}

	respondData(c, http.StatusOK, notification)
}
