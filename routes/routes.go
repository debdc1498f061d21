package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/controllers"
	"github.com/kendall-kelly/production-tracker-api/middleware"
	"github.com/kendall-kelly/production-tracker-api/models"
)

// Register mounts the workflow API on v1. auth runs in front of every route
// and must leave a requester in the context (see middleware.LoadRequester).
func Register(v1 *gin.RouterGroup, auth ...gin.HandlerFunc) {
	protected := v1.Group("")
	protected.Use(auth...)

	protected.GET("/users/me", controllers.GetMyProfile)

	orders := protected.Group("/orders")
	{
		orders.POST("", middleware.RequirePermission(models.PermissionOrdersCreate), controllers.CreateOrder)
		orders.GET("", middleware.RequirePermission(models.PermissionOrdersRead), controllers.ListOrders)
		orders.GET("/:id", middleware.RequirePermission(models.PermissionOrdersRead), controllers.GetOrder)
		orders.PUT("/:id/status", middleware.RequirePermission(models.PermissionOrdersManage), controllers.UpdateOrderStatus)
		orders.DELETE("/:id", middleware.RequirePermission(models.PermissionOrdersManage), controllers.DeleteOrder)
		orders.POST("/:id/steps/:stepId/skip", middleware.RequirePermission(models.PermissionOrdersManage), controllers.SkipOrderStep)
		orders.PUT("/:id/steps/reorder", middleware.RequirePermission(models.PermissionOrdersManage), controllers.ReorderOrderSteps)
	}

	// Only authentication: every lookup is scoped to the requester
	jobs := protected.Group("/my-jobs")
	{
		jobs.GET("", controllers.ListMyJobs)
		jobs.POST("/:stepId/start", controllers.StartJob)
		jobs.POST("/:stepId/complete", controllers.CompleteJob)
		jobs.PUT("/:stepId/notes", controllers.UpdateJobNotes)
		jobs.POST("/:stepId/attachment", controllers.UploadJobAttachment)
	}

	productSteps := protected.Group("/product-steps")
	productSteps.Use(middleware.RequirePermission(models.PermissionProductStepsManage))
	{
		productSteps.GET("/product/:productId", controllers.ListProductSteps)
		productSteps.PUT("/product/:productId/reorder", controllers.ReorderProductSteps)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", controllers.ListNotifications)
		notifications.PUT("/:id/read", controllers.MarkNotificationRead)
	}
}
