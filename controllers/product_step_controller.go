package controllers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/kendall-kelly/production-tracker-api/services"
	"gorm.io/gorm"
)

// ReorderStepsRequest lists steps with their desired positions
type ReorderStepsRequest struct {
	Steps []StepPosition `json:"steps" binding:"required,min=1,dive"`
}

// StepPosition is one entry of a reorder request
type StepPosition struct {
	ID         uint `json:"id" binding:"required"`
	StepNumber int  `json:"step_number"`
}

// orderedIDs returns the step ids sorted by requested position; ties keep request order
func (r ReorderStepsRequest) orderedIDs() []uint {
	positions := append([]StepPosition(nil), r.Steps...)
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].StepNumber < positions[j].StepNumber
	})

	ids := make([]uint, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	return ids
}

// ListProductSteps handles GET /api/v1/product-steps/product/:productId
func ListProductSteps(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	err := db.WithContext(c.Request.Context()).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Preload("Steps.ResponsibleUser").
		Where("id = ? AND company_id = ?", productID, user.CompanyID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, services.ProductNotFound(productID), "")
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve product steps")
		return
	}

	if product.Steps == nil {
		product.Steps = []models.ProductStep{}
	}
	respondData(c, http.StatusOK, product.Steps)
}

// ReorderProductSteps handles PUT /api/v1/product-steps/product/:productId/reorder
func ReorderProductSteps(c *gin.Context) {
	user, ok := requester(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	var req ReorderStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	steps, err := services.NewSequencerService(config.GetDB()).
		ReorderProductSteps(c.Request.Context(), user.CompanyID, productID, req.orderedIDs())
	if err != nil {
		respondServiceError(c, err, "Failed to reorder steps")
		return
	}

	respondData(c, http.StatusOK, steps)
}
