package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/production-tracker-api/models"
	"gorm.io/gorm"
)

// ResolvedStep is a step definition ready to be copied into an order
type ResolvedStep struct {
	Name        string
	Description *string
	StepNumber  int
	AssigneeID  uint
}

// StepTemplateResolver returns a product's default step sequence
type StepTemplateResolver interface {
	Resolve(ctx context.Context, productID, companyID uint) ([]ResolvedStep, error)
}

// DBStepTemplateResolver reads ProductStep rows through gorm
type DBStepTemplateResolver struct {
	db *gorm.DB
}

// NewStepTemplateResolver creates a resolver reading from db (pass a transaction to read inside it)
func NewStepTemplateResolver(db *gorm.DB) *DBStepTemplateResolver {
	return &DBStepTemplateResolver{db: db}
}

// Resolve returns the product's template steps ordered by step number.
// Any template step without a responsible user fails the whole resolution.
func (r *DBStepTemplateResolver) Resolve(ctx context.Context, productID, companyID uint) ([]ResolvedStep, error) {
	var templates []models.ProductStep
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("product_id IN (?)", companyProductIDs(r.db, companyID)).
		Order("step_number ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load template steps for product %d: %w", productID, err)
	}

	resolved := make([]ResolvedStep, 0, len(templates))
	for _, tmpl := range templates {
		if tmpl.ResponsibleUserID == nil || *tmpl.ResponsibleUserID == 0 {
			return nil, MissingAssignee(tmpl.Name, productID)
		}
		resolved = append(resolved, ResolvedStep{
			Name:        tmpl.Name,
			Description: tmpl.Description,
			StepNumber:  tmpl.StepNumber,
			AssigneeID:  *tmpl.ResponsibleUserID,
		})
	}
	return resolved, nil
}

func companyProductIDs(db *gorm.DB, companyID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&models.Product{}).Select("id").Where("company_id = ?", companyID)
}
