package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/production-tracker-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SequencerService renumbers step sequences under the step_number unique index
type SequencerService struct {
	db *gorm.DB
}

// NewSequencerService creates a sequencer
func NewSequencerService(db *gorm.DB) *SequencerService {
	return &SequencerService{db: db}
}

// ReorderProductSteps renumbers a product's template steps so that
// orderedIDs[i] gets step_number i+1. orderedIDs must list every step of the product.
func (s *SequencerService) ReorderProductSteps(ctx context.Context, companyID, productID uint, orderedIDs []uint) ([]models.ProductStep, error) {
	if err := validateOrdering(orderedIDs); err != nil {
		return nil, err
	}

	var steps []models.ProductStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ? AND company_id = ?", productID, companyID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ProductNotFound(productID)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		var existing []models.ProductStep
		if err := tx.Where("product_id = ?", product.ID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load product steps: %w", err)
		}
		inScope := make(map[uint]bool, len(existing))
		for _, step := range existing {
			inScope[step.ID] = true
		}
		if err := checkScope(orderedIDs, inScope); err != nil {
			return err
		}

		if err := twoPhaseRenumber(tx, &models.ProductStep{}, [][]uint{orderedIDs}); err != nil {
			return err
		}

		return tx.Where("product_id = ?", product.ID).Order("step_number ASC").Find(&steps).Error
	})
	if err != nil {
		return nil, mapStorageError(err, "failed to reorder product steps")
	}

	zap.S().Infow("Product steps reordered", "product_id", productID, "steps", len(orderedIDs))
	return steps, nil
}

// ReorderOrderSteps renumbers the steps of an order. Steps are grouped by
// product in the order they appear; within each product the i-th listed step
// gets step_number i+1. orderedIDs must list every step of the order.
func (s *SequencerService) ReorderOrderSteps(ctx context.Context, companyID, orderID uint, orderedIDs []uint) ([]models.OrderStep, error) {
	if err := validateOrdering(orderedIDs); err != nil {
		return nil, err
	}

	var steps []models.OrderStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, companyID, orderID, &order); err != nil {
			return err
		}

		var existing []models.OrderStep
		if err := tx.Where("order_id = ?", order.ID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load order steps: %w", err)
		}
		productOf := make(map[uint]uint, len(existing))
		inScope := make(map[uint]bool, len(existing))
		for _, step := range existing {
			productOf[step.ID] = step.ProductID
			inScope[step.ID] = true
		}
		if err := checkScope(orderedIDs, inScope); err != nil {
			return err
		}

		var (
			groups   [][]uint
			groupFor = make(map[uint]int)
		)
		for _, id := range orderedIDs {
			productID := productOf[id]
			idx, ok := groupFor[productID]
			if !ok {
				idx = len(groups)
				groupFor[productID] = idx
				groups = append(groups, nil)
			}
			groups[idx] = append(groups[idx], id)
		}

		if err := twoPhaseRenumber(tx, &models.OrderStep{}, groups); err != nil {
			return err
		}

		return tx.Where("order_id = ?", order.ID).
			Order("product_id ASC").Order("step_number ASC").
			Find(&steps).Error
	})
	if err != nil {
		return nil, mapStorageError(err, "failed to reorder order steps")
	}

	zap.S().Infow("Order steps reordered", "order_id", orderID, "steps", len(orderedIDs))
	return steps, nil
}

// twoPhaseRenumber gives every step a distinct negative number first, then its
// final 1-based position within its group. No intermediate state can collide
// with a positive step_number, whatever the previous numbering was.
func twoPhaseRenumber(tx *gorm.DB, model interface{}, groups [][]uint) error {
	temp := 0
	for _, group := range groups {
		for _, id := range group {
			temp++
			if err := tx.Model(model).Where("id = ?", id).Update("step_number", -temp).Error; err != nil {
				return fmt.Errorf("failed to park step %d: %w", id, err)
			}
		}
	}

	for _, group := range groups {
		for i, id := range group {
			if err := tx.Model(model).Where("id = ?", id).Update("step_number", i+1).Error; err != nil {
				return fmt.Errorf("failed to renumber step %d: %w", id, err)
			}
		}
	}
	return nil
}

func validateOrdering(ids []uint) error {
	if len(ids) == 0 {
		return ValidationError("steps must not be empty")
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return ValidationError("step %d is listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// checkScope requires ids to be exactly the steps in scope
func checkScope(ids []uint, inScope map[uint]bool) error {
	for _, id := range ids {
		if !inScope[id] {
			return StepNotFound(id)
		}
	}
	if len(ids) != len(inScope) {
		return ValidationError("all %d steps must be listed, got %d", len(inScope), len(ids))
	}
	return nil
}
