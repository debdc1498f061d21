package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"time"

	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MyJobs is a worker's steps partitioned by what they can do with them
type MyJobs struct {
	Current    []models.OrderStep `json:"current"`
	InProgress []models.OrderStep `json:"inProgress"`
	Upcoming   []models.OrderStep `json:"upcoming"`
	Completed  []models.OrderStep `json:"completed"`
}

// JobService drives single steps through their lifecycle and cascades the
// result to the owning order. Lookups are scoped to the requester and their
// company, so foreign steps look exactly like missing ones.
type JobService struct {
	db             *gorm.DB
	dispatcher     *Dispatcher
	completedLimit int
	now            func() time.Time
}

// NewJobService creates a job service; dispatcher may be nil
func NewJobService(db *gorm.DB, dispatcher *Dispatcher) *JobService {
	return &JobService{
		db:             db,
		dispatcher:     dispatcher,
		completedLimit: config.GetConfig().CompletedJobsLimit,
		now:            time.Now,
	}
}

// SetClock replaces the time source (primarily for testing)
func (s *JobService) SetClock(now func() time.Time) {
	s.now = now
}

// Start moves a WAITING step assigned to userID to IN_PROGRESS once every
// earlier step of the same product is done, and marks the order IN_PROGRESS.
func (s *JobService) Start(ctx context.Context, stepID, userID, companyID uint) (*models.OrderStep, error) {
	var (
		step         models.OrderStep
		order        models.Order
		orderStarted bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findAssignedStep(tx, stepID, userID, companyID, &step); err != nil {
			return err
		}
		if err := lockOrder(tx, companyID, step.OrderID, &order); err != nil {
			if IsKind(err, KindNotFound) {
				return StepNotFound(stepID)
			}
			return err
		}
		// Re-read under the order lock
		if err := tx.First(&step, step.ID).Error; err != nil {
			return StepNotFound(stepID)
		}
		if step.Status != models.StepStatusWaiting || !order.IsActive() {
			return StepNotFound(stepID)
		}

		var siblings []models.OrderStep
		if err := tx.Where("order_id = ? AND product_id = ?", step.OrderID, step.ProductID).Find(&siblings).Error; err != nil {
			return fmt.Errorf("failed to load sibling steps: %w", err)
		}
		if !IsEligible(step, siblings) {
			return PreviousStepsIncomplete(step.StepNumber)
		}

		next, err := NextStepStatus(step.Status, StepEventStart)
		if err != nil {
			return StepNotFound(stepID)
		}

		result := tx.Model(&models.OrderStep{}).
			Where("id = ? AND status = ?", step.ID, models.StepStatusWaiting).
			Updates(map[string]interface{}{"status": next, "started_at": s.now()})
		if result.Error != nil {
			return fmt.Errorf("failed to start step: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return StepNotFound(stepID)
		}

		if order.Status == models.OrderStatusPending {
			orderNext, err := NextOrderStatus(order.Status, OrderEventBegin)
			if err != nil {
				return err
			}
			result := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
				Update("status", orderNext)
			if result.Error != nil {
				return fmt.Errorf("failed to update order status: %w", result.Error)
			}
			orderStarted = result.RowsAffected == 1
			order.Status = orderNext
		}

		return tx.Preload("Order").Preload("Product").First(&step, step.ID).Error
	})
	if err != nil {
		return nil, mapStorageError(err, "failed to start step")
	}

	stepTransitionsTotal.WithLabelValues(models.StepStatusInProgress).Inc()
	zap.S().Infow("Step started", "step_id", step.ID, "order_id", step.OrderID, "user_id", userID)
	if orderStarted {
		s.dispatcher.OrderStatusChanged(order, models.OrderStatusInProgress)
	}
	return &step, nil
}

// Complete moves an IN_PROGRESS step assigned to userID to COMPLETED,
// optionally replacing its notes. It reports whether the order completed as a result.
func (s *JobService) Complete(ctx context.Context, stepID, userID, companyID uint, notes *string) (*models.OrderStep, bool, error) {
	var (
		step           models.OrderStep
		order          models.Order
		orderCompleted bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findAssignedStep(tx, stepID, userID, companyID, &step); err != nil {
			return err
		}
		if err := lockOrder(tx, companyID, step.OrderID, &order); err != nil {
			if IsKind(err, KindNotFound) {
				return StepNotFound(stepID)
			}
			return err
		}

		next, err := NextStepStatus(models.StepStatusInProgress, StepEventComplete)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": next, "completed_at": s.now()}
		if notes != nil {
			updates["notes"] = *notes
		}
		result := tx.Model(&models.OrderStep{}).
			Where("id = ? AND status = ?", step.ID, models.StepStatusInProgress).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to complete step: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return StepNotFound(stepID)
		}

		orderCompleted, err = completeOrderIfDone(tx, &order)
		if err != nil {
			return err
		}

		return tx.Preload("Order").Preload("Product").First(&step, step.ID).Error
	})
	if err != nil {
		return nil, false, mapStorageError(err, "failed to complete step")
	}

	stepTransitionsTotal.WithLabelValues(models.StepStatusCompleted).Inc()
	zap.S().Infow("Step completed", "step_id", step.ID, "order_id", step.OrderID, "order_completed", orderCompleted)
	if orderCompleted {
		ordersCompletedTotal.Inc()
		s.dispatcher.OrderStatusChanged(order, models.OrderStatusCompleted)
	}
	return &step, orderCompleted, nil
}

// Skip marks a WAITING or IN_PROGRESS step of the company SKIPPED, whoever it
// is assigned to, and runs the completion cascade.
func (s *JobService) Skip(ctx context.Context, orderID, stepID, companyID uint) (*models.OrderStep, bool, error) {
	var (
		step           models.OrderStep
		order          models.Order
		orderCompleted bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, companyID, orderID, &order); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND order_id = ?", stepID, order.ID).First(&step).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return StepNotFound(stepID)
			}
			return fmt.Errorf("failed to load step: %w", err)
		}
		if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusCompleted {
			return InvalidTransition(order.Status, models.StepStatusSkipped)
		}

		next, err := NextStepStatus(step.Status, StepEventSkip)
		if err != nil {
			return InvalidTransition(step.Status, models.StepStatusSkipped)
		}

		result := tx.Model(&models.OrderStep{}).
			Where("id = ? AND status = ?", step.ID, step.Status).
			Update("status", next)
		if result.Error != nil {
			return fmt.Errorf("failed to skip step: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return StepNotFound(stepID)
		}

		orderCompleted, err = completeOrderIfDone(tx, &order)
		if err != nil {
			return err
		}

		return tx.Preload("Order").First(&step, step.ID).Error
	})
	if err != nil {
		return nil, false, mapStorageError(err, "failed to skip step")
	}

	stepTransitionsTotal.WithLabelValues(models.StepStatusSkipped).Inc()
	zap.S().Infow("Step skipped", "step_id", step.ID, "order_id", step.OrderID, "order_completed", orderCompleted)
	if orderCompleted {
		ordersCompletedTotal.Inc()
		s.dispatcher.OrderStatusChanged(order, models.OrderStatusCompleted)
	}
	return &step, orderCompleted, nil
}

// UpdateNotes replaces the notes of a step assigned to userID, in any status
func (s *JobService) UpdateNotes(ctx context.Context, stepID, userID, companyID uint, notes string) (*models.OrderStep, error) {
	var step models.OrderStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findAssignedStep(tx, stepID, userID, companyID, &step); err != nil {
			return err
		}
		// UpdateColumn leaves every timestamp untouched
		if err := tx.Model(&step).UpdateColumn("notes", notes).Error; err != nil {
			return fmt.Errorf("failed to update notes: %w", err)
		}
		return tx.Preload("Order").Preload("Product").First(&step, step.ID).Error
	})
	if err != nil {
		return nil, mapStorageError(err, "failed to update notes")
	}
	return &step, nil
}

// AttachImage uploads a proof-of-work image for a step assigned to userID
func (s *JobService) AttachImage(ctx context.Context, stepID, userID, companyID uint, fileHeader *multipart.FileHeader, images ImageService) (*models.OrderStep, error) {
	if images == nil {
		return nil, errors.New("image service is not configured")
	}

	var step models.OrderStep
	if err := findAssignedStep(s.db.WithContext(ctx), stepID, userID, companyID, &step); err != nil {
		return nil, err
	}

	key, err := images.UploadImage(ctx, step.ID, fileHeader)
	if err != nil {
		return nil, err
	}

	previous := step.ImageS3Key
	if err := s.db.WithContext(ctx).Model(&step).Updates(models.OrderStep{ImageS3Key: &key}).Error; err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	if previous != nil && *previous != key {
		if err := images.DeleteImage(ctx, *previous); err != nil {
			zap.S().Warnw("Failed to delete replaced attachment", "step_id", step.ID, "key", *previous, "error", err)
		}
	}

	step.ImageS3Key = &key
	if url, err := images.GetImageURL(ctx, key); err == nil && url != "" {
		step.ImageURL = &url
	}
	return &step, nil
}

// ListMine returns the requester's steps: current (waiting and startable),
// in progress, upcoming (waiting on earlier steps) and the most recently completed.
// Waiting steps of orders that are on hold or cancelled are left out.
func (s *JobService) ListMine(ctx context.Context, userID, companyID uint) (*MyJobs, error) {
	db := s.db.WithContext(ctx)

	var open []models.OrderStep
	if err := db.Preload("Order").Preload("Product").
		Where("assigned_user_id = ? AND status IN ?", userID, []string{models.StepStatusWaiting, models.StepStatusInProgress}).
		Where("order_id IN (?)", companyOrderIDs(db, companyID)).
		Find(&open).Error; err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	var waitingOrders []uint
	for _, step := range open {
		if startable(step) {
			waitingOrders = append(waitingOrders, step.OrderID)
		}
	}

	var siblings []models.OrderStep
	if len(waitingOrders) > 0 {
		if err := db.Where("order_id IN ?", distinct(waitingOrders)).Find(&siblings).Error; err != nil {
			return nil, fmt.Errorf("failed to load sibling steps: %w", err)
		}
	}

	jobs := &MyJobs{
		Current:    []models.OrderStep{},
		InProgress: []models.OrderStep{},
		Upcoming:   []models.OrderStep{},
		Completed:  []models.OrderStep{},
	}
	for _, step := range open {
		switch step.Status {
		case models.StepStatusInProgress:
			jobs.InProgress = append(jobs.InProgress, step)
		case models.StepStatusWaiting:
			if !startable(step) {
				continue
			}
			if IsEligible(step, siblings) {
				step.IsEligible = true
				jobs.Current = append(jobs.Current, step)
			} else {
				jobs.Upcoming = append(jobs.Upcoming, step)
			}
		}
	}
	sortByUrgency(jobs.Current)
	sortByUrgency(jobs.InProgress)
	sortByUrgency(jobs.Upcoming)

	if err := db.Preload("Order").Preload("Product").
		Where("assigned_user_id = ? AND status = ?", userID, models.StepStatusCompleted).
		Where("order_id IN (?)", companyOrderIDs(db, companyID)).
		Order("completed_at DESC").Order("id DESC").
		Limit(s.completedLimit).
		Find(&jobs.Completed).Error; err != nil {
		return nil, fmt.Errorf("failed to load completed jobs: %w", err)
	}

	return jobs, nil
}

// startable reports whether a waiting step belongs to an order whose steps can
// still start; held and cancelled orders keep their waiting steps out of the lists
func startable(step models.OrderStep) bool {
	return step.Status == models.StepStatusWaiting && step.Order != nil && step.Order.IsActive()
}

// sortByUrgency orders by priority (highest first), deadline (soonest first,
// none last), then step number
func sortByUrgency(steps []models.OrderStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		var ao, bo models.Order
		if a.Order != nil {
			ao = *a.Order
		}
		if b.Order != nil {
			bo = *b.Order
		}

		if ra, rb := models.PriorityRank(ao.Priority), models.PriorityRank(bo.Priority); ra != rb {
			return ra > rb
		}
		switch {
		case ao.Deadline != nil && bo.Deadline == nil:
			return true
		case ao.Deadline == nil && bo.Deadline != nil:
			return false
		case ao.Deadline != nil && bo.Deadline != nil && !ao.Deadline.Equal(*bo.Deadline):
			return ao.Deadline.Before(*bo.Deadline)
		}
		if a.StepNumber != b.StepNumber {
			return a.StepNumber < b.StepNumber
		}
		return a.ID < b.ID
	})
}

// completeOrderIfDone flips the order to COMPLETED when no step of any of its
// products is still open. Must run under the order lock.
func completeOrderIfDone(tx *gorm.DB, order *models.Order) (bool, error) {
	var remaining int64
	if err := tx.Model(&models.OrderStep{}).
		Where("order_id = ? AND status NOT IN ?", order.ID, models.TerminalStepStatuses).
		Count(&remaining).Error; err != nil {
		return false, fmt.Errorf("failed to count open steps: %w", err)
	}
	if remaining > 0 || !CanOrderTransition(order.Status, OrderEventFinish) {
		return false, nil
	}

	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", models.OrderStatusCompleted)
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	order.Status = models.OrderStatusCompleted
	return true, nil
}

func findAssignedStep(tx *gorm.DB, stepID, userID, companyID uint, step *models.OrderStep) error {
	err := tx.Where("id = ? AND assigned_user_id = ?", stepID, userID).
		Where("order_id IN (?)", companyOrderIDs(tx, companyID)).
		First(step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StepNotFound(stepID)
	}
	if err != nil {
		return fmt.Errorf("failed to load step: %w", err)
	}
	return nil
}

// lockOrder loads a company order with a row lock held until the transaction ends
func lockOrder(tx *gorm.DB, companyID, orderID uint, order *models.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND company_id = ?", orderID, companyID).
		First(order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OrderNotFound(orderID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	return nil
}

func companyOrderIDs(db *gorm.DB, companyID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&models.Order{}).Select("id").Where("company_id = ?", companyID)
}
