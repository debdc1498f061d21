package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateOrderInput is everything needed to place an order
type CreateOrderInput struct {
	CustomerID *uint
	Priority   string
	Deadline   *time.Time
	Notes      string
	IsStock    bool
	Products   []OrderProductInput
}

// OrderProductInput is one product line; CustomSteps replace the product's template when present
type OrderProductInput struct {
	ProductID   uint
	Quantity    int
	CustomSteps []CustomStepInput
}

// CustomStepInput is a caller-supplied step definition
type CustomStepInput struct {
	StepName        string
	StepDescription *string
	StepNumber      int
	AssignedUser    *uint
}

// errOrderNumberTaken signals a lost race on the (company, order_number) unique index
var errOrderNumberTaken = errors.New("order number already taken")

// OrderService creates and administers orders
type OrderService struct {
	db          *gorm.DB
	dispatcher  *Dispatcher
	maxAttempts int
	now         func() time.Time
}

// NewOrderService creates an order service; dispatcher may be nil
func NewOrderService(db *gorm.DB, dispatcher *Dispatcher) *OrderService {
	return &OrderService{
		db:          db,
		dispatcher:  dispatcher,
		maxAttempts: config.GetConfig().OrderNumberMaxAttempts,
		now:         time.Now,
	}
}

// SetClock replaces the time source (primarily for testing)
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrder validates input and atomically stores the order, its items and
// all of its steps. Notifications go out only after the commit.
func (s *OrderService) CreateOrder(ctx context.Context, companyID uint, input CreateOrderInput) (*models.Order, error) {
	if err := normalizeOrderInput(&input); err != nil {
		return nil, err
	}

	var (
		order     *models.Order
		assignees []uint
		err       error
	)
	// A retry re-reads the numbers committed by whoever won the race
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		order, assignees, err = s.createOrderTx(ctx, companyID, input)
		if !errors.Is(err, errOrderNumberTaken) {
			break
		}
		orderNumberConflictsTotal.Inc()
		zap.S().Warnw("Order number taken, retrying", "company_id", companyID, "attempt", attempt+1)
	}
	if errors.Is(err, errOrderNumberTaken) {
		return nil, Conflict("could not allocate an order number, please retry")
	}
	if err != nil {
		return nil, mapStorageError(err, "failed to create order")
	}

	kind := "customer"
	if order.IsStock {
		kind = "stock"
	}
	ordersCreatedTotal.WithLabelValues(kind).Inc()
	zap.S().Infow("Order created",
		"company_id", companyID,
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"assignees", len(distinct(assignees)),
	)

	s.dispatcher.OrderCreated(*order, assignees)

	return s.GetOrder(ctx, companyID, order.ID)
}

func (s *OrderService) createOrderTx(ctx context.Context, companyID uint, input CreateOrderInput) (*models.Order, []uint, error) {
	var (
		order     models.Order
		assignees []uint
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customerID *uint
		if !input.IsStock {
			var customer models.Customer
			if err := tx.Where("id = ? AND company_id = ?", *input.CustomerID, companyID).First(&customer).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return CustomerNotFound(*input.CustomerID)
				}
				return fmt.Errorf("failed to load customer: %w", err)
			}
			customerID = &customer.ID
		}

		now := s.now()
		number, err := nextOrderNumber(tx, companyID, input.IsStock, now)
		if err != nil {
			return err
		}

		order = models.Order{
			CompanyID:   companyID,
			CustomerID:  customerID,
			OrderNumber: number,
			Priority:    input.Priority,
			Deadline:    input.Deadline,
			Notes:       input.Notes,
			IsStock:     input.IsStock,
			Status:      models.OrderStatusPending,
			CreatedAt:   now,
		}
		if err := tx.Create(&order).Error; err != nil {
			if isDuplicateKey(err) {
				return errOrderNumberTaken
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		resolver := NewStepTemplateResolver(tx)
		members := make(map[uint]bool)
		for _, p := range input.Products {
			var product models.Product
			if err := tx.Where("id = ? AND company_id = ?", p.ProductID, companyID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ProductNotFound(p.ProductID)
				}
				return fmt.Errorf("failed to load product %d: %w", p.ProductID, err)
			}

			item := models.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: p.Quantity}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create item for product %d: %w", product.ID, err)
			}

			steps, err := stepsForProduct(ctx, resolver, p, companyID)
			if err != nil {
				return err
			}

			for _, step := range steps {
				if err := requireMember(tx, members, step.AssigneeID, companyID); err != nil {
					return err
				}

				orderStep := models.OrderStep{
					OrderID:         order.ID,
					ProductID:       product.ID,
					StepName:        step.Name,
					StepDescription: step.Description,
					StepNumber:      step.StepNumber,
					AssignedUserID:  step.AssigneeID,
					Status:          models.StepStatusWaiting,
				}
				if err := tx.Create(&orderStep).Error; err != nil {
					return mapStorageError(err, fmt.Sprintf("failed to create step %q of product %d", step.Name, product.ID))
				}
				assignees = append(assignees, step.AssigneeID)
			}
		}

		if len(assignees) == 0 {
			return NoResponsibleUser()
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, assignees, nil
}

// nextOrderNumber formats {SIP|STK}-{YYYYMMDD}-{seq}. The sequence follows the
// highest number the company used that day under either prefix, so deleted
// orders never make it hand out a number that is still taken.
func nextOrderNumber(tx *gorm.DB, companyID uint, isStock bool, now time.Time) (string, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Format("20060102")

	var numbers []string
	if err := tx.Model(&models.Order{}).
		Where("company_id = ? AND order_number LIKE ?", companyID, "%-"+day+"-%").
		Pluck("order_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to load today's order numbers: %w", err)
	}

	highest := 0
	for _, number := range numbers {
		seq, err := strconv.Atoi(number[strings.LastIndex(number, "-")+1:])
		if err != nil {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}

	prefix := models.OrderPrefixCustomer
	if isStock {
		prefix = models.OrderPrefixStock
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, day, highest+1), nil
}

func stepsForProduct(ctx context.Context, resolver StepTemplateResolver, p OrderProductInput, companyID uint) ([]ResolvedStep, error) {
	if len(p.CustomSteps) == 0 {
		return resolver.Resolve(ctx, p.ProductID, companyID)
	}

	steps := make([]ResolvedStep, 0, len(p.CustomSteps))
	for _, custom := range p.CustomSteps {
		steps = append(steps, ResolvedStep{
			Name:        custom.StepName,
			Description: custom.StepDescription,
			StepNumber:  custom.StepNumber,
			AssigneeID:  *custom.AssignedUser,
		})
	}
	return steps, nil
}

func requireMember(tx *gorm.DB, members map[uint]bool, userID, companyID uint) error {
	if members[userID] {
		return nil
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ? AND company_id = ?", userID, companyID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if count == 0 {
		return UserNotFound(userID)
	}
	members[userID] = true
	return nil
}

// normalizeOrderInput applies defaults and rejects malformed input before any write
func normalizeOrderInput(input *CreateOrderInput) error {
	if len(input.Products) == 0 {
		return ValidationError("at least one product is required")
	}

	input.Priority = strings.ToUpper(strings.TrimSpace(input.Priority))
	if input.Priority == "" {
		input.Priority = models.PriorityNormal
	}
	if !models.IsValidPriority(input.Priority) {
		return ValidationError("invalid priority %q", input.Priority)
	}

	if input.IsStock {
		input.CustomerID = nil
	} else if input.CustomerID == nil || *input.CustomerID == 0 {
		return ValidationError("customer is required for non-stock orders")
	}

	seenProducts := make(map[uint]bool)
	for i := range input.Products {
		p := &input.Products[i]
		if p.ProductID == 0 {
			return ValidationError("product %d is missing product_id", i+1)
		}
		if seenProducts[p.ProductID] {
			return ValidationError("product %d is listed more than once", p.ProductID)
		}
		seenProducts[p.ProductID] = true

		if p.Quantity == 0 {
			p.Quantity = 1
		}
		if p.Quantity < 0 {
			return ValidationError("quantity of product %d must be positive", p.ProductID)
		}

		seenNumbers := make(map[int]bool)
		for j := range p.CustomSteps {
			step := &p.CustomSteps[j]
			step.StepName = strings.TrimSpace(step.StepName)
			if step.StepName == "" {
				return ValidationError("custom step %d of product %d is missing step_name", j+1, p.ProductID)
			}
			if step.AssignedUser == nil || *step.AssignedUser == 0 {
				return MissingAssignee(step.StepName, p.ProductID)
			}
			if step.StepNumber == 0 {
				step.StepNumber = j + 1
			}
			if step.StepNumber < 0 {
				return ValidationError("step %q of product %d has a negative step_number", step.StepName, p.ProductID)
			}
			if seenNumbers[step.StepNumber] {
				return ValidationError("step_number %d is used twice for product %d", step.StepNumber, p.ProductID)
			}
			seenNumbers[step.StepNumber] = true
		}
	}
	return nil
}

// GetOrder returns an order of the company with items and steps, each step
// carrying its derived eligibility
func (s *OrderService) GetOrder(ctx context.Context, companyID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_id ASC").Order("step_number ASC")
		}).
		Where("id = ? AND company_id = ?", orderID, companyID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, OrderNotFound(orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	MarkEligibility(order.Steps, order.Steps)
	return &order, nil
}

// ListOrders returns the company's orders, newest first, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, companyID uint, status string) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Customer").Where("company_id = ?", companyID)
	if status != "" {
		if !models.IsValidOrderStatus(status) {
			return nil, ValidationError("invalid status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// SetStatus applies an externally requested status (ON_HOLD, CANCELLED, or
// resuming ON_HOLD to PENDING / IN_PROGRESS). COMPLETED is only reached
// through the step cascade.
func (s *OrderService) SetStatus(ctx context.Context, companyID, orderID uint, status string) (*models.Order, error) {
	event, ok := orderEventFor[status]
	if !ok {
		return nil, ValidationError("status %q cannot be set directly", status)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, companyID, orderID, &order); err != nil {
			return err
		}

		next, err := NextOrderStatus(order.Status, event)
		if err != nil {
			return InvalidTransition(order.Status, status)
		}

		if err := tx.Model(&order).Update("status", next).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = next
		return nil
	})
	if err != nil {
		return nil, mapStorageError(err, "failed to update order status")
	}

	zap.S().Infow("Order status set", "order_id", order.ID, "status", order.Status)
	s.dispatcher.OrderStatusChanged(order, order.Status)
	return &order, nil
}

// DeleteOrder removes an order together with its items and steps
func (s *OrderService) DeleteOrder(ctx context.Context, companyID, orderID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, companyID, orderID, &order); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderStep{}).Error; err != nil {
			return fmt.Errorf("failed to delete order steps: %w", err)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := tx.Delete(&order).Error; err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return mapStorageError(err, "failed to delete order")
	}

	zap.S().Infow("Order deleted", "company_id", companyID, "order_id", orderID)
	return nil
}
