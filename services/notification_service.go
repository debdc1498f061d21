package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kendall-kelly/production-tracker-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers workflow notifications. Each method returns how many
// users were notified.
type Notifier interface {
	// NotifyOrderResponsibles tells every company user who can see orders that an order was created
	NotifyOrderResponsibles(ctx context.Context, companyID, orderID uint, orderNumber string) (int, error)

	// NotifyAssignedUsers tells each user that they have tasks on an order
	NotifyAssignedUsers(ctx context.Context, companyID uint, userIDs []uint, orderID uint, orderNumber string) (int, error)

	// NotifyOrderStatusChange tells the order's responsibles and assignees about a new status
	NotifyOrderStatusChange(ctx context.Context, companyID, orderID uint, orderNumber, status string) (int, error)
}

// DBNotifier stores notifications as in-app Notification rows
type DBNotifier struct {
	db *gorm.DB
}

// NewDBNotifier creates a notifier writing to db
func NewDBNotifier(db *gorm.DB) *DBNotifier {
	return &DBNotifier{db: db}
}

// NotifyOrderResponsibles notifies users holding order visibility
func (n *DBNotifier) NotifyOrderResponsibles(ctx context.Context, companyID, orderID uint, orderNumber string) (int, error) {
	userIDs, err := n.orderResponsibles(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return n.store(ctx, companyID, userIDs, orderID, models.NotificationOrderCreated,
		fmt.Sprintf("New order %s was created", orderNumber))
}

// NotifyAssignedUsers notifies each distinct assignee once
func (n *DBNotifier) NotifyAssignedUsers(ctx context.Context, companyID uint, userIDs []uint, orderID uint, orderNumber string) (int, error) {
	return n.store(ctx, companyID, distinct(userIDs), orderID, models.NotificationTaskAssigned,
		fmt.Sprintf("You have new tasks on order %s", orderNumber))
}

// NotifyOrderStatusChange notifies order responsibles and everyone assigned to the order
func (n *DBNotifier) NotifyOrderStatusChange(ctx context.Context, companyID, orderID uint, orderNumber, status string) (int, error) {
	userIDs, err := n.orderResponsibles(ctx, companyID)
	if err != nil {
		return 0, err
	}

	var assignees []uint
	if err := n.db.WithContext(ctx).Model(&models.OrderStep{}).
		Where("order_id = ?", orderID).
		Distinct().Pluck("assigned_user_id", &assignees).Error; err != nil {
		return 0, fmt.Errorf("failed to load order assignees: %w", err)
	}

	return n.store(ctx, companyID, distinct(append(userIDs, assignees...)), orderID, models.NotificationStatusChanged,
		fmt.Sprintf("Order %s is now %s", orderNumber, status))
}

func (n *DBNotifier) orderResponsibles(ctx context.Context, companyID uint) ([]uint, error) {
	var users []models.User
	if err := n.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load company users: %w", err)
	}

	var ids []uint
	for _, u := range users {
		if u.HasPermission(models.PermissionOrdersRead) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (n *DBNotifier) store(ctx context.Context, companyID uint, userIDs []uint, orderID uint, kind, message string) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	notifications := make([]models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		oid := orderID
		notifications = append(notifications, models.Notification{
			CompanyID: companyID,
			UserID:    userID,
			OrderID:   &oid,
			Type:      kind,
			Message:   message,
		})
	}

	if err := n.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		return 0, fmt.Errorf("failed to store notifications: %w", err)
	}
	return len(notifications), nil
}

// ListNotifications returns a user's notifications, newest first
func ListNotifications(ctx context.Context, db *gorm.DB, userID, companyID uint, unreadOnly bool) ([]models.Notification, error) {
	query := db.WithContext(ctx).Where("user_id = ? AND company_id = ?", userID, companyID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Limit(100).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead sets read_at on a notification owned by the user
func MarkNotificationRead(ctx context.Context, db *gorm.DB, notificationID, userID, companyID uint) (*models.Notification, error) {
	var notification models.Notification
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND company_id = ?", notificationID, userID, companyID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification %d not found", notificationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if notification.ReadAt == nil {
		now := time.Now()
		if err := db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
		notification.ReadAt = &now
	}
	return &notification, nil
}

// Dispatcher runs notifications in the background after a commit.
// Failures are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher wraps notifier; a nil notifier discards every notification
func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier, timeout: 30 * time.Second}
}

var dispatcherInstance *Dispatcher

// InitDispatcher sets the process-wide dispatcher
func InitDispatcher(notifier Notifier) *Dispatcher {
	dispatcherInstance = NewDispatcher(notifier)
	return dispatcherInstance
}

// GetDispatcher returns the process-wide dispatcher
func GetDispatcher() *Dispatcher {
	return dispatcherInstance
}

// SetDispatcher sets the dispatcher instance (primarily for testing)
func SetDispatcher(d *Dispatcher) {
	dispatcherInstance = d
}

// OrderCreated announces a new order to responsibles and its assignees
func (d *Dispatcher) OrderCreated(order models.Order, assignees []uint) {
	d.run(models.NotificationOrderCreated, func(ctx context.Context) (int, error) {
		return d.notifier.NotifyOrderResponsibles(ctx, order.CompanyID, order.ID, order.OrderNumber)
	})
	d.run(models.NotificationTaskAssigned, func(ctx context.Context) (int, error) {
		return d.notifier.NotifyAssignedUsers(ctx, order.CompanyID, distinct(assignees), order.ID, order.OrderNumber)
	})
}

// OrderStatusChanged announces an order status change
func (d *Dispatcher) OrderStatusChanged(order models.Order, status string) {
	d.run(models.NotificationStatusChanged, func(ctx context.Context) (int, error) {
		return d.notifier.NotifyOrderStatusChange(ctx, order.CompanyID, order.ID, order.OrderNumber, status)
	})
}

// Wait blocks until every dispatched notification has finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(kind string, send func(ctx context.Context) (int, error)) {
	if d == nil || d.notifier == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				notificationFailuresTotal.WithLabelValues(kind).Inc()
				zap.S().Errorw("Notification panicked", "type", kind, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		count, err := send(ctx)
		if err != nil {
			notificationFailuresTotal.WithLabelValues(kind).Inc()
			zap.S().Warnw("Failed to send notification", "type", kind, "error", err)
			return
		}
		zap.S().Debugw("Sent notification", "type", kind, "recipients", count)
	}()
}

func distinct(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
