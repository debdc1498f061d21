package models

import "time"

// Notification types
const (
	NotificationOrderCreated  = "order_created"
	NotificationTaskAssigned  = "task_assigned"
	NotificationStatusChanged = "order_status_changed"
)

// Notification is an in-app message for one user
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CompanyID uint       `gorm:"not null;index" json:"company_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	OrderID   *uint      `gorm:"index" json:"order_id"`
	Type      string     `gorm:"not null" json:"type"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
