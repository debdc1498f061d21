package models

import (
	"time"
)

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusOnHold     = "ON_HOLD"
)

// Order priorities, lowest first
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

var priorityRank = map[string]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Order number prefixes
const (
	OrderPrefixCustomer = "SIP"
	OrderPrefixStock    = "STK"
)

// Order is a customer or stock production request made of one or more products
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CompanyID   uint        `gorm:"not null;index;uniqueIndex:idx_company_order_number" json:"company_id"`
	CustomerID  *uint       `gorm:"index" json:"customer_id"` // null iff IsStock
	Customer    *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	OrderNumber string      `gorm:"not null;uniqueIndex:idx_company_order_number" json:"order_number"`
	Priority    string      `gorm:"not null;default:'NORMAL'" json:"priority"`
	Deadline    *time.Time  `json:"deadline"`
	Notes       string      `gorm:"type:text" json:"notes"`
	IsStock     bool        `gorm:"not null;default:false" json:"is_stock"`
	Status      string      `gorm:"not null;default:'PENDING';index" json:"status"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Steps       []OrderStep `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsValidPriority reports whether p is one of the known priorities
func IsValidPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}

// PriorityRank orders priorities so that URGENT ranks highest
func PriorityRank(p string) int {
	return priorityRank[p]
}

// IsValidOrderStatus reports whether s is one of the known order statuses
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled, OrderStatusOnHold:
		return true
	}
	return false
}

// IsActive reports whether steps of the order can still be started
func (o Order) IsActive() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusInProgress
}
