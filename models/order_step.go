package models

import "time"

// Step statuses
const (
	StepStatusWaiting    = "WAITING"
	StepStatusInProgress = "IN_PROGRESS"
	StepStatusCompleted  = "COMPLETED"
	StepStatusSkipped    = "SKIPPED"
)

// TerminalStepStatuses lists the statuses a step never leaves
var TerminalStepStatuses = []string{StepStatusCompleted, StepStatusSkipped}

// OrderStep is one sequenced, assigned unit of production work for a product within an order.
// StepNumber is unique per (OrderID, ProductID).
type OrderStep struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderID         uint       `gorm:"not null;uniqueIndex:idx_order_product_step_number" json:"order_id"`
	Order           *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ProductID       uint       `gorm:"not null;uniqueIndex:idx_order_product_step_number;index" json:"product_id"`
	Product         *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	StepName        string     `gorm:"not null" json:"step_name"`
	StepDescription *string    `gorm:"type:text" json:"step_description"`
	StepNumber      int        `gorm:"not null;uniqueIndex:idx_order_product_step_number" json:"step_number"`
	AssignedUserID  uint       `gorm:"not null;index" json:"assigned_user"`
	AssignedUser    *User      `gorm:"foreignKey:AssignedUserID" json:"assigned_user_detail,omitempty"`
	Status          string     `gorm:"not null;default:'WAITING';index" json:"status"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	Notes           string     `gorm:"type:text" json:"notes"`
	ImageS3Key      *string    `json:"image_s3_key"`                 // nullable, proof-of-work attachment
	ImageURL        *string    `gorm:"-" json:"image_url,omitempty"` // computed, presigned URL for the attachment
	IsEligible      bool       `gorm:"-" json:"is_eligible"`         // computed on every read, never stored
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the OrderStep model
func (OrderStep) TableName() string {
	return "order_steps"
}

// IsTerminal reports whether the step is COMPLETED or SKIPPED
func (s OrderStep) IsTerminal() bool {
	return IsTerminalStepStatus(s.Status)
}

// IsTerminalStepStatus reports whether status is COMPLETED or SKIPPED
func IsTerminalStepStatus(status string) bool {
	return status == StepStatusCompleted || status == StepStatusSkipped
}
