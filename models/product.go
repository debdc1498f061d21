package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is something a company manufactures
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CompanyID   uint           `gorm:"not null;index" json:"company_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Steps       []ProductStep  `gorm:"foreignKey:ProductID" json:"steps,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// ProductStep is a default production step copied into new orders of the product
type ProductStep struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProductID         uint      `gorm:"not null;uniqueIndex:idx_product_step_number" json:"product_id"`
	StepNumber        int       `gorm:"not null;uniqueIndex:idx_product_step_number" json:"step_number"`
	Name              string    `gorm:"not null" json:"name"`
	Description       *string   `gorm:"type:text" json:"description"`
	ResponsibleUserID *uint     `gorm:"index" json:"responsible_user_id"` // default assignee
	ResponsibleUser   *User     `gorm:"foreignKey:ResponsibleUserID" json:"responsible_user,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ProductStep model
func (ProductStep) TableName() string {
	return "product_steps"
}
