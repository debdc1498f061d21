package models

import (
	"time"

	"gorm.io/gorm"
)

// Company is a tenant; every other record belongs to exactly one company
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Company model
func (Company) TableName() string {
	return "companies"
}
