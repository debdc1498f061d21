package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleWorker  = "worker"
)

// Permissions checked by the API
const (
	PermissionOrdersCreate       = "orders:create"
	PermissionOrdersRead         = "orders:read"
	PermissionOrdersManage       = "orders:manage"
	PermissionProductStepsManage = "product_steps:manage"
)

// User represents a member of a company (admin, manager or shop-floor worker)
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Auth0ID     string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	CompanyID   uint           `gorm:"not null;index" json:"company_id"`
	Company     Company        `gorm:"foreignKey:CompanyID" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`
	Role        string         `gorm:"not null;default:'worker'" json:"role"`
	Permissions string         `gorm:"not null;default:''" json:"permissions"` // space separated
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// HasPermission reports whether the user is an admin or was granted permission
func (u User) HasPermission(permission string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, granted := range strings.Fields(u.Permissions) {
		if granted == permission {
			return true
		}
	}
	return false
}
