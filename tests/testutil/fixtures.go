package testutil

import (
	"fmt"
	"testing"

	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a migrated in-memory SQLite database and installs it as config.GetDB().
// Every in-memory connection is a separate database, so the pool is pinned to one.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db), "Failed to migrate test database")

	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(nil)
		_ = sqlDB.Close()
	})
	return db
}

// Fixture is a seeded tenant: a manager allowed everything, two workers and a customer
type Fixture struct {
	DB       *gorm.DB
	Company  models.Company
	Manager  models.User
	Worker   models.User
	Worker2  models.User
	Customer models.Customer
}

// NewFixture seeds a company named name in db
func NewFixture(t *testing.T, db *gorm.DB, name string) *Fixture {
	t.Helper()

	f := &Fixture{DB: db, Company: models.Company{Name: name}}
	require.NoError(t, db.Create(&f.Company).Error)

	f.Manager = f.CreateUser(t, "manager", models.RoleManager,
		"orders:create orders:read orders:manage product_steps:manage")
	f.Worker = f.CreateUser(t, "worker", models.RoleWorker, "")
	f.Worker2 = f.CreateUser(t, "worker2", models.RoleWorker, "")

	f.Customer = models.Customer{CompanyID: f.Company.ID, Name: name + " Customer"}
	require.NoError(t, db.Create(&f.Customer).Error)
	return f
}

// CreateUser adds a company user whose Auth0 subject is "auth0|<company>-<handle>"
func (f *Fixture) CreateUser(t *testing.T, handle, role, permissions string) models.User {
	t.Helper()

	user := models.User{
		Auth0ID:     f.Subject(handle),
		CompanyID:   f.Company.ID,
		Name:        handle,
		Email:       fmt.Sprintf("%s@company%d.example.com", handle, f.Company.ID),
		Role:        role,
		Permissions: permissions,
	}
	require.NoError(t, f.DB.Create(&user).Error)
	return user
}

// Subject returns the Auth0 subject CreateUser gives handle
func (f *Fixture) Subject(handle string) string {
	return fmt.Sprintf("auth0|company%d-%s", f.Company.ID, handle)
}

// CreateProduct adds a product with one template step per assignee, numbered
// from 1. A zero assignee leaves that step without a responsible user.
func (f *Fixture) CreateProduct(t *testing.T, name string, assignees ...uint) models.Product {
	t.Helper()

	product := models.Product{CompanyID: f.Company.ID, Name: name}
	require.NoError(t, f.DB.Create(&product).Error)

	for i, assignee := range assignees {
		step := models.ProductStep{
			ProductID:  product.ID,
			StepNumber: i + 1,
			Name:       fmt.Sprintf("%s step %d", name, i+1),
		}
		if assignee != 0 {
			id := assignee
			step.ResponsibleUserID = &id
		}
		require.NoError(t, f.DB.Create(&step).Error)
		product.Steps = append(product.Steps, step)
	}
	return product
}
