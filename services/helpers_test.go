package services

import (
	"context"
	"testing"
	"time"

	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	db         *gorm.DB
	fixture    *testutil.Fixture
	notifier   *MockNotifier
	dispatcher *Dispatcher
	orders     *OrderService
	jobs       *JobService
	sequencer  *SequencerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	notifier := NewMockNotifier()
	dispatcher := NewDispatcher(notifier)
	t.Cleanup(dispatcher.Wait)

	env := &testEnv{
		db:         db,
		fixture:    testutil.NewFixture(t, db, "Acme"),
		notifier:   notifier,
		dispatcher: dispatcher,
		orders:     NewOrderService(db, dispatcher),
		jobs:       NewJobService(db, dispatcher),
		sequencer:  NewSequencerService(db),
	}
	env.orders.SetClock(func() time.Time { return testNow })
	env.jobs.SetClock(func() time.Time { return testNow })
	return env
}

// templateOrder creates a customer order from the products' templates
func (e *testEnv) templateOrder(t *testing.T, products ...models.Product) *models.Order {
	t.Helper()

	input := CreateOrderInput{CustomerID: &e.fixture.Customer.ID}
	for _, p := range products {
		input.Products = append(input.Products, OrderProductInput{ProductID: p.ID})
	}
	order, err := e.orders.CreateOrder(context.Background(), e.fixture.Company.ID, input)
	require.NoError(t, err)
	e.dispatcher.Wait()
	return order
}

func (e *testEnv) reloadOrder(t *testing.T, id uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, e.db.First(&order, id).Error)
	return order
}

func (e *testEnv) reloadStep(t *testing.T, id uint) models.OrderStep {
	t.Helper()
	var step models.OrderStep
	require.NoError(t, e.db.First(&step, id).Error)
	return step
}

func stepsOf(order *models.Order, productID uint) []models.OrderStep {
	var steps []models.OrderStep
	for _, s := range order.Steps {
		if s.ProductID == productID {
			steps = append(steps, s)
		}
	}
	return steps
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }
