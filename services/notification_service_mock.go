package services

import (
	"context"
	"errors"
	"sync"
)

// NotificationCall records one call made to MockNotifier
type NotificationCall struct {
	Method      string
	CompanyID   uint
	OrderID     uint
	OrderNumber string
	UserIDs     []uint
	Status      string
}

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	calls []NotificationCall
	fail  bool
	mu    sync.Mutex
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailAll makes every following call return an error
func (m *MockNotifier) FailAll() {
	m.mu.Lock()
	m.fail = true
	m.mu.Unlock()
}

// SetAsMockForTesting installs a dispatcher using this mock as the global instance
func (m *MockNotifier) SetAsMockForTesting() *Dispatcher {
	d := NewDispatcher(m)
	SetDispatcher(d)
	return d
}

func (m *MockNotifier) record(call NotificationCall, count int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.fail {
		return 0, errors.New("mock notifier failure")
	}
	return count, nil
}

// NotifyOrderResponsibles records the call
func (m *MockNotifier) NotifyOrderResponsibles(ctx context.Context, companyID, orderID uint, orderNumber string) (int, error) {
	return m.record(NotificationCall{Method: "NotifyOrderResponsibles", CompanyID: companyID, OrderID: orderID, OrderNumber: orderNumber}, 1)
}

// NotifyAssignedUsers records the call
func (m *MockNotifier) NotifyAssignedUsers(ctx context.Context, companyID uint, userIDs []uint, orderID uint, orderNumber string) (int, error) {
	ids := append([]uint(nil), userIDs...)
	return m.record(NotificationCall{Method: "NotifyAssignedUsers", CompanyID: companyID, OrderID: orderID, OrderNumber: orderNumber, UserIDs: ids}, len(ids))
}

// NotifyOrderStatusChange records the call
func (m *MockNotifier) NotifyOrderStatusChange(ctx context.Context, companyID, orderID uint, orderNumber, status string) (int, error) {
	return m.record(NotificationCall{Method: "NotifyOrderStatusChange", CompanyID: companyID, OrderID: orderID, OrderNumber: orderNumber, Status: status}, 1)
}

// Calls returns a copy of every recorded call
func (m *MockNotifier) Calls() []NotificationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationCall(nil), m.calls...)
}

// CallsTo returns the recorded calls of one method
func (m *MockNotifier) CallsTo(method string) []NotificationCall {
	var out []NotificationCall
	for _, call := range m.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// StatusesNotified returns every status passed to NotifyOrderStatusChange.
// Dispatch runs each send in its own goroutine, so the order is not defined;
// compare the result as a set.
func (m *MockNotifier) StatusesNotified() []string {
	var out []string
	for _, call := range m.CallsTo("NotifyOrderStatusChange") {
		out = append(out, call.Status)
	}
	return out
}
