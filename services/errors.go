package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrorKind classifies workflow failures
type ErrorKind string

const (
	KindValidation ErrorKind = "ValidationError"
	KindNotFound   ErrorKind = "NotFoundError"
	KindGating     ErrorKind = "GatingViolation"
	KindAssignment ErrorKind = "AssignmentError"
	KindConflict   ErrorKind = "ConflictError"
)

// Error codes returned to clients
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeCustomerNotFound  = "CUSTOMER_NOT_FOUND"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeStepNotFound      = "STEP_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeMissingAssignee   = "MISSING_ASSIGNEE"
	CodeNoResponsibleUser = "NO_RESPONSIBLE_USER"
	CodePreviousSteps     = "PREVIOUS_STEPS_INCOMPLETE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "CONFLICT"
)

// WorkflowError is returned for every expected failure of the workflow engine
type WorkflowError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *WorkflowError) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed input
func ValidationError(format string, args ...interface{}) *WorkflowError {
	return newError(KindValidation, CodeValidation, format, args...)
}

// CustomerNotFound reports a customer that does not exist in the company
func CustomerNotFound(customerID uint) *WorkflowError {
	return newError(KindNotFound, CodeCustomerNotFound, "customer %d not found", customerID)
}

// ProductNotFound reports a product that does not exist in the company
func ProductNotFound(productID uint) *WorkflowError {
	return newError(KindNotFound, CodeProductNotFound, "product %d not found", productID)
}

// UserNotFound reports an assignee that is not a member of the company
func UserNotFound(userID uint) *WorkflowError {
	return newError(KindNotFound, CodeUserNotFound, "user %d not found", userID)
}

// StepNotFound reports a step that does not exist or is not visible to the caller
func StepNotFound(stepID uint) *WorkflowError {
	return newError(KindNotFound, CodeStepNotFound, "step %d not found", stepID)
}

// OrderNotFound reports an order that does not exist or is not visible to the caller
func OrderNotFound(orderID uint) *WorkflowError {
	return newError(KindNotFound, CodeOrderNotFound, "order %d not found", orderID)
}

// MissingAssignee reports a step that resolved without an assignee
func MissingAssignee(stepName string, productID uint) *WorkflowError {
	return newError(KindAssignment, CodeMissingAssignee,
		"step %q of product %d has no responsible user", stepName, productID)
}

// NoResponsibleUser reports an order whose steps have no assignee at all
func NoResponsibleUser() *WorkflowError {
	return newError(KindAssignment, CodeNoResponsibleUser,
		"order has no steps with a responsible user")
}

// PreviousStepsIncomplete reports an attempt to start a step ahead of its turn
func PreviousStepsIncomplete(stepNumber int) *WorkflowError {
	return newError(KindGating, CodePreviousSteps,
		"steps before step %d must be completed or skipped first", stepNumber)
}

// InvalidTransition reports a status change the lifecycle does not allow
func InvalidTransition(from, to string) *WorkflowError {
	return newError(KindValidation, CodeInvalidTransition, "cannot change status from %s to %s", from, to)
}

// Conflict reports a storage uniqueness violation; callers may retry
func Conflict(format string, args ...interface{}) *WorkflowError {
	return newError(KindConflict, CodeConflict, format, args...)
}

// IsKind reports whether err is a WorkflowError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr) && wfErr.Kind == kind
}

// isDuplicateKey detects unique constraint violations on both PostgreSQL and SQLite
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint")
}

// mapStorageError turns unique violations into ConflictError and leaves other errors alone
func mapStorageError(err error, what string) error {
	if err == nil {
		return nil
	}
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return err
	}
	if isDuplicateKey(err) {
		return Conflict("%s conflicted with a concurrent change, please retry", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
