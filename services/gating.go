package services

import "github.com/kendall-kelly/production-tracker-api/models"

// IsEligible reports whether step may start: every sibling (same order and
// product) with a lower step number must be COMPLETED or SKIPPED. siblings may
// include step itself and steps of other products; both are ignored.
func IsEligible(step models.OrderStep, siblings []models.OrderStep) bool {
	for _, s := range siblings {
		if s.ID == step.ID || s.OrderID != step.OrderID || s.ProductID != step.ProductID {
			continue
		}
		if s.StepNumber < step.StepNumber && !s.IsTerminal() {
			return false
		}
	}
	return true
}

// MarkEligibility fills the derived IsEligible flag on every step in place.
// A step is flagged only while it is WAITING and its predecessors are done.
func MarkEligibility(steps []models.OrderStep, siblings []models.OrderStep) {
	for i := range steps {
		steps[i].IsEligible = steps[i].Status == models.StepStatusWaiting && IsEligible(steps[i], siblings)
	}
}
