package services

import (
	"context"

	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/looplab/fsm"
)

// Step lifecycle events
const (
	StepEventStart    = "start"
	StepEventComplete = "complete"
	StepEventSkip     = "skip"
)

// Order lifecycle events
const (
	OrderEventBegin  = "begin"
	OrderEventFinish = "finish"
	OrderEventHold   = "hold"
	OrderEventReopen = "reopen"
	OrderEventResume = "resume"
	OrderEventCancel = "cancel"
)

var stepTransitions = fsm.Events{
	{Name: StepEventStart, Src: []string{models.StepStatusWaiting}, Dst: models.StepStatusInProgress},
	{Name: StepEventComplete, Src: []string{models.StepStatusInProgress}, Dst: models.StepStatusCompleted},
	{Name: StepEventSkip, Src: []string{models.StepStatusWaiting, models.StepStatusInProgress}, Dst: models.StepStatusSkipped},
}

var orderTransitions = fsm.Events{
	{Name: OrderEventBegin, Src: []string{models.OrderStatusPending}, Dst: models.OrderStatusInProgress},
	{Name: OrderEventFinish, Src: []string{models.OrderStatusPending, models.OrderStatusInProgress, models.OrderStatusOnHold}, Dst: models.OrderStatusCompleted},
	{Name: OrderEventHold, Src: []string{models.OrderStatusPending, models.OrderStatusInProgress}, Dst: models.OrderStatusOnHold},
	{Name: OrderEventReopen, Src: []string{models.OrderStatusOnHold}, Dst: models.OrderStatusPending},
	{Name: OrderEventResume, Src: []string{models.OrderStatusOnHold}, Dst: models.OrderStatusInProgress},
	{Name: OrderEventCancel, Src: []string{models.OrderStatusPending, models.OrderStatusInProgress, models.OrderStatusOnHold}, Dst: models.OrderStatusCancelled},
}

// orderEventFor maps an externally requested order status to its event
var orderEventFor = map[string]string{
	models.OrderStatusOnHold:     OrderEventHold,
	models.OrderStatusCancelled:  OrderEventCancel,
	models.OrderStatusPending:    OrderEventReopen,
	models.OrderStatusInProgress: OrderEventResume,
}

// NextStepStatus returns the status a step in status from reaches through event
func NextStepStatus(from, event string) (string, error) {
	return transition(stepTransitions, from, event)
}

// NextOrderStatus returns the status an order in status from reaches through event
func NextOrderStatus(from, event string) (string, error) {
	return transition(orderTransitions, from, event)
}

// CanOrderTransition reports whether the order machine allows event from status from
func CanOrderTransition(from, event string) bool {
	return fsm.NewFSM(from, orderTransitions, fsm.Callbacks{}).Can(event)
}

func transition(events fsm.Events, from, event string) (string, error) {
	machine := fsm.NewFSM(from, events, fsm.Callbacks{})
	if err := machine.Event(context.Background(), event); err != nil {
		return "", err
	}
	return machine.Current(), nil
}
