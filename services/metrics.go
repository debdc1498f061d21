package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "production_orders_created_total",
			Help: "Orders created, by kind (customer or stock)",
		},
		[]string{"kind"},
	)
	orderNumberConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "production_order_number_conflicts_total",
			Help: "Order creations retried because the order number was taken",
		},
	)
	stepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "production_step_transitions_total",
			Help: "Step status transitions, by target status",
		},
		[]string{"status"},
	)
	ordersCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "production_orders_completed_total",
			Help: "Orders that reached COMPLETED through the step cascade",
		},
	)
	notificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "production_notification_failures_total",
			Help: "Notification dispatches that failed, by notification type",
		},
		[]string{"type"},
	)
)
