package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders placed, by payment method",
		},
		[]string{"payment_method"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes",
		},
		[]string{"from", "to"},
	)

	paymentLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_lookup_failures_total",
			Help: "Payment info lookups that failed and were omitted from the order view",
		},
	)
)
