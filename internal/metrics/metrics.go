// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts applied actions by action and resulting status
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Approval actions applied, labeled by action and resulting status",
	}, []string{"action", "status"})

	// EscalationsTotal counts stage escalations performed by the sweep
	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workflow_escalations_total",
		Help: "Overdue stages escalated by the background sweep",
	})

	// ExpirationsTotal counts requests expired by the sweep
	ExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workflow_expirations_total",
		Help: "Requests expired after their due date passed",
	})

	// BulkItemsTotal counts bulk action items by outcome
	BulkItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_bulk_items_total",
		Help: "Bulk action items processed, labeled by outcome",
	}, []string{"outcome"})
)
