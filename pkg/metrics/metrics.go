// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package metrics holds prometheus metrics objects and related utility
// functions. It does not abstract away the prometheus client but the caller
// rarely needs to refer to prometheus directly.
package metrics

// Adding a metric
// - Add a metric object of the appropriate type as an exported variable
// - Register the new object in the init function

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewPedanticRegistry()

	// Namespace is prepended to metric names and separated with a '_'.
	Namespace = "openlbaas"

	// SubsystemAPI scopes metrics of the REST surface.
	SubsystemAPI = "api"

	// SubsystemDriver scopes metrics of driver dispatch.
	SubsystemDriver = "driver"

	// SubsystemAgent scopes metrics of the agent reconciler.
	SubsystemAgent = "agent"

	// LabelValueOutcomeSuccess is used as a successful outcome of an
	// operation.
	LabelValueOutcomeSuccess = "success"

	// LabelValueOutcomeFail is used as an unsuccessful outcome of an
	// operation.
	LabelValueOutcomeFail = "fail"

	// APIRequests counts served REST requests by handler, method and
	// return code.
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAPI,
		Name:      "requests_total",
		Help:      "Number of REST requests served, labeled by handler, method and code",
	}, []string{"handler", "method", "code"})

	// APIRequestDuration observes the latency of REST requests.
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAPI,
		Name:      "request_duration_seconds",
		Help:      "Latency of REST requests, labeled by handler and method",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler", "method"})

	// DriverOperations counts driver manager calls by provider, operation
	// and outcome.
	DriverOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDriver,
		Name:      "operations_total",
		Help:      "Number of driver operations dispatched, labeled by provider, operation and outcome",
	}, []string{"provider", "operation", "outcome"})

	// AgentReschedules counts load balancers moved off dead agents.
	AgentReschedules = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAgent,
		Name:      "reschedules_total",
		Help:      "Number of load balancers rescheduled away from dead agents",
	})

	// ReconcileDuration observes the duration of agent reconcile cycles.
	ReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAgent,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of agent reconcile cycles",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	MustRegister(APIRequests)
	MustRegister(APIRequestDuration)
	MustRegister(DriverOperations)
	MustRegister(AgentReschedules)
	MustRegister(ReconcileDuration)
}

// MustRegister adds collectors to the registry, panicking on conflicts.
func MustRegister(c ...prometheus.Collector) {
	registry.MustRegister(c...)
}

// ObserveAPIRequest records one served REST request.
func ObserveAPIRequest(handler, method, code string, duration time.Duration) {
	APIRequests.WithLabelValues(handler, method, code).Inc()
	APIRequestDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// ObserveDriverOperation records one driver dispatch.
func ObserveDriverOperation(provider, operation string, err error) {
	outcome := LabelValueOutcomeSuccess
	if err != nil {
		outcome = LabelValueOutcomeFail
	}
	DriverOperations.WithLabelValues(provider, operation, outcome).Inc()
}

// Handler returns the scrape endpoint for the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
