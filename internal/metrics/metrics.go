// Package metrics exposes Prometheus collectors for the crawl engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsDiscovered tracks items added to the frontier, including seeds.
	ItemsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontier_items_discovered_total",
		Help: "The total number of items added to the frontier.",
	})
	// Fetches tracks download attempts.
	Fetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontier_fetches_total",
		Help: "The total number of item downloads attempted.",
	})
	// FetchErrors tracks downloads dropped due to connection errors or
	// non-success status codes.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontier_fetch_errors_total",
		Help: "The total number of item downloads that failed.",
	})
	// CallbackErrors tracks post-processing callbacks that returned an error.
	CallbackErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontier_callback_errors_total",
		Help: "The total number of post-processing callbacks that failed.",
	})
	// BatchesFinished tracks batches reported back to the tracker.
	BatchesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontier_batches_finished_total",
		Help: "The total number of checked-out batches marked finished.",
	})
	// ActiveWorkers gauges workers currently inside their run loop.
	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frontier_active_workers",
		Help: "Number of workers currently running.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
