// Package metrics exposes prometheus collectors for the API.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billbook_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billbook_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	TotalsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billbook_totals_computed_total",
		Help: "Totals computations by source (preview, invoice, order, purchase_bill).",
	}, []string{"source"})

	TotalsMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billbook_totals_mismatches_total",
		Help: "Submitted totals that disagreed with the server computation, by field.",
	}, []string{"field"})

	KhataPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billbook_khata_postings_total",
		Help: "Ledger postings by entry and reference type.",
	}, []string{"entry_type", "reference_type"})
)

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
