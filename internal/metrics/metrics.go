// Package metrics exposes Prometheus counters for the sale and invoice
// lifecycle. Counters only; latency histograms would be noise at the
// traffic level of a single counter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SalesCreated    prometheus.Counter
	SalesCancelled  prometheus.Counter
	InvoicesIssued  *prometheus.CounterVec
	StockRejections prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SalesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "facturacion_sales_created_total",
			Help: "Sales persisted with status completed.",
		}),
		SalesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "facturacion_sales_cancelled_total",
			Help: "Sales transitioned to void.",
		}),
		InvoicesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facturacion_invoices_issued_total",
			Help: "Tax documents issued, by document type.",
		}, []string{"type"}),
		StockRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "facturacion_stock_rejections_total",
			Help: "Sale attempts rejected for insufficient stock.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
