// Package metrics exposes Prometheus collectors for conversions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tabconv"

// Collector groups the conversion metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	conversions *prometheus.CounterVec
	rows        *prometheus.CounterVec
	tables      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing nil uses a private registry so that
// several engines can coexist in one process.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Collector{
		conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of conversions",
			},
			[]string{"source", "destination", "status"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Rows carried by conversions",
			},
			[]string{"operation", "format"},
		),
		tables: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tables_total",
				Help:      "Tables carried by conversions",
			},
			[]string{"operation", "format"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed conversion steps",
			},
			[]string{"operation", "format"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of read and write operations in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"operation", "format"},
		),
	}
}

// Conversion counts a finished conversion.
func (c *Collector) Conversion(source, destination string, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.conversions.WithLabelValues(source, destination, status).Inc()
}

// Operation records one read or write step.
func (c *Collector) Operation(op, format string, tables, rows int, start time.Time, err error) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(op, format).Observe(time.Since(start).Seconds())
	if err != nil {
		c.errors.WithLabelValues(op, format).Inc()
		return
	}
	c.tables.WithLabelValues(op, format).Add(float64(tables))
	c.rows.WithLabelValues(op, format).Add(float64(rows))
}
