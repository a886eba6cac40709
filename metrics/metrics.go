// Package metrics exposes Prometheus collectors for statement generation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	KindLedger     = "ledger"
	KindCheckout   = "checkout"
	KindCollection = "collection"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	statementsTotal  *prometheus.CounterVec
	statementLatency *prometheus.HistogramVec
	degradedTotal    *prometheus.CounterVec
	exportTotal      *prometheus.CounterVec
	publishFailTotal *prometheus.CounterVec
	discrepancyTotal *prometheus.CounterVec
)

// Init registers the collectors with reg, or with the default registerer
// when reg is nil. Only the first call has any effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		statementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_statements_total",
			Help: "Statements built, by kind and result.",
		}, []string{"kind", "result"})
		statementLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billing_statement_seconds",
			Help:    "Time spent building a statement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"})
		degradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_precision_degraded_total",
			Help: "Statements whose cash figures were estimated from unitemized payments.",
		}, []string{"kind"})
		exportTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_statement_exports_total",
			Help: "Rendered statement documents, by format and result.",
		}, []string{"format", "result"})
		publishFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_event_publish_failures_total",
			Help: "Events that could not be published.",
		}, []string{"topic"})
		discrepancyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_drift_discrepancies_total",
			Help: "Stored-versus-derived discrepancies found by the drift audit, by check.",
		}, []string{"check"})

		reg.MustRegister(statementsTotal, statementLatency, degradedTotal, exportTotal, publishFailTotal, discrepancyTotal)
	})
}

// ObserveStatement records one statement build. err decides the result label.
func ObserveStatement(kind string, duration time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if statementsTotal != nil {
		statementsTotal.WithLabelValues(kind, result).Inc()
	}
	if statementLatency != nil {
		statementLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

func IncPrecisionDegraded(kind string) {
	if degradedTotal != nil {
		degradedTotal.WithLabelValues(kind).Inc()
	}
}

func ObserveExport(format string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

func IncPublishFailure(topic string) {
	if publishFailTotal != nil {
		publishFailTotal.WithLabelValues(topic).Inc()
	}
}

func AddDiscrepancies(check string, n int) {
	if discrepancyTotal != nil && n > 0 {
		discrepancyTotal.WithLabelValues(check).Add(float64(n))
	}
}
