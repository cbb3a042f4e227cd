package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for contact discovery.
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	ContactsFound      *prometheus.CounterVec
	ContactsTotal      prometheus.Counter
	FormsFound         prometheus.Counter
	HighConfidence     prometheus.Counter
	ValidationFailures prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ExtractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_extractions_total",
			Help: "The total number of per-listing extraction attempts",
		}, []string{"outcome"}), // 'success', 'failure'
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contact_extraction_duration_seconds",
			Help:    "Duration of per-listing contact discovery",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		}),
		ContactsFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_found_total",
			Help: "The total number of contacts discovered",
		}, []string{"method"}), // 'email', 'phone'
		ContactsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contacts_discovered_total",
			Help: "The total number of contacts discovered across all methods",
		}),
		FormsFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_forms_found_total",
			Help: "The total number of contact forms discovered",
		}),
		HighConfidence: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contacts_high_confidence_total",
			Help: "The total number of high-confidence contacts discovered",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_validation_failures_total",
			Help: "The total number of contacts failing validation",
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_discovery_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g. 'scrape_failed', 'db_store_failed'
	}
}

// RecordContactExtraction records one per-listing discovery attempt,
// success or failure.
func (m *Metrics) RecordContactExtraction(duration time.Duration, success bool, contacts, emails, phones, forms, highConfidence, validationFailures int) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
	m.ExtractionDuration.Observe(duration.Seconds())
	m.ContactsTotal.Add(float64(contacts))
	m.ContactsFound.WithLabelValues("email").Add(float64(emails))
	m.ContactsFound.WithLabelValues("phone").Add(float64(phones))
	m.FormsFound.Add(float64(forms))
	m.HighConfidence.Add(float64(highConfidence))
	m.ValidationFailures.Add(float64(validationFailures))
}

// IncErrorsTotal counts one error by type.
func (m *Metrics) IncErrorsTotal(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
