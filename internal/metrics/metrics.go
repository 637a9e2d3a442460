package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aforo"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Reservation file imports by outcome.",
		},
		[]string{"outcome"},
	)

	importRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Pool reservations stored by imports.",
		},
	)

	importRowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_skipped_total",
			Help:      "Export rows skipped during parsing by reason.",
		},
		[]string{"reason"},
	)

	sheetsPublish = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_publish_total",
			Help:      "Occupancy publications to Google Sheets by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, imports, importRecords, importRowsSkipped, sheetsPublish)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveImport records one import attempt. outcome is "success" or the
// failure kind.
func ObserveImport(outcome string, records int, skipped map[string]int) {
	imports.WithLabelValues(outcome).Inc()
	if records > 0 {
		importRecords.Add(float64(records))
	}
	for reason, n := range skipped {
		importRowsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

func IncSheetsPublish(outcome string) {
	sheetsPublish.WithLabelValues(outcome).Inc()
}
