package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncSheetsPublish("success")
	})
}

func TestObserveImport(t *testing.T) {
	before := counterValue(t, importRecords)
	beforeSkipped := counterValue(t, importRowsSkipped.WithLabelValues("missing_time"))
	beforeEmpty := counterValue(t, imports.WithLabelValues("empty_import"))

	ObserveImport("success", 12, map[string]int{"missing_time": 3})
	ObserveImport("empty_import", 0, nil)

	assert.Equal(t, before+12, counterValue(t, importRecords))
	assert.Equal(t, beforeSkipped+3, counterValue(t, importRowsSkipped.WithLabelValues("missing_time")))
	assert.Equal(t, beforeEmpty+1, counterValue(t, imports.WithLabelValues("empty_import")))
}
