package advice

import (
	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/api/types/metrics"
)

// MetricsAdvice maintains atomic counters over the calls that pass through it.
type MetricsAdvice struct {
	metrics *metrics.InvocationMetrics
}

var _ types.Advice = (*MetricsAdvice)(nil)

func NewMetricsAdvice(m *metrics.InvocationMetrics) *MetricsAdvice {
	if m == nil {
		m = metrics.NewInvocationMetrics()
	}
	return &MetricsAdvice{
		metrics: m,
	}
}

func (a *MetricsAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	a.metrics.IncrementCurrent()
	a.metrics.IncrementTotal()
	defer a.metrics.DecrementCurrent()
	result, err := invocation.Proceed()
	if err != nil {
		a.metrics.IncrementFailed()
	} else {
		a.metrics.IncrementSuccess()
	}
	return result, err
}

// GetMetrics returns the counters behind this advice.
func (a *MetricsAdvice) GetMetrics() *metrics.InvocationMetrics {
	return a.metrics
}
