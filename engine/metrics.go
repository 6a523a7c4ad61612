package engine

import "time"

// Metrics receives engine instrumentation. See package metrics for the
// Prometheus implementation.
type Metrics interface {
	BatchApplied(result BatchResult, length int)
	FilterObserved(d time.Duration, cached bool)
}

type nopMetrics struct{}

func (nopMetrics) BatchApplied(BatchResult, int)      {}
func (nopMetrics) FilterObserved(time.Duration, bool) {}
