package observability

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
)

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the request metrics middleware registered on the
// default Prometheus registry. Collectors can only be registered once per
// process, so every server instance shares it.
func HTTPMetrics() *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(ServiceName)
	})
	return httpMetrics
}
