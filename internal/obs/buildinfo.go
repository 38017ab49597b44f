package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optigov_build_info",
			Help: "OptiGov build information.",
		},
		[]string{"version", "storage_driver"},
	)
)

// InitBuildInfo publishes optigov_build_info{version, storage_driver} 1.
func InitBuildInfo(version, driver string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, driver).Set(1)
}
