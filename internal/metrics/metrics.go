package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProvisionMetrics holds all Prometheus metrics for the provisioning service.
type ProvisionMetrics struct {
	RequestsTotal  *prometheus.CounterVec
	KeyCacheHits   prometheus.Counter
	KeyCacheMisses prometheus.Counter
	DevicesCreated prometheus.Counter
}

// NewProvisionMetrics initializes and registers the Prometheus metrics.
func NewProvisionMetrics() *ProvisionMetrics {
	return &ProvisionMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provisiond",
			Subsystem: "provision",
			Name:      "requests_total",
			Help:      "Total number of provisioning requests by response status.",
		}, []string{"status"}), // status: SUCCESS, NOT_FOUND, FAILURE
		KeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Subsystem: "keyindex",
			Name:      "cache_hits_total",
			Help:      "Total number of provision key cache hits.",
		}),
		KeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Subsystem: "keyindex",
			Name:      "cache_misses_total",
			Help:      "Total number of provision key cache misses.",
		}),
		DevicesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Subsystem: "provision",
			Name:      "devices_created_total",
			Help:      "Total number of devices created through provisioning.",
		}),
	}
}
