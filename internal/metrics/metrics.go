// Package metrics exposes Prometheus counters for node mutations, backend fallbacks
// and translations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_node_mutations_total",
		Help: "Node store mutations by operation and result",
	}, []string{"op", "result"})

	backendFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archive_backend_fallbacks_total",
		Help: "Reads served from the local snapshot because the remote backend failed",
	})

	translations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_translations_total",
		Help: "Background translations by result (ok, failed, unavailable)",
	}, []string{"result"})
)

// Recorder is what the services report to.
type Recorder interface {
	Mutation(op string, err error)
	Fallback()
	Translation(result string)
}

// Prometheus records to the process-wide registry served on /metrics.
type Prometheus struct{}

func (Prometheus) Mutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	nodeMutations.WithLabelValues(op, result).Inc()
}

func (Prometheus) Fallback() { backendFallbacks.Inc() }

func (Prometheus) Translation(result string) { translations.WithLabelValues(result).Inc() }

// Nop drops every observation.
type Nop struct{}

func (Nop) Mutation(string, error) {}
func (Nop) Fallback()              {}
func (Nop) Translation(string)     {}
