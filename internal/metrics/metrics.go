package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prompt_builder"

var (
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "sessions_total",
			Help:      "Generation requests by outcome (rejected, busy, succeeded, failed).",
		},
		[]string{"outcome"},
	)

	BackendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "backend_duration_seconds",
			Help:      "Latency of the text generation backend call.",
			Buckets:   []float64{.25, .5, 1, 2, 3.5, 5, 10, 30, 60},
		},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "session_duration_seconds",
			Help:      "Time from entering Running to the terminal state.",
			Buckets:   []float64{.5, 1, 2, 3.5, 4, 5, 10, 30, 60},
		},
	)

	StyleImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "styles",
			Name:      "imports_total",
			Help:      "Style document imports by result.",
		},
		[]string{"result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emitted_total",
			Help:      "Notifications emitted by channel and kind.",
		},
		[]string{"channel", "kind"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
