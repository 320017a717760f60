package logger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	statements     *prometheus.CounterVec //nolint:gochecknoglobals
	statementsOnce sync.Once              //nolint:gochecknoglobals
)

// PrometheusHook counts log statements per level and service.
type PrometheusHook struct {
	service string
}

// Run implements zerolog.Hook.
func (h PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	statements.WithLabelValues(level.String(), h.service).Inc()
}

// NewPrometheusHook returns a hook counting log statements of service,
// exported as authchain_log_statements_total{level,service}.
func NewPrometheusHook(service string) PrometheusHook {
	statementsOnce.Do(func() {
		statements = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authchain",
				Name:      "log_statements_total",
				Help:      "Number of log statements, differentiated by log level.",
			},
			[]string{"level", "service"},
		)
	})

	return PrometheusHook{service: service}
}
