package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultMatch    = "match"
	resultDeclined = "declined"
	resultError    = "error"
)

var (
	adapterAttempts = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: "authchain",
			Name:      "adapter_attempts_total",
			Help:      "Number of authentication attempts per adapter, differentiated by result.",
		},
		[]string{"adapter", "result"},
	)

	adapterDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Namespace: "authchain",
			Name:      "adapter_duration_seconds",
			Help:      "Time spent in a single adapter authentication attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"adapter"},
	)
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultMatch
	case errors.Is(err, ErrDeclined):
		return resultDeclined
	default:
		return resultError
	}
}
