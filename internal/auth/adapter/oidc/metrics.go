package oidc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var discoveryFetches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "authchain",
		Name:      "discovery_fetches_total",
		Help:      "Number of openid-connect discovery document fetches by result.",
	},
	[]string{"result"},
)
