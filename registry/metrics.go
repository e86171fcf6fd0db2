package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenzk_registry_submissions_total",
		Help: "Number of state submissions by outcome",
	}, []string{"outcome"})
	verifiedStates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokenzk_registry_verified_states",
		Help: "Number of verified token states",
	})
)
