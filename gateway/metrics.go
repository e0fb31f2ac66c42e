package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeReused    = "reused"
	outcomeDiscarded = "discarded"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sahasik",
		Subsystem: "gateway",
		Name:      "refresh_total",
		Help:      "Token refresh episodes by outcome. reused means the episode had already been resolved, discarded means the credentials changed during the exchange.",
	}, []string{"outcome"})

	retryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sahasik",
		Subsystem: "gateway",
		Name:      "retries_total",
		Help:      "Requests replayed after an authorization failure.",
	})

	sessionExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sahasik",
		Subsystem: "gateway",
		Name:      "session_expired_total",
		Help:      "Session expired events emitted.",
	})
)
