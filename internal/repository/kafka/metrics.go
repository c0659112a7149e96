package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uptimer", Subsystem: "kafka",
		Name: "produced_total", Help: "Messages written, by topic and result.",
	}, []string{"topic", "result"})
	mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uptimer", Subsystem: "kafka",
		Name: "consumed_total", Help: "Messages handled, by topic and result.",
	}, []string{"topic", "result"})
)
