package service

import "github.com/prometheus/client_golang/prometheus"

var paymentTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment status transitions by resulting status and trigger",
	},
	[]string{"status", "trigger"},
)

func init() {
	prometheus.MustRegister(paymentTransitionsTotal)
}

func recordTransition(status, trigger string) {
	paymentTransitionsTotal.WithLabelValues(status, trigger).Inc()
}
