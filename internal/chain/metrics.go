package chain

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_calls_total",
			Help: "Contract calls issued to the chain backend",
		},
		[]string{"function", "kind", "outcome"},
	)
	ReceiptWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_receipt_wait_seconds",
			Help:    "Time from submission until a receipt was found",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		},
		[]string{"function"},
	)
)

func init() {
	prometheus.MustRegister(CallsTotal)
	prometheus.MustRegister(ReceiptWait)
}

func observeCall(function, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CallsTotal.WithLabelValues(function, kind, outcome).Inc()
}
