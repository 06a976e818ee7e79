// Package metrics defines the Prometheus collectors of the service. They are registered in the default registry
// and served by promhttp when the programs are started with -m.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "balcheck"

// Unsupported is the chain label of verifications on chains not served.
const Unsupported = "unsupported"

// Collectors.
var (
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals // registry
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Balance verifications by chain and reason.",
	}, []string{"chain", "reason"})

	Wallets = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals // registry
		Namespace: namespace,
		Name:      "wallets_per_evaluation",
		Help:      "Valid wallets queried per verification.",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
	}, []string{"chain"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals // registry
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "Duration of balance queries to the chain nodes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "method"})

	RPCErrors = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals // registry
		Namespace: namespace,
		Name:      "rpc_errors_total",
		Help:      "Failed balance queries to the chain nodes.",
	}, []string{"chain", "method"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals // registry
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Verification requests by source (http, amqp) and status.",
	}, []string{"source", "status"})
)

// Evaluation counts a finished verification. The chain label must be a supported chain id or Unsupported.
func Evaluation(chain, reason string, wallets int) {
	Evaluations.WithLabelValues(chain, reason).Inc()
	Wallets.WithLabelValues(chain).Observe(float64(wallets))
}

// Chain returns the label of chainID.
func Chain(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

// RPC returns an observer of balance queries for chainID.
func RPC(chainID int64) func(method string, took time.Duration, err error) {
	c := Chain(chainID)

	return func(method string, took time.Duration, err error) {
		RPCDuration.WithLabelValues(c, method).Observe(took.Seconds())

		if err != nil {
			RPCErrors.WithLabelValues(c, method).Inc()
		}
	}
}

// Request counts a verification request received from source.
func Request(source string, status int) {
	Requests.WithLabelValues(source, strconv.Itoa(status)).Inc()
}
