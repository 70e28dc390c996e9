package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatcher metrics, registered with the default Prometheus registry.

const namespace = "bizguard"

// VerificationQueueDepth tracks the number of requests waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var VerificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "verification_queue_depth",
		Help:      "Current number of verification requests pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// VerificationDroppedTotal counts requests dropped because their shard was full.
var VerificationDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_dropped_total",
		Help:      "Total number of verification requests dropped on a full queue.",
	},
)

// VerificationsSentTotal counts delivered verification requests.
// Label:
//   - result: "sent" or "error"
var VerificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_sent_total",
		Help:      "Total number of verification requests handed to the verifier, by result.",
	},
	[]string{"result"},
)

// VerificationDuration measures how long a single verifier call takes.
var VerificationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "verification_duration_seconds",
		Help:      "Duration of a single verification delivery.",
		Buckets:   prometheus.DefBuckets,
	},
)
