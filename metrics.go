package mailvault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// messagesTotal counts envelopes by final state.
	// Labels:
	// - state: "persisted" or "failed"
	// - mode:  "live", "resend" or "test"
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailvault",
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Number of envelopes processed by the send pipeline",
		},
		[]string{"state", "mode"},
	)

	// dispatchDuration tracks transport calls, failed ones included.
	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mailvault",
			Subsystem: "pipeline",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of mail transport calls",
			Buckets:   prometheus.DefBuckets,
		},
	)

	retentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mailvault",
			Subsystem: "retention",
			Name:      "deleted_total",
			Help:      "Number of sent messages removed by retention cleanup",
		},
	)
)
