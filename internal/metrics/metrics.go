package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberbook",
			Name:      "api_requests_total",
			Help:      "Count of backend requests by operation and HTTP status code.",
		},
		[]string{"op", "code"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barberbook",
			Name:      "api_request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)

	slotFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberbook",
			Name:      "slot_fetch_total",
			Help:      "Count of slot availability fetches by outcome.",
		},
		[]string{"outcome"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberbook",
			Name:      "booking_submissions_total",
			Help:      "Count of booking submissions by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, apiDuration, slotFetches, submissions)
	})
}

// ObserveAPIRequest records one backend call. code is 0 when no response arrived.
func ObserveAPIRequest(op string, code int, elapsed time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	apiRequests.WithLabelValues(op, label).Inc()
	apiDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncSlotFetch(outcome string) {
	slotFetches.WithLabelValues(outcome).Inc()
}

func IncSubmission(mode, outcome string) {
	submissions.WithLabelValues(mode, outcome).Inc()
}
