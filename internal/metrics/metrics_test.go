package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register() // second call must not panic

	before := testutil.ToFloat64(submissions.WithLabelValues("manual", "success"))
	IncSubmission("manual", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues("manual", "success")))

	before = testutil.ToFloat64(apiRequests.WithLabelValues("free_slots", "error"))
	ObserveAPIRequest("free_slots", 0, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(apiRequests.WithLabelValues("free_slots", "error")))

	before = testutil.ToFloat64(slotFetches.WithLabelValues("stale"))
	IncSlotFetch("stale")
	assert.Equal(t, before+1, testutil.ToFloat64(slotFetches.WithLabelValues("stale")))
}
