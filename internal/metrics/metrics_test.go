package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/ticket-spool/internal/core"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.CopyDelivered(core.JobKindLabel, "a", 10*time.Millisecond)
	r.CopyDelivered(core.JobKindLabel, "a", 10*time.Millisecond)
	r.CopyFailed(core.JobKindLabel, "a")
	r.TargetFailed(core.JobKindLabel, `\\kiosk\BARCODEPRINTER`)
	r.JobFinished(core.JobKindLabel, core.JobStatusDelivered, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.copiesTotal.WithLabelValues("label", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.copiesTotal.WithLabelValues("label", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.targetFailuresTotal.WithLabelValues("label", `\\kiosk\BARCODEPRINTER`)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobsTotal.WithLabelValues("label", "delivered")))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.JobFinished(core.JobKindTicket, core.JobStatusFailed, time.Second)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `spool_jobs_total{kind="ticket",status="failed"} 1`)
}
