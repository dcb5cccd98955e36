package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/orrn/ticket-spool/internal/core"
)

type received struct {
	event     string
	signature string
	payload   WebhookPayload
}

func newRecordingServer(t *testing.T, status int) (*httptest.Server, chan received) {
	t.Helper()
	ch := make(chan received, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		ch <- received{
			event:     r.Header.Get("X-Webhook-Event"),
			signature: r.Header.Get("X-Webhook-Signature"),
			payload:   p,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func waitFor(t *testing.T, ch chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for webhook")
		return received{}
	}
}

func TestSendJobDelivered_Signed(t *testing.T) {
	srv, ch := newRecordingServer(t, http.StatusOK)

	sender := NewWebhookSender(WebhookConfig{
		Endpoints: []Endpoint{{URL: srv.URL, Secret: "s3cret"}},
	}, zaptest.NewLogger(t))
	sender.Start()
	defer sender.Stop()

	result := &core.JobResult{
		JobID:     "job-1",
		Kind:      core.JobKindTicket,
		Status:    core.JobStatusDelivered,
		Copies:    2,
		Delivered: 2,
		Target:    `\\kiosk\SILENTPRINTER`,
		Attempts:  1,
	}
	sender.SendJobDelivered(result)

	got := waitFor(t, ch)
	assert.Equal(t, "job_delivered", got.event)
	assert.Equal(t, "job_delivered", got.payload.Event)

	data, err := json.Marshal(jobEventData(result))
	require.NoError(t, err)
	assert.Equal(t, SignPayload(data, "s3cret"), got.signature)
	assert.Equal(t, got.signature, got.payload.Signature)
}

func TestEndpointEventFilter(t *testing.T) {
	srv, ch := newRecordingServer(t, http.StatusOK)

	sender := NewWebhookSender(WebhookConfig{
		Endpoints: []Endpoint{{URL: srv.URL, Events: []string{"job_failed"}}},
	}, zaptest.NewLogger(t))
	sender.Start()
	defer sender.Stop()

	sender.SendJobDelivered(&core.JobResult{JobID: "ok", Status: core.JobStatusDelivered})
	sender.SendJobFailed(&core.JobResult{JobID: "bad", Status: core.JobStatusFailed, Error: "all 2 printer targets failed"})

	got := waitFor(t, ch)
	assert.Equal(t, "job_failed", got.event)
	assert.Empty(t, got.signature)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected webhook %q", extra.event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendWithRetry_ServerErrorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(WebhookConfig{RetryCount: 3, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
	task := &webhookTask{
		endpoint: Endpoint{URL: srv.URL},
		event:    EventJobFailed,
		payload:  &WebhookPayload{Event: string(EventJobFailed), Data: map[string]string{}},
	}

	require.NoError(t, sender.sendWithRetry(task))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, task.attempt)
}

func TestSendWithRetry_ClientErrorStops(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sender := NewWebhookSender(WebhookConfig{RetryCount: 3, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
	task := &webhookTask{
		endpoint: Endpoint{URL: srv.URL},
		event:    EventJobFailed,
		payload:  &WebhookPayload{Event: string(EventJobFailed), Data: map[string]string{}},
	}

	err := sender.sendWithRetry(task)
	require.Error(t, err)
	assert.True(t, isClientError(err))
	assert.Equal(t, int32(1), calls.Load())
}
