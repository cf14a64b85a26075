package dispatch

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordingDispatcher(maxRetries int) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(5*time.Second, maxRetries, time.Second)
	var slept []time.Duration
	d.sleep = func(delay time.Duration) {
		slept = append(slept, delay)
	}
	return d, &slept
}

func TestDeliverSuccessFirstAttempt(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = ioutil.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer server.Close()

	d, slept := newRecordingDispatcher(5)
	ok := d.Deliver(context.Background(), server.URL, map[string]string{"nonce": "abc"})

	assert.True(t, ok)
	assert.Empty(t, *slept)
	assert.Equal(t, "application/json", gotContentType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "abc", payload["nonce"])
}

func TestDeliverBackoffSequence(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d, slept := newRecordingDispatcher(5)
	ok := d.Deliver(context.Background(), server.URL, map[string]string{})

	assert.False(t, ok)
	assert.Equal(t, int32(5), atomic.LoadInt32(&attempts))
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, *slept)
}

func TestDeliverRecoversAfterFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	d, slept := newRecordingDispatcher(5)
	ok := d.Deliver(context.Background(), server.URL, map[string]string{})

	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestDeliverOnlyAcceptsExactly200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d, _ := newRecordingDispatcher(2)
	assert.False(t, d.Deliver(context.Background(), server.URL, map[string]string{}))

	err := d.DeliverOnce(context.Background(), server.URL, map[string]string{})
	statusErr, ok := err.(HTTPStatusError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNoContent, statusErr.StatusCode)
}

func TestDeliverTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	d, slept := newRecordingDispatcher(3)
	ok := d.Deliver(context.Background(), server.URL, map[string]string{})

	assert.False(t, ok)
	assert.Len(t, *slept, 2)
}

func TestQueueDeliversAndReportsResult(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		received <- body
	}))
	defer server.Close()

	results := make(chan bool, 1)
	queue := NewQueue(NewDispatcher(5*time.Second, 1, time.Second), 4, func(deliveryID string, delivered bool) {
		assert.Equal(t, "delivery-1", deliveryID)
		results <- delivered
	})
	queue.Start()

	ok := queue.Enqueue(Job{DeliveryID: "delivery-1", URL: server.URL, Payload: map[string]string{"task": "demo"}})
	assert.True(t, ok)

	select {
	case body := <-received:
		assert.Contains(t, string(body), "demo")
	case <-time.After(5 * time.Second):
		t.Fatal("delivery never reached the evaluation endpoint")
	}
	assert.True(t, <-results)

	queue.Stop()
}

func TestQueueReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	results := make(chan bool, 1)
	queue := NewQueue(NewDispatcher(5*time.Second, 1, time.Second), 4, func(deliveryID string, delivered bool) {
		results <- delivered
	})
	queue.Start()
	queue.Enqueue(Job{DeliveryID: "delivery-2", URL: server.URL, Payload: map[string]string{}})

	assert.False(t, <-results)
	queue.Stop()
}
