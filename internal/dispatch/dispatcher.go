package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// HTTPStatusError represents an evaluation endpoint response other than 200.
type HTTPStatusError struct {
	StatusCode int
}

func (err HTTPStatusError) Error() string {
	return fmt.Sprintf("non-success status: %d", err.StatusCode)
}

// Dispatcher delivers evaluation payloads to caller-supplied URLs as JSON
// POSTs. Delivery failures never propagate to the caller; Deliver reports
// them through its return value and the log.
type Dispatcher struct {
	client     *http.Client
	maxRetries int
	delay      time.Duration
	sleep      func(time.Duration)
}

func NewDispatcher(timeout time.Duration, maxRetries int, initialDelay time.Duration) *Dispatcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Dispatcher{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		delay:      initialDelay,
		sleep:      time.Sleep,
	}
}

// Deliver POSTs the payload until the endpoint answers 200, waiting before
// each retry and doubling the wait each time. Returns whether delivery
// succeeded within the attempt budget.
func (d *Dispatcher) Deliver(ctx context.Context, url string, payload interface{}) bool {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal evaluation payload: %v\n", err)
		return false
	}

	delay := d.delay
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if attempt > 1 {
			log.Printf("Retrying evaluation POST in %s (attempt %d/%d)\n", delay, attempt, d.maxRetries)
			d.sleep(delay)
			delay *= 2
		}
		if lastErr = d.post(ctx, url, jsonData); lastErr == nil {
			return true
		}
	}

	log.Printf("Failed to POST evaluation after %d attempts: %v\n", d.maxRetries, lastErr)
	return false
}

// DeliverOnce makes a single delivery attempt.
func (d *Dispatcher) DeliverOnce(ctx context.Context, url string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation payload: %w", err)
	}
	return d.post(ctx, url, jsonData)
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create evaluation request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := d.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send evaluation payload: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return HTTPStatusError{StatusCode: response.StatusCode}
	}
	return nil
}
