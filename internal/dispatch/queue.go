package dispatch

import (
	"context"
	"log"
	"sync"
)

// Job is one queued evaluation delivery.
type Job struct {
	DeliveryID string
	URL        string
	Payload    interface{}
}

// ResultFunc observes the outcome of a queued delivery.
type ResultFunc func(deliveryID string, delivered bool)

// Queue runs evaluation deliveries detached from the request lifecycle.
// Each job gets exactly one attempt; the outcome is logged and reported to
// the result callback, never to the submitter.
type Queue struct {
	dispatcher *Dispatcher
	jobs       chan Job
	wg         sync.WaitGroup
	onResult   ResultFunc
}

func NewQueue(dispatcher *Dispatcher, buffer int, onResult ResultFunc) *Queue {
	if buffer < 1 {
		buffer = 64
	}
	return &Queue{
		dispatcher: dispatcher,
		jobs:       make(chan Job, buffer),
		onResult:   onResult,
	}
}

// Start launches the delivery worker.
func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			err := q.dispatcher.DeliverOnce(context.Background(), job.URL, job.Payload)
			if err != nil {
				log.Printf("Evaluation delivery %s failed: %v\n", job.DeliveryID, err)
			} else {
				log.Printf("Evaluation delivery %s succeeded\n", job.DeliveryID)
			}
			if q.onResult != nil {
				q.onResult(job.DeliveryID, err == nil)
			}
		}
	}()
}

// Enqueue schedules a delivery without blocking the caller. A full queue
// drops the job; the drop is logged and reported as a failed delivery.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		log.Printf("Dispatch queue full, dropping delivery %s\n", job.DeliveryID)
		if q.onResult != nil {
			q.onResult(job.DeliveryID, false)
		}
		return false
	}
}

// Stop drains pending jobs and waits for the worker to exit.
func (q *Queue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}
