package notification

import (
	"context"
	"sync"
	"time"

	"library-room-booker/internal/logging"
)

// Title is the heading shown by desktop and push notifications.
const Title = "Library Booker"

// Message is a single booking result to announce. DryRun marks a run that
// stopped before submitting; it is labelled apart from real bookings.
type Message struct {
	Success bool      `json:"success"`
	DryRun  bool      `json:"dry_run,omitempty"`
	Text    string    `json:"text"`
	RunID   string    `json:"run_id,omitempty"`
	At      time.Time `json:"at"`
}

// Status returns a short label for the outcome.
func (m Message) Status() string {
	switch {
	case m.DryRun:
		return "dry_run"
	case m.Success:
		return "success"
	}
	return "failure"
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	enabled bool
	jobs    chan Message
	senders []Sender
	log     *logging.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. When enabled is false every
// message is dropped.
func NewWorkerPool(size int, enabled bool, log *logging.Logger, senders ...Sender) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		enabled: enabled,
		jobs:    make(chan Message, size*8),
		senders: senders,
		log:     log.With("notify"),
		now:     time.Now,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debugf("Worker %d started", id)
	for {
		select {
		case msg, ok := <-wp.jobs:
			if !ok {
				wp.log.Debugf("Worker %d drained", id)
				return
			}
			wp.deliver(ctx, msg)
		case <-ctx.Done():
			wp.log.Debugf("Worker %d shutting down", id)
			return
		}
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, msg Message) {
	for _, s := range wp.senders {
		if err := s.Send(ctx, msg); err != nil {
			wp.log.Warnf("Failed to send %s notification via %T: %v", msg.Status(), s, err)
		}
	}
}

// Dispatch queues a message. It reports false when notifications are
// disabled, the pool is closed or the queue is full.
func (wp *WorkerPool) Dispatch(msg Message) bool {
	if !wp.enabled {
		return false
	}
	if msg.At.IsZero() {
		msg.At = wp.now()
	}

	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	select {
	case wp.jobs <- msg:
		return true
	default:
		wp.log.Warnf("Notification queue full, dropping: %s", msg.Text)
		return false
	}
}

// Notify queues a booking result.
func (wp *WorkerPool) Notify(success bool, text string) {
	wp.Dispatch(Message{Success: success, Text: text})
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
