package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-room-booker/internal/lock"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/workflow"
)

// ErrRunInProgress is returned when another run holds the booking lock.
var ErrRunInProgress = errors.New("a booking run is already in progress")

// Trigger starts booking runs on demand.
type Trigger interface {
	Trigger(dryRun bool) (runID string, err error)
}

// Runner performs one booking attempt.
type Runner interface {
	Book(ctx context.Context, dryRun bool) workflow.Result
}

// RunTrigger runs bookings asynchronously under the shared run lock.
type RunTrigger struct {
	ctx    context.Context
	runner Runner
	locker lock.Locker
	ttl    time.Duration
	log    *logging.Logger
	onDone func(workflow.Result)
	wg     sync.WaitGroup
}

// NewRunTrigger creates a trigger whose runs live as long as ctx.
func NewRunTrigger(ctx context.Context, runner Runner, locker lock.Locker, ttl time.Duration, log *logging.Logger) *RunTrigger {
	return &RunTrigger{
		ctx:    ctx,
		runner: runner,
		locker: locker,
		ttl:    ttl,
		log:    log.With("trigger"),
	}
}

// OnDone registers fn to be called with every finished run.
func (t *RunTrigger) OnDone(fn func(workflow.Result)) {
	t.onDone = fn
}

// Trigger acquires the run lock and starts the run in the background.
func (t *RunTrigger) Trigger(dryRun bool) (string, error) {
	release, ok, err := t.locker.Acquire(t.ctx, lock.BookingRunKey, t.ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrRunInProgress
	}

	runID := uuid.NewString()
	t.log.Infof("Starting run %s (dry run: %t)", runID, dryRun)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer release()
		ctx, cancel := context.WithTimeout(workflow.WithRunID(t.ctx, runID), t.ttl)
		defer cancel()
		res := t.runner.Book(ctx, dryRun)
		if t.onDone != nil {
			t.onDone(res)
		}
	}()
	return runID, nil
}

// Wait blocks until every started run has finished.
func (t *RunTrigger) Wait() {
	t.wg.Wait()
}
