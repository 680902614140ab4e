package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-room-booker/config"
	"library-room-booker/internal/lock"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/workflow"
)

const (
	// RunLockKey guards a whole booking run including retries.
	RunLockKey = lock.BookingRunKey
	// cooldown keeps the daemon from firing twice in the same minute.
	cooldown = 2 * time.Minute
	// bookedTTL is how long a successful date stays marked.
	bookedTTL = 48 * time.Hour
)

// Runner performs one booking attempt.
type Runner interface {
	Book(ctx context.Context, dryRun bool) workflow.Result
	TargetDate() time.Time
}

// Service runs the booking workflow once a day at the configured time.
type Service struct {
	cfg    config.ScheduleConfig
	runner Runner
	locker lock.Locker
	log    *logging.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService creates the daily booking scheduler.
func NewService(cfg config.ScheduleConfig, runner Runner, locker lock.Locker, log *logging.Logger) *Service {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &Service{
		cfg:    cfg,
		runner: runner,
		locker: locker,
		log:    log.With("scheduler"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run starts the scheduling loop and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Warnf("Scheduling is disabled in config")
		return
	}
	s.log.Infof("Starting booking scheduler")
	s.log.Infof("Configured run time: %s", s.cfg.RunTime)

	for {
		now := s.now()
		next, err := NextRun(now, s.cfg.RunTime)
		if err != nil {
			s.log.Errorf("Invalid run time: %v", err)
			return
		}
		s.log.Infof("Next booking attempt: %s", next.Format("2006-01-02 15:04:05"))

		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			break
		}
		s.RunOnce(ctx)
		if err := s.sleep(ctx, cooldown); err != nil {
			break
		}
	}
	s.log.Infof("Scheduler stopped")
}

// RunOnce books once with retries and reports whether a room was booked.
// It is a no-op when another run holds the lock or the target date is
// already booked.
func (s *Service) RunOnce(ctx context.Context) bool {
	maxRetries := s.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	ttl := time.Duration(maxRetries) * (s.cfg.AttemptTimeout + time.Duration(maxRetries)*s.cfg.Backoff)

	release, ok, err := s.locker.Acquire(ctx, RunLockKey, ttl)
	if err != nil {
		s.log.Errorf("Failed to acquire run lock: %v", err)
		return false
	}
	if !ok {
		s.log.Warnf("Another booking run is in progress, skipping")
		return false
	}
	defer release()

	dateKey := bookedKey(s.runner.TargetDate())
	if seen, err := s.locker.Seen(ctx, dateKey); err != nil {
		s.log.Warnf("Failed to check booked dates: %v", err)
	} else if seen {
		s.log.Infof("Room already booked for %s, skipping", dateKey)
		return true
	}

	s.log.Infof("Executing booking run...")
	for attempt := 1; attempt <= maxRetries; attempt++ {
		s.log.Infof("Booking attempt %d/%d", attempt, maxRetries)

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		res := s.runner.Book(attemptCtx, false)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if res.Success {
			s.log.Infof("Booking completed successfully!")
			if err := s.locker.Mark(ctx, bookedKey(res.TargetDate), bookedTTL); err != nil {
				s.log.Warnf("Failed to mark %s as booked: %v", res.TargetDate.Format("2006-01-02"), err)
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if timedOut {
			s.log.Errorf("Booking attempt timed out")
			continue
		}

		s.log.Warnf("Booking attempt failed: %s", res.Message)
		if !s.cfg.RetryOnFailure {
			break
		}
		if attempt < maxRetries {
			wait := s.cfg.Backoff * time.Duration(attempt)
			s.log.Infof("Waiting %s before retry...", wait)
			if err := s.sleep(ctx, wait); err != nil {
				return false
			}
		}
	}
	s.log.Errorf("All booking attempts failed")
	return false
}

func bookedKey(date time.Time) string {
	return "booked:" + date.Format("2006-01-02")
}

// NextRun returns the next occurrence of runTime ("HH:MM") strictly after now,
// in now's location.
func NextRun(now time.Time, runTime string) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(runTime, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("run time %q: %w", runTime, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("run time %q out of range", runTime)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
