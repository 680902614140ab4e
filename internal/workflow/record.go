package workflow

import (
	"context"
	"time"

	"library-room-booker/internal/booking"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/model"
	"library-room-booker/internal/slots"
)

const dateLayout = "2006-01-02"

// Attempt converts a booking result into its history record.
func (r Result) Attempt() model.BookingAttempt {
	a := model.BookingAttempt{
		RunID:      r.RunID,
		Mode:       model.ModeBook,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Success:    r.Success,
		Room:       r.Slot.Room,
		SlotTime:   r.Slot.Time,
		TargetDate: r.TargetDate.Format(dateLayout),
		Message:    r.Message,
		Screenshot: r.Screenshot,
	}
	if r.Booking.Stage == booking.VerifyOutcome {
		a.Outcome = r.Booking.Outcome.Kind.String()
		a.Reason = r.Booking.Outcome.Reason
	} else if r.Err != nil {
		a.Reason = r.Err.Error()
	}
	if r.Slot.Room != "" {
		a.Stage = r.Booking.Stage.String()
	}
	return a
}

func (o *Orchestrator) recordAttempt(ctx context.Context, log *logging.Logger, res Result) {
	a := res.Attempt()
	o.record(ctx, log, &a)
}

func (o *Orchestrator) record(ctx context.Context, log *logging.Logger, a *model.BookingAttempt) {
	if o.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("Failed to record run %s: panic: %v", a.RunID, r)
		}
	}()
	if err := o.recorder.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		log.Warnf("Failed to record run %s: %v", a.RunID, err)
	}
}

func (o *Orchestrator) saveAvailability(ctx context.Context, log *logging.Logger, runID string, target time.Time, found []slots.Slot) {
	if o.recorder == nil {
		return
	}
	snap := &model.AvailabilitySnapshot{
		RunID:      runID,
		TargetDate: target.Format(dateLayout),
		ObservedAt: o.now(),
		Slots:      make([]model.AvailableSlot, 0, len(found)),
	}
	for _, s := range found {
		snap.Slots = append(snap.Slots, model.AvailableSlot{
			Room:     s.Room,
			Capacity: s.Capacity,
			Time:     s.Time,
			Minutes:  s.Minutes(),
		})
	}
	if err := o.recorder.SaveAvailability(context.WithoutCancel(ctx), snap); err != nil {
		log.Warnf("Failed to save availability snapshot: %v", err)
	}
}
