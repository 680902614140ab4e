// Package booking drives the room booking form from slot selection to the
// confirmation page.
package booking

import "fmt"

// Stage is a step of a booking attempt, in the order they run.
type Stage int

const (
	NavigateToCalendar Stage = iota
	NavigateToTargetDate
	DiscoverSlots
	SelectSlot
	SelectDuration
	SubmitTimes
	DryRunStop
	CompleteForm
	VerifyOutcome
)

var stageNames = [...]string{
	NavigateToCalendar:   "NavigateToCalendar",
	NavigateToTargetDate: "NavigateToTargetDate",
	DiscoverSlots:        "DiscoverSlots",
	SelectSlot:           "SelectSlot",
	SelectDuration:       "SelectDuration",
	SubmitTimes:          "SubmitTimes",
	DryRunStop:           "DryRunStop",
	CompleteForm:         "CompleteForm",
	VerifyOutcome:        "VerifyOutcome",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError is a failure that ends the booking attempt.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
