package booking

import "strings"

// OutcomeKind is the classification of the page shown after submitting.
type OutcomeKind int

const (
	Indeterminate OutcomeKind = iota
	Confirmed
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	default:
		return "indeterminate"
	}
}

// Outcome is the result of a submitted booking. Reason holds the phrase that decided it.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

var (
	confirmationPhrases = []string{"booking confirmed", "successfully booked", "confirmation", "your booking"}
	errorPhrases        = []string{"error", "failed", "unable to book", "already booked"}
)

const bookingDetailsPhrase = "booking details"

// ClassifyOutcome reads the page text shown after submission. Confirmation
// phrases win over error phrases. A page with neither and without the booking
// details form is taken as confirmed, since the site does not always show a
// confirmation.
func ClassifyOutcome(text string) Outcome {
	t := strings.ToLower(text)
	for _, p := range confirmationPhrases {
		if strings.Contains(t, p) {
			return Outcome{Kind: Confirmed, Reason: p}
		}
	}
	for _, p := range errorPhrases {
		if strings.Contains(t, p) {
			return Outcome{Kind: Rejected, Reason: p}
		}
	}
	if !strings.Contains(t, bookingDetailsPhrase) {
		return Outcome{Kind: Confirmed, Reason: "no booking details form"}
	}
	return Outcome{Kind: Indeterminate, Reason: bookingDetailsPhrase}
}
