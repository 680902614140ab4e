package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-room-booker/config"
	"library-room-booker/internal/auth"
	"library-room-booker/internal/browser"
	"library-room-booker/internal/browser/browsertest"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/slots"
)

const (
	calendarURL = "https://cal.lib.uoguelph.ca/spaces?lid=1536"
	formURL     = "https://cal.lib.uoguelph.ca/spaces/booking"
	loginURL    = "https://login.microsoftonline.com/common/oauth2/authorize"

	title603 = "10:00am Monday, January 15, 2025 - Room 603 - Available"
	title322 = "11:00am Monday, January 15, 2025 - Room 322 - Available"
)

const calendarHTML = `<html><body><table>
<tr><td><a title="` + title603 + `">603</a></td><td><a title="` + title322 + `">322</a></td></tr>
</table></body></html>`

// AuthenticatorMock mocks the sign-in flow.
type AuthenticatorMock struct {
	RunFunc func(ctx context.Context, page browser.Page) error
	Calls   int
}

func (m *AuthenticatorMock) Run(ctx context.Context, page browser.Page) error {
	m.Calls++
	if m.RunFunc != nil {
		return m.RunFunc(ctx, page)
	}
	return nil
}

type shotRecorder struct {
	names []string
}

func (s *shotRecorder) Capture(page browser.Page, name string) string {
	s.names = append(s.names, name)
	return name + ".png"
}

func newTestDriver(reauth Authenticator) (*Driver, *shotRecorder) {
	shots := &shotRecorder{}
	d := NewDriver(DefaultDriverConfig(), reauth, shots, logging.Discard())
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d, shots
}

func slot603() slots.Slot {
	return slots.Slot{
		Room:     "603",
		Capacity: 2,
		Time:     "10:00am",
		Title:    title603,
		Selector: `a[title="` + title603 + `"]`,
	}
}

// formNodes returns the controls of the booking details form. submit shows
// resultText when clicked.
func formNodes(resultText string) (cont, submit *browsertest.Node) {
	submit = &browsertest.Node{
		Selectors: []string{`input[value='Submit my Booking']`},
		OnClick:   func(p *browsertest.Page) { p.Show(formURL, resultText) },
	}
	cont = &browsertest.Node{
		Selectors: []string{"#btn-form-submit"},
		OnClick:   func(p *browsertest.Page) { p.Show(formURL, "Booking details", submit) },
	}
	return cont, submit
}

type calendar struct {
	page     *browsertest.Page
	link     *browsertest.Node
	end      *browsertest.Node
	times    *browsertest.Node
	cont     *browsertest.Node
	submit   *browsertest.Node
	goToDate *browsertest.Node
	next     *browsertest.Node
}

func newCalendar(resultText string) *calendar {
	c := &calendar{}
	c.cont, c.submit = formNodes(resultText)
	c.link = &browsertest.Node{Selectors: []string{slot603().Selector}}
	c.end = &browsertest.Node{Selectors: []string{"select.s-lc-eq-to"}, Options: 10}
	c.times = &browsertest.Node{
		Selectors: []string{"#submit_times"},
		OnClick: func(p *browsertest.Page) {
			p.Show(formURL, "Booking details", c.cont)
		},
	}
	c.goToDate = &browsertest.Node{Selectors: []string{goToDateSelector}}
	c.next = &browsertest.Node{Selectors: []string{nextDaySelector}}
	c.page = browsertest.New(calendarURL, "Study rooms", c.link, c.end, c.times, c.goToDate, c.next,
		&browsertest.Node{Selectors: []string{"table"}})
	c.page.Source = calendarHTML
	return c
}

func TestClassifyOutcome(t *testing.T) {
	testCases := []struct {
		name string
		text string
		kind OutcomeKind
	}{
		{"Explicit confirmation", "Booking Confirmed! See you soon.", Confirmed},
		{"Your booking", "Your booking has been received", Confirmed},
		{"Confirmation beats error text", "Confirmation. No errors found", Confirmed},
		{"Already booked", "Sorry, that slot is already booked", Rejected},
		{"Unable to book", "Unable to book: limit reached", Rejected},
		{"Generic error", "An error occurred", Rejected},
		{"Plain page counts as success", "Thanks, see you at the library", Confirmed},
		{"Still on the form", "Booking Details - please fill in", Indeterminate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, ClassifyOutcome(tc.text).Kind)
		})
	}

	assert.Equal(t, Outcome{Kind: Rejected, Reason: "already booked"}, ClassifyOutcome("Room already booked"))
}

func TestEndTimeIndex(t *testing.T) {
	assert.Equal(t, 4, EndTimeIndex(2, 10))
	assert.Equal(t, 1, EndTimeIndex(0.5, 10))
	assert.Equal(t, 3, EndTimeIndex(1.5, 10))
	assert.Equal(t, 2, EndTimeIndex(2, 3))
	assert.Equal(t, 4, EndTimeIndex(4, 5))
	assert.Equal(t, 0, EndTimeIndex(2, 1))
}

func TestStageError(t *testing.T) {
	err := fmt.Errorf("attempt: %w", fail(SubmitTimes, browser.ErrTimeout))

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SubmitTimes, se.Stage)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Contains(t, err.Error(), "SubmitTimes failed")
	assert.Equal(t, "Stage(99)", Stage(99).String())
}

func TestNavigateToCalendar(t *testing.T) {
	d, _ := newTestDriver(nil)
	page := browsertest.New("about:blank", "")

	require.NoError(t, d.NavigateToCalendar(context.Background(), page, calendarURL))
	assert.Equal(t, []string{calendarURL}, page.Navigated)

	page.NavigateErr = browser.ErrTimeout
	err := d.NavigateToCalendar(context.Background(), page, calendarURL)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, NavigateToCalendar, se.Stage)
}

func TestNavigateToTargetDate(t *testing.T) {
	d, _ := newTestDriver(nil)

	c := newCalendar("")
	d.NavigateToTargetDate(context.Background(), c.page, 3)
	assert.Equal(t, 1, c.goToDate.Clicks)
	assert.Equal(t, 3, c.next.Clicks)

	c = newCalendar("")
	c.next.ClickErr = errors.New("detached")
	d.NavigateToTargetDate(context.Background(), c.page, 3)
	assert.Equal(t, 1, c.goToDate.Clicks)

	page := browsertest.New(calendarURL, "Study rooms")
	d.NavigateToTargetDate(context.Background(), page, 2)
	assert.Equal(t, []string{goToDateSelector}, page.Waited)
}

func TestDiscoverSlots(t *testing.T) {
	d, _ := newTestDriver(nil)
	c := newCalendar("")

	found, err := d.DiscoverSlots(context.Background(), c.page, slots.Preferences{Capacity: 2})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "603", found[0].Room)
	assert.Equal(t, []string{CalendarSelector}, c.page.Waited)

	found, err = d.DiscoverSlots(context.Background(), c.page, slots.Preferences{ExcludedRooms: []string{"603", "322"}})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSelectSlot(t *testing.T) {
	t.Run("Click", func(t *testing.T) {
		d, _ := newTestDriver(nil)
		c := newCalendar("")

		require.NoError(t, d.SelectSlot(context.Background(), c.page, slot603()))
		assert.True(t, c.link.Scrolled)
		assert.Equal(t, 1, c.link.Clicks)
		assert.Equal(t, 0, c.link.ForceClicks)
	})

	t.Run("Intercepted click is forced", func(t *testing.T) {
		d, _ := newTestDriver(nil)
		c := newCalendar("")
		c.link.ClickErr = browser.ErrClickIntercepted

		require.NoError(t, d.SelectSlot(context.Background(), c.page, slot603()))
		assert.Equal(t, 1, c.link.ForceClicks)
	})

	t.Run("Other click errors are fatal", func(t *testing.T) {
		d, _ := newTestDriver(nil)
		c := newCalendar("")
		c.link.ClickErr = errors.New("element detached")

		err := d.SelectSlot(context.Background(), c.page, slot603())
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, SelectSlot, se.Stage)
		assert.Equal(t, 0, c.link.ForceClicks)
	})

	t.Run("Missing link", func(t *testing.T) {
		d, _ := newTestDriver(nil)
		err := d.SelectSlot(context.Background(), browsertest.New(calendarURL, ""), slot603())
		assert.ErrorIs(t, err, browser.ErrNotFound)
	})
}

func TestSelectDuration(t *testing.T) {
	d, _ := newTestDriver(nil)

	c := newCalendar("")
	d.SelectDuration(context.Background(), c.page, 2)
	assert.Equal(t, 4, c.end.Selected)

	c.end.Options = 3
	d.SelectDuration(context.Background(), c.page, 2)
	assert.Equal(t, 2, c.end.Selected)

	// No end time control keeps the default.
	d.SelectDuration(context.Background(), browsertest.New(formURL, ""), 2)
}

func TestSubmitTimes_Missing(t *testing.T) {
	d, _ := newTestDriver(nil)

	err := d.SubmitTimes(context.Background(), browsertest.New(calendarURL, ""))
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, SubmitTimes, se.Stage)
	assert.ErrorIs(t, err, browser.ErrTimeout)
}

func TestCompleteForm(t *testing.T) {
	t.Run("Continue then submit", func(t *testing.T) {
		reauth := &AuthenticatorMock{}
		d, _ := newTestDriver(reauth)
		cont, submit := formNodes("Booking confirmed")
		page := browsertest.New(formURL, "Booking details", cont)

		require.NoError(t, d.CompleteForm(context.Background(), page))
		assert.Equal(t, 1, cont.Clicks)
		assert.Equal(t, 1, submit.Clicks)
		assert.Equal(t, 0, reauth.Calls)
	})

	t.Run("Without Continue", func(t *testing.T) {
		d, _ := newTestDriver(nil)
		_, submit := formNodes("Booking confirmed")
		page := browsertest.New(formURL, "Booking details", submit)

		require.NoError(t, d.CompleteForm(context.Background(), page))
		assert.Equal(t, 1, submit.Clicks)
	})

	t.Run("Sign-in challenge before the form", func(t *testing.T) {
		cont, submit := formNodes("Booking confirmed")
		reauth := &AuthenticatorMock{RunFunc: func(ctx context.Context, page browser.Page) error {
			page.(*browsertest.Page).Show(formURL, "Booking details", cont)
			return nil
		}}
		d, _ := newTestDriver(reauth)
		page := browsertest.New(loginURL, "Pick an account")

		require.NoError(t, d.CompleteForm(context.Background(), page))
		assert.Equal(t, 1, reauth.Calls)
		assert.Equal(t, 1, submit.Clicks)
	})

	t.Run("Sign-in challenge after Continue", func(t *testing.T) {
		_, submit := formNodes("Booking confirmed")
		cont := &browsertest.Node{
			Selectors: []string{".btn-primary"},
			OnClick:   func(p *browsertest.Page) { p.Show(loginURL, "Verify your identity") },
		}
		reauth := &AuthenticatorMock{RunFunc: func(ctx context.Context, page browser.Page) error {
			page.(*browsertest.Page).Show(formURL, "Booking details", submit)
			return nil
		}}
		d, _ := newTestDriver(reauth)
		page := browsertest.New(formURL, "Booking details", cont)

		require.NoError(t, d.CompleteForm(context.Background(), page))
		assert.Equal(t, 1, reauth.Calls)
		assert.Equal(t, 1, submit.Clicks)
	})

	t.Run("Failed re-authentication", func(t *testing.T) {
		reauth := &AuthenticatorMock{RunFunc: func(context.Context, browser.Page) error { return auth.ErrAuthTimeout }}
		d, _ := newTestDriver(reauth)

		err := d.CompleteForm(context.Background(), browsertest.New(loginURL, "Pick an account"))
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, CompleteForm, se.Stage)
		assert.ErrorIs(t, err, auth.ErrAuthTimeout)
	})

	t.Run("Missing submit button", func(t *testing.T) {
		d, shots := newTestDriver(nil)

		err := d.CompleteForm(context.Background(), browsertest.New(formURL, "Booking details"))
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, CompleteForm, se.Stage)
		assert.Equal(t, []string{"no_submit_button"}, shots.names)
	})
}

func TestRun_DryRunStopsAfterSubmitTimes(t *testing.T) {
	d, _ := newTestDriver(nil)
	c := newCalendar("Booking confirmed")

	res, err := d.Run(context.Background(), c.page, slot603(), 2, true)
	require.NoError(t, err)
	assert.Equal(t, DryRunStop, res.Stage)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, c.times.Clicks)
	assert.Equal(t, 0, c.cont.Clicks)
	assert.Equal(t, 0, c.submit.Clicks)
}

func TestRun_Booked(t *testing.T) {
	d, _ := newTestDriver(&AuthenticatorMock{})
	c := newCalendar("Booking confirmed for Room 603")

	res, err := d.Run(context.Background(), c.page, slot603(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, VerifyOutcome, res.Stage)
	assert.Equal(t, Confirmed, res.Outcome.Kind)
	assert.Equal(t, 4, c.end.Selected)
	assert.Equal(t, 1, c.submit.Clicks)
}

func TestRun_RejectedOutcome(t *testing.T) {
	d, _ := newTestDriver(nil)
	c := newCalendar("Sorry, this room is already booked")

	res, err := d.Run(context.Background(), c.page, slot603(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Outcome.Kind)
}

func TestRun_SubmitTimesFailure(t *testing.T) {
	d, _ := newTestDriver(nil)
	c := newCalendar("")
	c.times.ClickErr = errors.New("button disabled")

	res, err := d.Run(context.Background(), c.page, slot603(), 2, false)
	require.Error(t, err)
	assert.Equal(t, SubmitTimes, res.Stage)
	assert.Equal(t, 0, c.submit.Clicks)
}

func TestDriverConfigFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Advanced.WaitTimeout = 25 * time.Second
	assert.Equal(t, 25*time.Second, DriverConfigFromConfig(cfg).WaitTimeout)
}
