package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"library-room-booker/config"
	"library-room-booker/internal/auth"
	"library-room-booker/internal/browser"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/slots"
)

const (
	CalendarSelector      = "table, .s-lc-eq-avail, .fc-view"
	goToDateSelector      = `button:has-text("Go To Date")`
	nextDaySelector       = "button[title*='Next']"
	endTimeSelector       = "select[id*='end'], select.s-lc-eq-to"
	submitTimesSelector   = "#submit_times"
	continueSelector      = "#btn-form-submit, .btn-primary"
	submitBookingSelector = `button:has-text("Submit my Booking"), input[value='Submit my Booking']`
)

// Authenticator completes a sign-in challenge and returns once the booking site is shown again.
type Authenticator interface {
	Run(ctx context.Context, page browser.Page) error
}

// Screenshotter saves a diagnostic capture of the page and returns its path.
// Failures are the implementation's to log.
type Screenshotter interface {
	Capture(page browser.Page, name string) string
}

// DriverConfig holds the waits used while driving the form.
type DriverConfig struct {
	// WaitTimeout bounds every wait for a form control.
	WaitTimeout time.Duration
	// Settle is the base pause after an action. Longer pauses are multiples of it.
	Settle time.Duration
}

// DefaultDriverConfig returns the waits tuned for the library calendar.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		WaitTimeout: 10 * time.Second,
		Settle:      time.Second,
	}
}

// DriverConfigFromConfig applies the configured wait timeout.
func DriverConfigFromConfig(cfg *config.Config) DriverConfig {
	dc := DefaultDriverConfig()
	if cfg.Advanced.WaitTimeout > 0 {
		dc.WaitTimeout = cfg.Advanced.WaitTimeout
	}
	return dc
}

// Result describes how far a booking attempt got.
type Result struct {
	Slot    slots.Slot
	Stage   Stage
	DryRun  bool
	Outcome Outcome
}

// Driver walks the booking form. It holds no per-attempt state.
type Driver struct {
	cfg   DriverConfig
	auth  Authenticator
	shots Screenshotter
	log   *logging.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDriver creates a form driver. reauth handles sign-in challenges shown mid-form.
func NewDriver(cfg DriverConfig, reauth Authenticator, shots Screenshotter, log *logging.Logger) *Driver {
	return &Driver{
		cfg:   cfg,
		auth:  reauth,
		shots: shots,
		log:   log.With("booking"),
		sleep: sleepCtx,
	}
}

// NavigateToCalendar loads the booking page. A failed load ends the attempt.
func (d *Driver) NavigateToCalendar(ctx context.Context, page browser.Page, url string) error {
	d.log.Infof("Navigating to: %s", url)
	if err := page.Navigate(ctx, url); err != nil {
		return fail(NavigateToCalendar, fmt.Errorf("failed to load booking page: %w", err))
	}
	d.pause(ctx, 2)
	return nil
}

// NavigateToTargetDate opens the date picker and steps forward days times.
// Failures leave the calendar on its default day.
func (d *Driver) NavigateToTargetDate(ctx context.Context, page browser.Page, days int) {
	btn, err := page.WaitFor(ctx, goToDateSelector, d.cfg.WaitTimeout)
	if err != nil {
		d.log.Warnf("Could not navigate to target date: %v", err)
		return
	}
	if err := btn.Click(); err != nil {
		d.log.Warnf("Could not open date picker: %v", err)
		return
	}
	d.pause(ctx, 1)

	for i := 0; i < days; i++ {
		next, err := page.Query(nextDaySelector)
		if err != nil || next == nil {
			d.log.Warnf("Next day control missing after %d of %d days", i, days)
			return
		}
		if err := next.Click(); err != nil {
			d.log.Warnf("Could not advance to next day: %v", err)
			return
		}
		d.pauseFor(ctx, d.cfg.Settle/2)
	}
}

// DiscoverSlots parses the calendar and returns the slots accepted by prefs, in page order.
func (d *Driver) DiscoverSlots(ctx context.Context, page browser.Page, prefs slots.Preferences) ([]slots.Slot, error) {
	if _, err := page.WaitFor(ctx, CalendarSelector, d.cfg.WaitTimeout); err != nil {
		d.log.Warnf("Calendar not detected, parsing page anyway: %v", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fail(DiscoverSlots, fmt.Errorf("failed to read calendar: %w", err))
	}
	all, err := slots.Parse(html, d.log)
	if err != nil {
		return nil, fail(DiscoverSlots, err)
	}

	matching := slots.Filter(all, prefs)
	d.log.Infof("Found %d matching available slots (%d available)", len(matching), len(all))
	return matching, nil
}

// SelectSlot clicks the slot's calendar link, falling back to a script click
// when another element intercepts the pointer.
func (d *Driver) SelectSlot(ctx context.Context, page browser.Page, slot slots.Slot) error {
	d.log.Infof("Selecting slot: %s", slot.Title)

	el, err := page.Query(slot.Selector)
	if err != nil {
		return fail(SelectSlot, err)
	}
	if el == nil {
		return fail(SelectSlot, fmt.Errorf("slot link %s: %w", slot.Selector, browser.ErrNotFound))
	}

	if err := el.ScrollIntoView(); err != nil {
		d.log.Debugf("Could not scroll slot into view: %v", err)
	}
	d.pauseFor(ctx, d.cfg.Settle/2)

	if err := el.Click(); err != nil {
		if !errors.Is(err, browser.ErrClickIntercepted) {
			return fail(SelectSlot, err)
		}
		d.log.Debugf("Slot click intercepted, forcing click")
		if err := el.ForceClick(); err != nil {
			return fail(SelectSlot, fmt.Errorf("failed to click slot: %w", err))
		}
	}
	d.pause(ctx, 1)
	return nil
}

// SelectDuration picks the end time hours after the start, in 30 minute steps,
// clamped to the last option. Failures keep the form's default end time.
func (d *Driver) SelectDuration(ctx context.Context, page browser.Page, hours float64) {
	sel, err := page.WaitFor(ctx, endTimeSelector, d.cfg.WaitTimeout)
	if err != nil {
		d.log.Warnf("Could not select end time (using default): %v", err)
		return
	}
	count, err := sel.OptionCount()
	if err != nil || count == 0 {
		d.log.Warnf("Could not select end time (using default): no options")
		return
	}

	index := EndTimeIndex(hours, count)
	if err := sel.SelectIndex(index); err != nil {
		d.log.Warnf("Could not select end time (using default): %v", err)
		return
	}
	d.log.Infof("Selected end time for ~%g hour booking", hours)
}

// EndTimeIndex returns the end-time option for a booking of hours, given count options.
func EndTimeIndex(hours float64, count int) int {
	steps := int(math.Round(hours * 2))
	if steps < 0 {
		steps = 0
	}
	if steps > count-1 {
		return count - 1
	}
	return steps
}

// SubmitTimes confirms the selected time range.
func (d *Driver) SubmitTimes(ctx context.Context, page browser.Page) error {
	btn, err := page.WaitFor(ctx, submitTimesSelector, d.cfg.WaitTimeout)
	if err != nil {
		return fail(SubmitTimes, err)
	}
	if err := btn.Click(); err != nil {
		return fail(SubmitTimes, err)
	}
	d.pause(ctx, 2)
	d.log.Infof("Times submitted")
	return nil
}

// CompleteForm gets through the optional Continue step and submits the booking,
// signing in again whenever the site asks.
func (d *Driver) CompleteForm(ctx context.Context, page browser.Page) error {
	d.pause(ctx, 3)

	if err := d.reauthenticate(ctx, page, "before form"); err != nil {
		return err
	}

	if btn, err := page.WaitFor(ctx, continueSelector, d.cfg.WaitTimeout); err != nil {
		d.log.Debugf("No Continue button found")
	} else if err := btn.Click(); err != nil {
		d.log.Debugf("Could not click Continue: %v", err)
	} else {
		d.log.Infof("Clicked Continue button")
		d.pause(ctx, 2)
		if err := d.reauthenticate(ctx, page, "after Continue"); err != nil {
			return err
		}
	}

	btn, err := page.WaitFor(ctx, submitBookingSelector, d.cfg.WaitTimeout)
	if err != nil {
		d.capture(page, "no_submit_button")
		return fail(CompleteForm, fmt.Errorf("could not find submit button: %w", err))
	}
	d.log.Infof("Ready to submit booking")
	if err := btn.Click(); err != nil {
		return fail(CompleteForm, fmt.Errorf("failed to submit booking: %w", err))
	}
	d.pause(ctx, 3)
	return nil
}

func (d *Driver) reauthenticate(ctx context.Context, page browser.Page, when string) error {
	if !auth.IsAuthPage(browser.State(page)) {
		return nil
	}
	d.log.Infof("Authentication required %s", when)
	if d.auth == nil {
		return fail(CompleteForm, errors.New("authentication required but no authenticator configured"))
	}
	if err := d.auth.Run(ctx, page); err != nil {
		return fail(CompleteForm, fmt.Errorf("re-authentication failed: %w", err))
	}
	d.pause(ctx, 2)
	return nil
}

// VerifyOutcome classifies the page shown after submission.
func (d *Driver) VerifyOutcome(ctx context.Context, page browser.Page) Outcome {
	text, err := page.Text()
	if err != nil {
		d.log.Errorf("Error verifying booking: %v", err)
		return Outcome{Kind: Indeterminate, Reason: err.Error()}
	}

	out := ClassifyOutcome(text)
	switch out.Kind {
	case Confirmed:
		d.log.Infof("Booking appears to be successful (%s)", out.Reason)
	case Rejected:
		d.log.Warnf("Possible booking error: found '%s' in page", out.Reason)
	default:
		d.log.Warnf("Booking outcome unclear, still on booking details")
	}
	return out
}

// Run books slot from the calendar view: select it, choose the end time,
// submit the times and, unless dryRun, complete and verify the form.
func (d *Driver) Run(ctx context.Context, page browser.Page, slot slots.Slot, hours float64, dryRun bool) (Result, error) {
	res := Result{Slot: slot, DryRun: dryRun}

	res.Stage = SelectSlot
	if err := d.SelectSlot(ctx, page, slot); err != nil {
		return res, err
	}

	res.Stage = SelectDuration
	d.SelectDuration(ctx, page, hours)

	res.Stage = SubmitTimes
	if err := d.SubmitTimes(ctx, page); err != nil {
		return res, err
	}

	if dryRun {
		res.Stage = DryRunStop
		d.log.Infof("DRY RUN - stopping before final submission")
		return res, nil
	}

	res.Stage = CompleteForm
	if err := d.CompleteForm(ctx, page); err != nil {
		return res, err
	}

	res.Stage = VerifyOutcome
	res.Outcome = d.VerifyOutcome(ctx, page)
	return res, nil
}

func (d *Driver) capture(page browser.Page, name string) {
	if d.shots != nil {
		d.shots.Capture(page, name)
	}
}

func (d *Driver) pause(ctx context.Context, n int) {
	d.pauseFor(ctx, time.Duration(n)*d.cfg.Settle)
}

func (d *Driver) pauseFor(ctx context.Context, dur time.Duration) {
	_ = d.sleep(ctx, dur)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
