// Package workflow runs a complete booking or availability check against a
// fresh browser session.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"library-room-booker/internal/auth"
	"library-room-booker/internal/booking"
	"library-room-booker/internal/browser"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/model"
	"library-room-booker/internal/notification"
	"library-room-booker/internal/slots"
)

// NoRoomsMessage is sent when nothing matches the preferences.
const NoRoomsMessage = "No rooms available matching your preferences"

var (
	// ErrNoSlots means no available slot matched the preferences.
	ErrNoSlots = errors.New("no rooms available matching preferences")
	// ErrNotOnBookingPage means sign-in finished but the calendar never appeared.
	ErrNotOnBookingPage = errors.New("could not reach booking page")
	// ErrAuthFailed wraps sign-in failures.
	ErrAuthFailed = errors.New("could not complete authentication")
)

// Session is a browser page owned by one run.
type Session interface {
	browser.Page
	Close()
}

// SessionOpener starts a new browser session for each run.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to SessionOpener.
type OpenerFunc func(ctx context.Context) (Session, error)

func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// LauncherOpener opens playwright sessions with l.
func LauncherOpener(l *browser.Launcher) SessionOpener {
	return OpenerFunc(func(ctx context.Context) (Session, error) {
		s, err := l.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Notifier delivers the result of a run to the user.
type Notifier interface {
	Notify(success bool, message string)
}

// Dispatcher is a Notifier that also takes the run id and the dry-run marker.
// The orchestrator prefers it when the configured Notifier implements it.
type Dispatcher interface {
	Dispatch(msg notification.Message) bool
}

// Recorder persists run history.
type Recorder interface {
	RecordAttempt(ctx context.Context, attempt *model.BookingAttempt) error
	SaveAvailability(ctx context.Context, snapshot *model.AvailabilitySnapshot) error
}

// Options configure what a run books.
type Options struct {
	BookingURL   string
	TargetDomain string
	Prefs        slots.Preferences
	// WaitTimeout bounds the wait for the calendar after sign-in.
	WaitTimeout time.Duration
	// AuthAttempts bounds the ensure-authenticated loop.
	AuthAttempts int
	// RetryWait is the pause between ensure-authenticated attempts and after date navigation.
	RetryWait time.Duration
	// Report receives the availability listing.
	Report io.Writer
}

// Deps are the collaborators of an Orchestrator. Notifier, Screenshots and
// Recorder are optional.
type Deps struct {
	Sessions    SessionOpener
	Auth        booking.Authenticator
	Driver      *booking.Driver
	Notifier    Notifier
	Screenshots booking.Screenshotter
	Recorder    Recorder
	Log         *logging.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result is the outcome of Book.
type Result struct {
	RunID      string
	DryRun     bool
	Success    bool
	Slot       slots.Slot
	Booking    booking.Result
	Message    string
	Screenshot string
	TargetDate time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Orchestrator sequences one run: open a session, sign in, find a slot, drive
// the form, then capture, notify and record. The session is always closed.
type Orchestrator struct {
	opts     Options
	sessions SessionOpener
	auth     booking.Authenticator
	driver   *booking.Driver
	notifier Notifier
	shots    booking.Screenshotter
	recorder Recorder
	log      *logging.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator.
func New(opts Options, deps Deps) *Orchestrator {
	if opts.AuthAttempts <= 0 {
		opts.AuthAttempts = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 2 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	if opts.TargetDomain == "" {
		opts.TargetDomain = auth.DefaultTargetDomain
	}
	if opts.Report == nil {
		opts.Report = io.Discard
	}

	o := &Orchestrator{
		opts:     opts,
		sessions: deps.Sessions,
		auth:     deps.Auth,
		driver:   deps.Driver,
		notifier: deps.Notifier,
		shots:    deps.Screenshots,
		recorder: deps.Recorder,
		log:      deps.Log.With("workflow"),
		now:      deps.Now,
		sleep:    deps.Sleep,
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = sleepCtx
	}
	return o
}

// TargetDate is the day being booked: today plus the configured days in advance.
func (o *Orchestrator) TargetDate() time.Time {
	return o.now().AddDate(0, 0, o.opts.Prefs.DaysInAdvance)
}

// Book runs a booking attempt. With dryRun it stops after the times are
// submitted. Book never panics and always closes the session.
func (o *Orchestrator) Book(ctx context.Context, dryRun bool) (res Result) {
	res = Result{
		RunID:      runIDFrom(ctx),
		DryRun:     dryRun,
		StartedAt:  o.now(),
		TargetDate: o.TargetDate(),
	}
	log := o.log.WithRunID(res.RunID)
	defer o.recoverBook(ctx, log, &res)
	log.Infof("Starting library room booking process (dry run: %t)", dryRun)
	log.Infof("Target booking date: %s", res.TargetDate.Format("Monday, January 02, 2006"))

	sess, err := o.sessions.Open(ctx)
	if err != nil {
		o.fatal(log, nil, &res, fmt.Errorf("failed to start browser: %w", err))
	} else {
		o.runBook(ctx, log, sess, &res)
	}

	res.FinishedAt = o.now()
	o.recordAttempt(ctx, log, res)
	return res
}

// recoverBook turns a panic outside the browser session into a failed,
// recorded result.
func (o *Orchestrator) recoverBook(ctx context.Context, log *logging.Logger, res *Result) {
	r := recover()
	if r == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Failed to report panic: %v", r)
		}
	}()
	o.fatal(log, nil, res, fmt.Errorf("panic: %v", r))
	res.FinishedAt = o.now()
	o.recordAttempt(ctx, log, *res)
}

func (o *Orchestrator) runBook(ctx context.Context, log *logging.Logger, sess Session, res *Result) {
	defer func() {
		sess.Close()
		log.Infof("Browser closed")
	}()
	defer func() {
		if r := recover(); r != nil {
			o.fatal(log, sess, res, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := o.prepare(ctx, log, sess); err != nil {
		o.fatal(log, sess, res, err)
		return
	}

	found, err := o.driver.DiscoverSlots(ctx, sess, o.opts.Prefs)
	if err != nil {
		o.fatal(log, sess, res, err)
		return
	}

	slot, ok := slots.First(found)
	if !ok {
		log.Warnf("No available rooms matching preferences")
		res.Err = ErrNoSlots
		res.Message = NoRoomsMessage
		res.Screenshot = o.capture(sess, "no_rooms")
		o.notify(res)
		return
	}
	res.Slot = slot
	log.Infof("Attempting to book: Room %s at %s", slot.Room, slot.Time)

	br, err := o.driver.Run(ctx, sess, slot, o.opts.Prefs.DurationHours, res.DryRun)
	res.Booking = br
	if err != nil {
		o.fatal(log, sess, res, err)
		return
	}

	if res.DryRun {
		res.Success = true
		res.Message = fmt.Sprintf("Dry run: Room %s at %s selected, booking not submitted", slot.Room, slot.Time)
		res.Screenshot = o.capture(sess, "dry_run")
		o.notify(res)
		return
	}

	if br.Outcome.Kind == booking.Confirmed {
		res.Success = true
		res.Message = fmt.Sprintf("Successfully booked Room %s at %s", slot.Room, slot.Time)
		res.Screenshot = o.capture(sess, "booking_success")
		log.Infof("%s", res.Message)
		o.notify(res)
		return
	}

	res.Err = fmt.Errorf("booking %s: %s", br.Outcome.Kind, br.Outcome.Reason)
	res.Message = "Booking may have failed - please check manually"
	res.Screenshot = o.capture(sess, "booking_failed")
	o.notify(res)
}

// prepare loads the calendar, signs in and moves to the target date.
func (o *Orchestrator) prepare(ctx context.Context, log *logging.Logger, page browser.Page) error {
	if err := o.driver.NavigateToCalendar(ctx, page, o.opts.BookingURL); err != nil {
		return err
	}
	if err := o.ensureAuthenticated(ctx, log, page); err != nil {
		return err
	}
	o.driver.NavigateToTargetDate(ctx, page, o.opts.Prefs.DaysInAdvance)
	_ = o.sleep(ctx, o.opts.RetryWait)
	return ctx.Err()
}

// ensureAuthenticated makes sure the calendar is shown, running the sign-in
// flow when an auth page appears. It tries a bounded number of times.
func (o *Orchestrator) ensureAuthenticated(ctx context.Context, log *logging.Logger, page browser.Page) error {
	for attempt := 1; attempt <= o.opts.AuthAttempts; attempt++ {
		snap := browser.State(page)

		if auth.IsTarget(o.opts.TargetDomain, snap) {
			if _, err := page.WaitFor(ctx, booking.CalendarSelector, o.opts.WaitTimeout); err == nil {
				log.Infof("Successfully on booking page")
				return nil
			}
			log.Debugf("Waiting for booking elements...")
		} else if auth.IsAuthPage(snap) {
			log.Infof("Auth page detected (attempt %d/%d)", attempt, o.opts.AuthAttempts)
			if err := o.auth.Run(ctx, page); err != nil {
				log.Errorf("Authentication flow failed: %v", err)
				return fmt.Errorf("%w: %w", ErrAuthFailed, err)
			}
		} else {
			log.Debugf("Unknown page state (attempt %d), waiting...", attempt)
		}

		if err := o.sleep(ctx, o.opts.RetryWait); err != nil {
			return err
		}
	}

	if auth.IsTarget(o.opts.TargetDomain, browser.State(page)) {
		log.Infof("On booking page after auth handling")
		return nil
	}
	log.Errorf("Could not reach booking page after %d attempts", o.opts.AuthAttempts)
	o.capture(page, "auth_failed")
	return ErrNotOnBookingPage
}

// CheckAvailability signs in, lists the matching slots sorted by time and
// writes the report. It never touches the booking form.
func (o *Orchestrator) CheckAvailability(ctx context.Context) (found []slots.Slot, err error) {
	runID := runIDFrom(ctx)
	log := o.log.WithRunID(runID)
	started := o.now()
	target := o.TargetDate()

	attempt := model.BookingAttempt{
		RunID:      runID,
		Mode:       model.ModeCheck,
		StartedAt:  started,
		TargetDate: target.Format(dateLayout),
	}
	defer func() {
		attempt.FinishedAt = o.now()
		attempt.Success = err == nil
		if err != nil {
			attempt.Reason = err.Error()
		}
		attempt.Message = fmt.Sprintf("Total: %d rooms available", len(found))
		o.record(ctx, log, &attempt)
	}()

	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("panic: %v", r)
			log.Errorf("Availability check failed: %v", err)
		}
	}()

	sess, err := o.sessions.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		sess.Close()
		log.Infof("Browser closed")
	}()

	if err := o.prepare(ctx, log, sess); err != nil {
		log.Errorf("Availability check failed: %v", err)
		return nil, err
	}

	matching, err := o.driver.DiscoverSlots(ctx, sess, o.opts.Prefs)
	if err != nil {
		return nil, err
	}
	found = slots.SortByTime(matching)

	slots.Report(o.opts.Report, target, o.opts.Prefs.DaysInAdvance, found)
	o.saveAvailability(ctx, log, runID, target, found)
	return found, nil
}

func (o *Orchestrator) fatal(log *logging.Logger, page browser.Page, res *Result, err error) {
	log.Errorf("Booking failed: %v", err)
	res.Success = false
	res.Err = err
	res.Message = "Booking failed: " + err.Error()
	if page != nil {
		res.Screenshot = o.capture(page, "error")
	}
	o.notify(res)
}

// notify sends the result message of res. A dry run that got through is sent
// as a dry-run marker rather than a booking success.
func (o *Orchestrator) notify(res *Result) {
	msg := notification.Message{
		Success: res.Success,
		DryRun:  res.DryRun && res.Success,
		Text:    res.Message,
		RunID:   res.RunID,
	}
	if d, ok := o.notifier.(Dispatcher); ok {
		d.Dispatch(msg)
		return
	}
	o.notifier.Notify(msg.Success, msg.Text)
}

func (o *Orchestrator) capture(page browser.Page, name string) (path string) {
	if o.shots == nil || page == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warnf("Screenshot %s failed: %v", name, r)
			path = ""
		}
	}()
	return o.shots.Capture(page, name)
}

type runIDKey struct{}

// WithRunID makes the next run started with ctx use id instead of a fresh one.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

type nopNotifier struct{}

func (nopNotifier) Notify(bool, string) {}

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
