package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"library-room-booker/config"
	"library-room-booker/internal/browser"
	"library-room-booker/internal/logging"
)

// ErrAuthTimeout is returned when the booking site is not reached before the login timeout.
var ErrAuthTimeout = errors.New("authentication timed out")

// FlowConfig holds the timing of the sign-in loop.
type FlowConfig struct {
	TargetDomain string
	// Timeout bounds one call to Run.
	Timeout time.Duration
	// ActionSettle is the pause after acting on a page.
	ActionSettle time.Duration
	// VerifySettle is the pause after choosing a verification method.
	VerifySettle time.Duration
	// PollInterval is the pause when nothing was done.
	PollInterval time.Duration
	// ManualWait is how long to wait for the operator to pick a verification method.
	ManualWait time.Duration
}

// DefaultFlowConfig returns the timings used against the university sign-in pages.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		TargetDomain: DefaultTargetDomain,
		Timeout:      180 * time.Second,
		ActionSettle: 2 * time.Second,
		VerifySettle: 3 * time.Second,
		PollInterval: 1500 * time.Millisecond,
		ManualWait:   30 * time.Second,
	}
}

// FlowConfigFromConfig applies the configured target domain and timeouts to the defaults.
func FlowConfigFromConfig(cfg *config.Config) FlowConfig {
	fc := DefaultFlowConfig()
	if cfg.Booking.TargetDomain != "" {
		fc.TargetDomain = cfg.Booking.TargetDomain
	}
	if cfg.Advanced.LoginTimeout > 0 {
		fc.Timeout = cfg.Advanced.LoginTimeout
	}
	if cfg.Advanced.ManualVerifyWait > 0 {
		fc.ManualWait = cfg.Advanced.ManualVerifyWait
	}
	return fc
}

// Prompter shows instructions to the person watching the browser.
type Prompter interface {
	Prompt(msg string)
}

// WriterPrompter prints prompts to W.
type WriterPrompter struct {
	W io.Writer
}

func (p WriterPrompter) Prompt(msg string) {
	fmt.Fprintf(p.W, "  ⚠ %s\n\n", msg)
}

type nopPrompter struct{}

func (nopPrompter) Prompt(string) {}

// Flow walks the sign-in pages until the booking site is reached.
// A Flow is not safe for concurrent use.
type Flow struct {
	cfg    FlowConfig
	creds  Credentials
	log    *logging.Logger
	prompt Prompter
	flags  HandledFlags

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFlow creates a sign-in flow. A nil prompter discards prompts.
func NewFlow(cfg FlowConfig, creds Credentials, log *logging.Logger, prompter Prompter) *Flow {
	if prompter == nil {
		prompter = nopPrompter{}
	}
	return &Flow{
		cfg:    cfg,
		creds:  creds,
		log:    log.With("auth"),
		prompt: prompter,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Flags returns the steps acted on during the current attempt.
func (f *Flow) Flags() HandledFlags {
	return f.flags
}

// Run starts a new authentication attempt and polls the page until the target
// domain is reached. Failed actions never end the loop; only the timeout or ctx does.
func (f *Flow) Run(ctx context.Context, page browser.Page) error {
	f.flags.Reset()
	f.log.Infof("Starting authentication flow")

	deadline := f.now().Add(f.cfg.Timeout)
	for f.now().Before(deadline) {
		snap := browser.State(page)
		var vis Visibility
		if !IsTarget(f.cfg.TargetDomain, snap) {
			vis = ReadVisibility(page)
		}

		state := Classify(f.cfg.TargetDomain, snap, f.flags, vis)
		if state == OnTargetPage {
			f.log.Infof("Authentication complete, back on booking page")
			return nil
		}

		pause := f.handle(ctx, page, state)
		if err := f.sleep(ctx, pause); err != nil {
			return fmt.Errorf("authentication interrupted: %w", err)
		}
	}

	f.log.Errorf("Authentication timeout after %s", f.cfg.Timeout)
	return ErrAuthTimeout
}

// handle performs the action for state and returns how long to wait before the next poll.
func (f *Flow) handle(ctx context.Context, page browser.Page, state State) time.Duration {
	if state != Unknown {
		f.log.Infof("Detected: %s", state)
	}

	switch state {
	case StaySignedInPrompt:
		if f.confirmStaySignedIn(ctx, page) {
			return f.cfg.ActionSettle
		}
		return f.cfg.PollInterval
	case AccountPicker:
		f.flags.Mark(state)
		f.pickAccount(ctx, page)
		return f.cfg.ActionSettle
	case EmailEntry:
		f.flags.Mark(state)
		f.enterEmail(ctx, page)
		return f.cfg.ActionSettle
	case PasswordEntry:
		f.flags.Mark(state)
		f.enterPassword(ctx, page)
		return f.cfg.ActionSettle
	case VerifyIdentityMethodSelect:
		f.flags.Mark(state)
		f.selectVerifyMethod(ctx, page)
		return f.cfg.VerifySettle
	case CodeEntry:
		f.flags.Mark(state)
		f.focusCodeField(ctx, page)
		return f.cfg.PollInterval
	}
	return f.cfg.PollInterval
}

// IsTarget reports whether snap is on the booking site.
func IsTarget(targetDomain string, snap browser.PageState) bool {
	return Classify(targetDomain, snap, HandledFlags{}, Visibility{}) == OnTargetPage
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
