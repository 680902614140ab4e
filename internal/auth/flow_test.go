package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-room-booker/config"
	"library-room-booker/internal/browser/browsertest"
	"library-room-booker/internal/logging"
)

const testEmail = "alice@uoguelph.ca"

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return ctx.Err()
}

type recordingPrompter struct {
	msgs []string
}

func (p *recordingPrompter) Prompt(msg string) { p.msgs = append(p.msgs, msg) }

func (p *recordingPrompter) joined() string { return strings.Join(p.msgs, "\n") }

func newTestFlow(creds Credentials) (*Flow, *fakeClock, *recordingPrompter) {
	clock := &fakeClock{t: time.Date(2025, 1, 15, 0, 5, 0, 0, time.UTC)}
	prompter := &recordingPrompter{}
	f := NewFlow(DefaultFlowConfig(), creds, logging.Discard(), prompter)
	f.now = clock.now
	f.sleep = clock.sleep
	return f, clock, prompter
}

func TestFlow_Run_AlreadyOnTarget(t *testing.T) {
	f, clock, _ := newTestFlow(Credentials{})
	page := browsertest.New(targetURL, "Pick an account")

	require.NoError(t, f.Run(context.Background(), page))
	assert.Empty(t, clock.slept)
}

func TestFlow_Run_FullSequence(t *testing.T) {
	f, clock, _ := newTestFlow(Credentials{Email: testEmail, Password: "secret"})

	stay := &browsertest.Node{
		Selectors: []string{"#idSIButton9"},
		OnClick:   func(p *browsertest.Page) { p.Show(targetURL, "Study rooms") },
	}
	code := &browsertest.Node{
		Selectors: []string{"input[name*='code']"},
		OnClick:   func(p *browsertest.Page) { p.Show(loginURL, "Stay signed in?", stay) },
	}
	sms := &browsertest.Node{
		Selectors: []string{"[data-value='OneWaySMS']"},
		OnClick:   func(p *browsertest.Page) { p.Show(loginURL, "Enter code we sent to +X XXXXXXXX12", code) },
	}
	password := &browsertest.Node{Selectors: []string{"input[type='password']"}}
	account := &browsertest.Node{
		Selectors: []string{textSelector(testEmail)},
		Label:     testEmail,
		OnClick:   func(p *browsertest.Page) { p.Show(loginURL, "Enter password", password) },
	}

	page := browsertest.New(loginURL, "Pick an account", account)
	page.OnPress = func(p *browsertest.Page, key string) {
		if key == "Enter" && p.Find("input[type='password']") != nil {
			p.Show(loginURL, "Verify your identity", sms)
		}
	}

	require.NoError(t, f.Run(context.Background(), page))

	assert.Equal(t, 1, account.Clicks)
	assert.Equal(t, "secret", password.Value)
	assert.Equal(t, 1, sms.Clicks)
	assert.Equal(t, 1, code.Clicks)
	assert.Equal(t, 1, stay.Clicks)
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		2 * time.Second,
		3 * time.Second,
		1500 * time.Millisecond,
		2 * time.Second,
	}, clock.slept)
	assert.Equal(t, HandledFlags{PickAccount: true, Password: true, Verify: true, Code: true}, f.Flags())
}

func TestFlow_Run_EmailEntryActsOnce(t *testing.T) {
	f, _, _ := newTestFlow(Credentials{Email: testEmail})

	email := &browsertest.Node{Selectors: []string{"input[type='email']"}}
	next := &browsertest.Node{
		Selectors: []string{"input[type='submit']"},
		OnClick:   func(p *browsertest.Page) { p.Show(loginURL, "Loading") },
	}
	page := browsertest.New(loginURL, "Sign in to your account", email, next)

	polls := 0
	page.OnPoll = func(p *browsertest.Page) {
		polls++
		switch polls {
		case 3:
			// The site bounces back to the email page.
			p.Show(loginURL, "Sign in to your account", email, next)
		case 6:
			p.Show(targetURL, "Study rooms")
		}
	}

	require.NoError(t, f.Run(context.Background(), page))
	assert.Equal(t, 1, next.Clicks)
	assert.Equal(t, 1, email.Clicks)
	assert.Equal(t, testEmail, email.Value)
	assert.Empty(t, page.Pressed)
}

func TestFlow_Run_EmailWithoutSubmitPressesEnter(t *testing.T) {
	f, _, _ := newTestFlow(Credentials{Email: testEmail})

	email := &browsertest.Node{Selectors: []string{"input[name='loginfmt']"}}
	page := browsertest.New(loginURL, "Enter your email", email)
	page.OnPress = func(p *browsertest.Page, key string) { p.Show(targetURL, "Study rooms") }

	require.NoError(t, f.Run(context.Background(), page))
	assert.Equal(t, []string{"Enter"}, page.Pressed)
	assert.Equal(t, testEmail, email.Value)
}

func TestFlow_Run_ResetsFlags(t *testing.T) {
	f, _, _ := newTestFlow(Credentials{})
	f.flags = HandledFlags{Email: true, Code: true}

	require.NoError(t, f.Run(context.Background(), browsertest.New(targetURL, "")))
	assert.Equal(t, HandledFlags{}, f.Flags())
}

func TestFlow_Run_Timeout(t *testing.T) {
	f, clock, _ := newTestFlow(Credentials{})
	page := browsertest.New(loginURL, "Loading")

	err := f.Run(context.Background(), page)
	assert.ErrorIs(t, err, ErrAuthTimeout)
	assert.Len(t, clock.slept, 120)
}

func TestFlow_Run_ContextCancelled(t *testing.T) {
	f, _, _ := newTestFlow(Credentials{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Run(ctx, browsertest.New(loginURL, "Loading"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAuthTimeout)
}

func TestFlow_PasswordAutofillWithoutCredential(t *testing.T) {
	f, _, prompter := newTestFlow(Credentials{Email: testEmail})
	password := &browsertest.Node{Selectors: []string{"input[id='i0118']"}}
	page := browsertest.New(loginURL, "Enter password", password)

	assert.Equal(t, f.cfg.ActionSettle, f.handle(context.Background(), page, PasswordEntry))
	assert.Equal(t, 1, password.Clicks)
	assert.Empty(t, password.Value)
	assert.Empty(t, page.Pressed)
	assert.Contains(t, prompter.joined(), "autofill")
}

func TestFlow_AccountPickerManualFallback(t *testing.T) {
	f, _, prompter := newTestFlow(Credentials{Email: testEmail})
	f.cfg.Timeout = 10 * time.Second
	page := browsertest.New(loginURL, "Pick an account")

	assert.ErrorIs(t, f.Run(context.Background(), page), ErrAuthTimeout)
	assert.True(t, f.Flags().PickAccount)
	assert.Equal(t, []string{"Please click on your account manually"}, prompter.msgs)
}

func TestFlow_MissingEmailRequestsManualEntry(t *testing.T) {
	f, _, prompter := newTestFlow(Credentials{})
	email := &browsertest.Node{Selectors: []string{"input[type='email']"}}
	page := browsertest.New(loginURL, "Sign in", email)

	assert.False(t, f.enterEmail(context.Background(), page))
	assert.Empty(t, email.Value)
	assert.Contains(t, prompter.joined(), "enter your email manually")
}

func TestFlow_SignInWithoutEmailFieldPromptsOnce(t *testing.T) {
	f, _, prompter := newTestFlow(Credentials{})
	f.cfg.Timeout = 10 * time.Second
	page := browsertest.New(loginURL, "Sign in to your account")

	assert.ErrorIs(t, f.Run(context.Background(), page), ErrAuthTimeout)
	assert.True(t, f.Flags().Email)
	assert.Equal(t, []string{"Please enter your email manually"}, prompter.msgs)
}

func TestFlow_Run_SignInRedirectIsNotTarget(t *testing.T) {
	f, _, _ := newTestFlow(Credentials{Email: testEmail})

	email := &browsertest.Node{Selectors: []string{"input[type='email']"}}
	page := browsertest.New(casRedirectURL, "Sign in with your uoguelph account", email)
	page.OnPress = func(p *browsertest.Page, key string) { p.Show(targetURL, "Study rooms") }

	require.NoError(t, f.Run(context.Background(), page))
	assert.Equal(t, testEmail, email.Value)
	assert.True(t, f.Flags().Email)
}

func TestPickAccount_Strategies(t *testing.T) {
	t.Run("Parent of email text", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{Email: testEmail})
		tile := &browsertest.Node{Selectors: []string{"div"}}
		label := &browsertest.Node{
			Selectors: []string{textSelector(testEmail)},
			ClickErr:  errors.New("element is not clickable"),
			Parent:    tile,
		}
		page := browsertest.New(loginURL, "Pick an account", label)

		assert.True(t, f.pickAccount(context.Background(), page))
		assert.Equal(t, 1, tile.Clicks)
	})

	t.Run("Tile containing email", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{Email: testEmail})
		bob := &browsertest.Node{Selectors: []string{".table-row"}, Label: "Bob bob@uoguelph.ca"}
		alice := &browsertest.Node{Selectors: []string{".table-row"}, Label: "Alice ALICE@uoguelph.ca"}
		page := browsertest.New(loginURL, "Pick an account", bob, alice)

		assert.True(t, f.pickAccount(context.Background(), page))
		assert.Equal(t, 0, bob.Clicks)
		assert.Equal(t, 1, alice.Clicks)
	})

	t.Run("First account tile", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{Email: testEmail})
		first := &browsertest.Node{Selectors: []string{".identity-credential"}, Label: "Someone else"}
		page := browsertest.New(loginURL, "Pick an account", first)

		assert.True(t, f.pickAccount(context.Background(), page))
		assert.Equal(t, 1, first.Clicks)
	})
}

func TestSelectVerifyMethod_Strategies(t *testing.T) {
	t.Run("Text option walks up to a clickable parent", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{})
		row := &browsertest.Node{Selectors: []string{"div"}}
		opt := &browsertest.Node{
			Selectors: []string{textOptionSelector},
			Label:     "Text +X XXXXXXXX12",
			ClickErr:  errors.New("intercepts pointer events"),
			Parent:    row,
		}
		page := browsertest.New(loginURL, "Verify your identity", opt)

		assert.True(t, f.selectVerifyMethod(context.Background(), page))
		assert.Equal(t, 1, row.Clicks)
	})

	t.Run("Long text option skipped", func(t *testing.T) {
		f, clock, _ := newTestFlow(Credentials{})
		opt := &browsertest.Node{
			Selectors: []string{textOptionSelector},
			Label:     "Text XX " + strings.Repeat("x", 120),
		}
		page := browsertest.New(loginURL, "Verify your identity", opt)

		assert.False(t, f.selectVerifyMethod(context.Background(), page))
		assert.Equal(t, 0, opt.Clicks)
		assert.Equal(t, []time.Duration{30 * time.Second}, clock.slept)
	})

	t.Run("Tile falls back to forced click", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{})
		call := &browsertest.Node{Selectors: []string{"[role='option']"}, Label: "Call +X XXXXXXXX12"}
		text := &browsertest.Node{
			Selectors: []string{"[role='option']"},
			Label:     "Text +X XXXXXXXX12",
			ClickErr:  errors.New("intercepts pointer events"),
		}
		page := browsertest.New(loginURL, "Verify your identity", call, text)

		assert.True(t, f.selectVerifyMethod(context.Background(), page))
		assert.Equal(t, 0, call.Clicks)
		assert.Equal(t, 1, text.ForceClicks)
	})

	t.Run("First method", func(t *testing.T) {
		f, _, _ := newTestFlow(Credentials{})
		first := &browsertest.Node{Selectors: []string{"[data-bind*='click']"}, Label: "Approve a request"}
		page := browsertest.New(loginURL, "Verify your identity", first)

		assert.True(t, f.selectVerifyMethod(context.Background(), page))
		assert.Equal(t, 1, first.ForceClicks)
	})

	t.Run("Manual wait when nothing matches", func(t *testing.T) {
		f, clock, prompter := newTestFlow(Credentials{})
		page := browsertest.New(loginURL, "Verify your identity")

		assert.Equal(t, f.cfg.VerifySettle, f.handle(context.Background(), page, VerifyIdentityMethodSelect))
		assert.Equal(t, []time.Duration{30 * time.Second}, clock.slept)
		assert.Contains(t, prompter.joined(), "Please click 'Text' manually")
		assert.True(t, f.Flags().Verify)
	})
}

func TestFlowConfigFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Booking.TargetDomain = "rooms.example.edu"
	cfg.Advanced.LoginTimeout = time.Minute
	cfg.Advanced.ManualVerifyWait = 5 * time.Second

	fc := FlowConfigFromConfig(cfg)
	assert.Equal(t, "rooms.example.edu", fc.TargetDomain)
	assert.Equal(t, time.Minute, fc.Timeout)
	assert.Equal(t, 5*time.Second, fc.ManualWait)
	assert.Equal(t, 2*time.Second, fc.ActionSettle)
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv(EmailEnv, "")
	t.Setenv(PasswordEnv, "")
	require.NoError(t, os.Unsetenv(EmailEnv))
	require.NoError(t, os.Unsetenv(PasswordEnv))

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("UOG_EMAIL= bob@uoguelph.ca \nUOG_PASSWORD=\n"), 0o600))

	creds, err := LoadCredentials(envFile)
	require.NoError(t, err)
	assert.Equal(t, "bob@uoguelph.ca", creds.Email)
	assert.False(t, creds.HasPassword())
}

func TestLoadCredentials_MissingFile(t *testing.T) {
	t.Setenv(EmailEnv, "carol@uoguelph.ca")
	t.Setenv(PasswordEnv, "hunter2")

	creds, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Credentials{Email: "carol@uoguelph.ca", Password: "hunter2"}, creds)
}
