package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultTimeout        = 10 * time.Second
)

// LaunchOptions configures a Chromium session.
type LaunchOptions struct {
	Headless bool
	// ProfileDir keeps cookies between runs so SSO sessions survive. Empty means a throwaway context.
	ProfileDir string
	Timeout    time.Duration
}

// Launcher starts playwright-driven Chromium sessions.
type Launcher struct {
	opts LaunchOptions
}

// NewLauncher creates a launcher with the given options.
func NewLauncher(opts LaunchOptions) *Launcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Launcher{opts: opts}
}

// Session is one browser with a single page. It implements Page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

// Open installs the driver if needed and launches a new session.
func (l *Launcher) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{pw: pw, timeout: l.opts.Timeout}
	headless := l.opts.Headless
	viewport := &playwright.Size{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	args := []string{"--no-sandbox", "--disable-dev-shm-usage", "--disable-gpu", "--disable-blink-features=AutomationControlled"}

	if l.opts.ProfileDir != "" {
		dir, err := filepath.Abs(l.opts.ProfileDir)
		if err == nil {
			err = os.MkdirAll(dir, 0o750)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare profile dir: %w", err)
		}
		bctx, err := pw.Chromium.LaunchPersistentContext(dir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: &headless,
			Viewport: viewport,
			Args:     args,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		s.context = bctx
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &headless,
			Args:     args,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.browser = browser
		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
		s.context = bctx
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(ms(l.opts.Timeout))
	s.page = page
	return s, nil
}

// Close releases the page, context, browser and driver. Errors are ignored.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

// Navigate loads url and waits for DOMContentLoaded.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	timeout := ms(3 * s.timeout)
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil, Timeout: &timeout}); err != nil {
		return fmt.Errorf("navigation failed: %w", mapError(err))
	}
	return nil
}

func (s *Session) URL() string {
	return s.page.URL()
}

// Text returns the rendered text of the body.
func (s *Session) Text() (string, error) {
	text, err := s.page.InnerText("body")
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", mapError(err))
	}
	return text, nil
}

func (s *Session) HTML() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", mapError(err))
	}
	return html, nil
}

func (s *Session) Query(selector string) (Element, error) {
	h, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", mapError(err))
	}
	if h == nil {
		return nil, nil
	}
	return &element{h: h, timeout: s.timeout}, nil
}

func (s *Session) QueryAll(selector string) ([]Element, error) {
	hs, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", mapError(err))
	}
	out := make([]Element, 0, len(hs))
	for _, h := range hs {
		out = append(out, &element{h: h, timeout: s.timeout})
	}
	return out, nil
}

// WaitFor waits until selector is visible or timeout elapses.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	state := playwright.WaitForSelectorState("visible")
	t := ms(timeout)
	h, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{State: &state, Timeout: &t})
	if err != nil {
		return nil, fmt.Errorf("wait for %q failed: %w", selector, mapError(err))
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return &element{h: h, timeout: s.timeout}, nil
}

func (s *Session) Press(key string) error {
	return mapError(s.page.Keyboard().Press(key))
}

// Screenshot writes a full-page PNG to path.
func (s *Session) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return mapError(err)
}

type element struct {
	h       playwright.ElementHandle
	timeout time.Duration
}

func (e *element) Text() (string, error) {
	text, err := e.h.TextContent()
	return text, mapError(err)
}

func (e *element) Attr(name string) (string, error) {
	v, err := e.h.GetAttribute(name)
	return v, mapError(err)
}

func (e *element) Visible() bool {
	ok, err := e.h.IsVisible()
	return err == nil && ok
}

func (e *element) Click() error {
	t := ms(e.timeout)
	return mapError(e.h.Click(playwright.ElementHandleClickOptions{Timeout: &t}))
}

func (e *element) ForceClick() error {
	_, err := e.h.Evaluate("el => el.click()")
	return mapError(err)
}

func (e *element) Fill(value string) error {
	return mapError(e.h.Fill(value))
}

func (e *element) Clear() error {
	return mapError(e.h.Fill(""))
}

func (e *element) ScrollIntoView() error {
	return mapError(e.h.ScrollIntoViewIfNeeded())
}

func (e *element) Parent() (Element, error) {
	h, err := e.h.QuerySelector("xpath=..")
	if err != nil {
		return nil, mapError(err)
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return &element{h: h, timeout: e.timeout}, nil
}

func (e *element) OptionCount() (int, error) {
	opts, err := e.h.QuerySelectorAll("option")
	if err != nil {
		return 0, mapError(err)
	}
	return len(opts), nil
}

func (e *element) SelectIndex(i int) error {
	_, err := e.h.SelectOption(playwright.SelectOptionValues{Indexes: &[]int{i}})
	return mapError(err)
}

// mapError converts playwright errors into the package sentinels while keeping the original text.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "intercepts pointer events") {
		return fmt.Errorf("%w: %v", ErrClickIntercepted, err)
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func ms(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}

var _ Page = (*Session)(nil)
