package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when a wait or action exceeds its deadline.
	ErrTimeout = errors.New("browser: timeout")
	// ErrClickIntercepted is returned when another element receives the click.
	ErrClickIntercepted = errors.New("browser: click intercepted")
	// ErrNotFound is returned when no element matches a selector.
	ErrNotFound = errors.New("browser: element not found")
)

// Element is a handle to a DOM element on the current page.
type Element interface {
	Text() (string, error)
	Attr(name string) (string, error)
	Visible() bool
	Click() error
	// ForceClick dispatches a script-level click, bypassing actionability checks.
	ForceClick() error
	Fill(value string) error
	Clear() error
	ScrollIntoView() error
	// Parent returns the parent element, or ErrNotFound at the document root.
	Parent() (Element, error)
	OptionCount() (int, error)
	SelectIndex(i int) error
}

// Page is the browser capability the booking core depends on.
// Query returns a nil Element and nil error when nothing matches.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	Text() (string, error)
	HTML() (string, error)
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Press(key string) error
	Screenshot(path string) error
}

// PageState is a point-in-time read of the page.
type PageState struct {
	URL  string
	Text string
}

// Lower returns the page text lower-cased for phrase matching.
func (s PageState) Lower() string {
	return strings.ToLower(s.Text)
}

// State reads the current URL and visible text. Text read failures leave Text empty.
func State(p Page) PageState {
	text, err := p.Text()
	if err != nil {
		text = ""
	}
	return PageState{URL: p.URL(), Text: text}
}

// FirstVisible returns the first visible element matching any selector, in order.
func FirstVisible(p Page, selectors []string) Element {
	for _, sel := range selectors {
		elems, err := p.QueryAll(sel)
		if err != nil {
			continue
		}
		for _, el := range elems {
			if el != nil && el.Visible() {
				return el
			}
		}
	}
	return nil
}

// AnyVisible reports whether any selector matches a visible element.
func AnyVisible(p Page, selectors []string) bool {
	return FirstVisible(p, selectors) != nil
}
