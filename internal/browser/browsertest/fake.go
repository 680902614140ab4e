// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"strings"
	"time"

	"library-room-booker/internal/browser"
)

// Node is a fake DOM element. It matches a selector when the selector, or one of
// its comma-separated parts, equals one of its Selectors.
type Node struct {
	Selectors []string
	Label     string
	Attrs     map[string]string
	Hidden    bool
	Options   int
	Parent    *Node

	// OnClick runs after a successful Click or ForceClick.
	OnClick       func(p *Page)
	ClickErr      error
	ForceClickErr error
	FillErr       error

	Value       string
	Clicks      int
	ForceClicks int
	Selected    int
	Scrolled    bool
}

// Page is a scriptable fake of browser.Page.
type Page struct {
	CurrentURL string
	Body       string
	Source     string
	Nodes      []*Node

	// OnNavigate replaces the default behaviour of setting CurrentURL.
	OnNavigate func(p *Page, url string)
	// OnPoll runs every time Text is read; tests use it to advance page state.
	OnPoll func(p *Page)
	// OnPress runs after a key press is recorded.
	OnPress func(p *Page, key string)

	NavigateErr   error
	TextErr       error
	ScreenshotErr error

	Navigated   []string
	Pressed     []string
	Screenshots []string
	Waited      []string
}

// New creates a page showing url with the given body text.
func New(url, body string, nodes ...*Node) *Page {
	return &Page{CurrentURL: url, Body: body, Nodes: nodes}
}

// Show replaces the whole page content, as after a navigation.
func (p *Page) Show(url, body string, nodes ...*Node) {
	p.CurrentURL = url
	p.Body = body
	p.Nodes = nodes
}

// Find returns the first node matching selector, visible or not.
func (p *Page) Find(selector string) *Node {
	for _, n := range p.Nodes {
		if matches(n, selector) {
			return n
		}
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Navigated = append(p.Navigated, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
		return nil
	}
	p.CurrentURL = url
	return nil
}

func (p *Page) URL() string {
	return p.CurrentURL
}

func (p *Page) Text() (string, error) {
	if p.OnPoll != nil {
		p.OnPoll(p)
	}
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.Body, nil
}

func (p *Page) HTML() (string, error) {
	return p.Source, nil
}

func (p *Page) Query(selector string) (browser.Element, error) {
	for _, n := range p.Nodes {
		if matches(n, selector) {
			return &element{p: p, n: n}, nil
		}
	}
	return nil, nil
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	var out []browser.Element
	for _, n := range p.Nodes {
		if matches(n, selector) {
			out = append(out, &element{p: p, n: n})
		}
	}
	return out, nil
}

// WaitFor never blocks: it returns the first visible match or browser.ErrTimeout.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Waited = append(p.Waited, selector)
	for _, n := range p.Nodes {
		if matches(n, selector) && !n.Hidden {
			return &element{p: p, n: n}, nil
		}
	}
	return nil, browser.ErrTimeout
}

func (p *Page) Press(key string) error {
	p.Pressed = append(p.Pressed, key)
	if p.OnPress != nil {
		p.OnPress(p, key)
	}
	return nil
}

func (p *Page) Screenshot(path string) error {
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

type element struct {
	p *Page
	n *Node
}

func (e *element) Text() (string, error) { return e.n.Label, nil }

func (e *element) Attr(name string) (string, error) {
	return e.n.Attrs[name], nil
}

func (e *element) Visible() bool { return !e.n.Hidden }

func (e *element) Click() error {
	if e.n.ClickErr != nil {
		return e.n.ClickErr
	}
	e.n.Clicks++
	if e.n.OnClick != nil {
		e.n.OnClick(e.p)
	}
	return nil
}

func (e *element) ForceClick() error {
	if e.n.ForceClickErr != nil {
		return e.n.ForceClickErr
	}
	e.n.ForceClicks++
	if e.n.OnClick != nil {
		e.n.OnClick(e.p)
	}
	return nil
}

func (e *element) Fill(value string) error {
	if e.n.FillErr != nil {
		return e.n.FillErr
	}
	e.n.Value = value
	return nil
}

func (e *element) Clear() error {
	e.n.Value = ""
	return nil
}

func (e *element) ScrollIntoView() error {
	e.n.Scrolled = true
	return nil
}

func (e *element) Parent() (browser.Element, error) {
	if e.n.Parent == nil {
		return nil, browser.ErrNotFound
	}
	return &element{p: e.p, n: e.n.Parent}, nil
}

func (e *element) OptionCount() (int, error) { return e.n.Options, nil }

func (e *element) SelectIndex(i int) error {
	e.n.Selected = i
	return nil
}

func matches(n *Node, selector string) bool {
	for _, s := range n.Selectors {
		if s == selector {
			return true
		}
	}
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		for _, s := range n.Selectors {
			if s == part {
				return true
			}
		}
	}
	return false
}

var _ browser.Page = (*Page)(nil)
