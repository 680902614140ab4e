package auth

import (
	"context"

	"library-room-booker/internal/browser"
	"library-room-booker/internal/logging"
)

// Strategy is one way of performing a sign-in action. Try reports whether it
// performed the action; an error means the strategy could not be applied.
type Strategy struct {
	Name string
	Try  func(ctx context.Context, p browser.Page) (bool, error)
}

// firstSuccess runs strategies in order and returns the name of the first one
// that succeeds. Failures are logged and never stop the chain.
func firstSuccess(ctx context.Context, p browser.Page, log *logging.Logger, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return "", false
		}
		ok, err := s.Try(ctx, p)
		if err != nil {
			log.Debugf("Strategy %q failed: %v", s.Name, err)
			continue
		}
		if ok {
			return s.Name, true
		}
	}
	return "", false
}

// clickVisible clicks the first visible element in elems.
func clickVisible(elems []browser.Element) (bool, error) {
	for _, el := range elems {
		if el == nil || !el.Visible() {
			continue
		}
		if err := el.Click(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// clickOrParent clicks el, walking up to levels ancestors when the click fails.
func clickOrParent(el browser.Element, levels int) error {
	var err error
	for i := 0; i <= levels; i++ {
		if err = el.Click(); err == nil {
			return nil
		}
		parent, perr := el.Parent()
		if perr != nil {
			return err
		}
		el = parent
	}
	return err
}
