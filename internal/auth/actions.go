package auth

import (
	"context"
	"fmt"
	"strings"

	"library-room-booker/internal/browser"
)

func (f *Flow) pickAccount(ctx context.Context, p browser.Page) bool {
	if !f.creds.HasEmail() {
		f.log.Warnf("No email configured for account picker")
		f.prompt.Prompt("Please click on your account manually")
		return false
	}
	email := f.creds.Email
	f.log.Infof("Looking for account: %s", email)

	name, ok := firstSuccess(ctx, p, f.log, []Strategy{
		{Name: "email text", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			elems, err := p.QueryAll(textSelector(email))
			if err != nil {
				return false, err
			}
			for _, el := range elems {
				if el == nil || !el.Visible() {
					continue
				}
				if err := clickOrParent(el, 1); err != nil {
					return false, err
				}
				return true, nil
			}
			return false, nil
		}},
		{Name: "account tile", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			tiles, err := p.QueryAll(accountTileSelector)
			if err != nil {
				return false, err
			}
			for _, tile := range tiles {
				text, err := tile.Text()
				if err != nil || !strings.Contains(strings.ToLower(text), strings.ToLower(email)) {
					continue
				}
				return true, tile.Click()
			}
			return false, nil
		}},
		{Name: "first account", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			el, err := p.Query(firstAccountSelector)
			if err != nil || el == nil || !el.Visible() {
				return false, err
			}
			return true, el.Click()
		}},
	})
	if !ok {
		f.log.Warnf("Could not auto-select account")
		f.prompt.Prompt("Please click on your account manually")
		return false
	}
	f.log.Infof("Selected account %s (%s)", email, name)
	return true
}

func (f *Flow) enterEmail(ctx context.Context, p browser.Page) bool {
	if !f.creds.HasEmail() {
		f.log.Warnf("No email configured")
		f.prompt.Prompt("Please enter your email manually")
		return false
	}

	field := browser.FirstVisible(p, EmailSelectors)
	if field == nil {
		f.log.Warnf("Could not find email field")
		f.prompt.Prompt("Please enter your email manually")
		return false
	}
	if err := fill(field, f.creds.Email); err != nil {
		f.log.Warnf("Failed to enter email: %v", err)
		f.prompt.Prompt("Please enter your email manually")
		return false
	}
	f.log.Infof("Email entered: %s", f.creds.Email)

	if btn := browser.FirstVisible(p, SubmitSelectors); btn != nil {
		if err := btn.Click(); err == nil {
			f.log.Infof("Clicked Next button")
			return true
		}
	}
	if err := p.Press("Enter"); err != nil {
		f.log.Warnf("Failed to submit email: %v", err)
		return false
	}
	f.log.Infof("Pressed Enter to proceed")
	return true
}

func (f *Flow) enterPassword(ctx context.Context, p browser.Page) bool {
	field := browser.FirstVisible(p, PasswordSelectors)
	if field == nil {
		f.log.Warnf("Could not find password field")
		return false
	}

	if !f.creds.HasPassword() {
		if err := field.Click(); err != nil {
			f.log.Warnf("Failed to focus password field: %v", err)
		}
		f.log.Infof("Password field clicked, waiting for autofill")
		f.prompt.Prompt("Password field ready. Press ENTER when autofill appears")
		return true
	}

	if err := fill(field, f.creds.Password); err != nil {
		f.log.Warnf("Failed to enter password: %v", err)
		f.prompt.Prompt("Please enter your password manually")
		return false
	}
	if err := p.Press("Enter"); err != nil {
		f.log.Warnf("Failed to submit password: %v", err)
		return false
	}
	f.log.Infof("Password submitted")
	return true
}

func (f *Flow) selectVerifyMethod(ctx context.Context, p browser.Page) bool {
	f.log.Infof("Handling verify identity page")

	name, ok := firstSuccess(ctx, p, f.log, []Strategy{
		{Name: "sms attribute", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			opts, err := p.QueryAll(smsOptionSelector)
			if err != nil {
				return false, err
			}
			return clickVisible(opts)
		}},
		{Name: "text option", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			opts, err := p.QueryAll(textOptionSelector)
			if err != nil {
				return false, err
			}
			for _, opt := range opts {
				text, err := opt.Text()
				if err != nil || !opt.Visible() || len(text) >= maxTextOptionLength {
					continue
				}
				if err := clickOrParent(opt, maxParentClickLevels); err != nil {
					continue
				}
				return true, nil
			}
			return false, nil
		}},
		{Name: "method tile", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			tiles, err := p.QueryAll(methodTileSelector)
			if err != nil {
				return false, err
			}
			for _, tile := range tiles {
				text, err := tile.Text()
				if err != nil || !isTextMethod(text) {
					continue
				}
				if err := tile.Click(); err != nil {
					if err := tile.ForceClick(); err != nil {
						return false, err
					}
				}
				return true, nil
			}
			return false, nil
		}},
		{Name: "first method", Try: func(ctx context.Context, p browser.Page) (bool, error) {
			opts, err := p.QueryAll(firstMethodSelector)
			if err != nil || len(opts) == 0 || !opts[0].Visible() {
				return false, err
			}
			return true, opts[0].ForceClick()
		}},
	})
	if ok {
		f.log.Infof("Selected text verification method (%s)", name)
		return true
	}

	f.log.Warnf("Could not auto-select text verification, waiting for manual selection")
	f.prompt.Prompt(fmt.Sprintf("Please click 'Text' manually (waiting %s)", f.cfg.ManualWait))
	if err := f.sleep(ctx, f.cfg.ManualWait); err != nil {
		f.log.Debugf("Manual verification wait interrupted: %v", err)
	}
	return false
}

func isTextMethod(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "text") &&
		(strings.Contains(t, "xx") || strings.Contains(t, "sms") || strings.Contains(t, "+"))
}

func (f *Flow) focusCodeField(ctx context.Context, p browser.Page) bool {
	f.log.Infof("Verification code page detected")
	f.prompt.Prompt("A code was sent to your phone. Click the autofill suggestion when it appears")

	field := browser.FirstVisible(p, CodeSelectors)
	if field == nil {
		f.log.Warnf("Could not find verification code field")
		return false
	}
	if err := field.Click(); err != nil {
		f.log.Warnf("Failed to focus verification code field: %v", err)
		return false
	}
	return true
}

func (f *Flow) confirmStaySignedIn(ctx context.Context, p browser.Page) bool {
	btn, err := p.Query(staySignedInSelector)
	if err != nil || btn == nil {
		return false
	}
	if err := btn.Click(); err != nil {
		f.log.Debugf("Failed to confirm stay signed in: %v", err)
		return false
	}
	f.log.Infof("Clicked 'Stay signed in'")
	return true
}

func fill(el browser.Element, value string) error {
	if err := el.Click(); err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return err
	}
	return el.Fill(value)
}
