// Package auth drives the university single sign-on pages until the browser
// lands back on the booking site.
package auth

import (
	"net/url"
	"strings"

	"library-room-booker/internal/browser"
)

// DefaultTargetDomain is the host of the room booking calendar.
const DefaultTargetDomain = "cal.lib.uoguelph.ca"

// State classifies the page currently shown during sign-in.
type State int

const (
	AccountPicker State = iota
	EmailEntry
	PasswordEntry
	VerifyIdentityMethodSelect
	CodeEntry
	StaySignedInPrompt
	OnTargetPage
	Unknown
)

func (s State) String() string {
	switch s {
	case AccountPicker:
		return "AccountPicker"
	case EmailEntry:
		return "EmailEntry"
	case PasswordEntry:
		return "PasswordEntry"
	case VerifyIdentityMethodSelect:
		return "VerifyIdentityMethodSelect"
	case CodeEntry:
		return "CodeEntry"
	case StaySignedInPrompt:
		return "StaySignedInPrompt"
	case OnTargetPage:
		return "OnTargetPage"
	default:
		return "Unknown"
	}
}

var (
	staySignedInPhrases = []string{"stay signed in", "keep me signed in"}
	signInPhrases       = []string{"sign in", "enter your email"}
	codePhrases         = []string{"verification code", "enter code", "enter the code", "code sent"}
	authHosts           = []string{"login.microsoftonline.com", "cas.uoguelph.ca"}
)

// Visibility holds the element visibility facts read from the page alongside its text.
type Visibility struct {
	PasswordVisible bool
}

// ReadVisibility looks up the password input on p.
func ReadVisibility(p browser.Page) Visibility {
	return Visibility{
		PasswordVisible: browser.AnyVisible(p, PasswordSelectors),
	}
}

// Classify maps a page snapshot to a State. Rules are checked in priority order
// and the first match wins, since sign-in pages often carry text from several steps.
func Classify(targetDomain string, snap browser.PageState, flags HandledFlags, vis Visibility) State {
	if targetDomain != "" && onHost(snap.URL, targetDomain) {
		return OnTargetPage
	}

	text := snap.Lower()
	codePage := containsAny(text, codePhrases)

	switch {
	case containsAny(text, staySignedInPhrases):
		return StaySignedInPrompt
	case !flags.PickAccount && strings.Contains(text, "pick an account"):
		return AccountPicker
	case !flags.Email && containsAny(text, signInPhrases) && !vis.PasswordVisible:
		return EmailEntry
	case !flags.Password && vis.PasswordVisible && !codePage:
		return PasswordEntry
	case !flags.Verify && strings.Contains(text, "verify your identity"):
		return VerifyIdentityMethodSelect
	case !flags.Code && codePage:
		return CodeEntry
	}
	return Unknown
}

// IsAuthPage reports whether the snapshot looks like any sign-in page.
func IsAuthPage(snap browser.PageState) bool {
	for _, h := range authHosts {
		if onHost(snap.URL, h) {
			return true
		}
	}
	text := snap.Lower()
	switch {
	case strings.Contains(text, "pick an account"),
		strings.Contains(text, "verify your identity"):
		return true
	case strings.Contains(text, "sign in"):
		return strings.Contains(text, "microsoft") || strings.Contains(text, "uoguelph")
	}
	return false
}

// onHost reports whether rawURL is served by domain or one of its subdomains.
// Query strings are ignored: sign-in URLs carry the booking host in their
// redirect parameter.
func onHost(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
