package auth

var (
	EmailSelectors = []string{
		"input[type='email']",
		"input[name='loginfmt']",
		"input[name='username']",
		"input[name='email']",
		"input[id='username']",
		"input[id='email']",
		"input[id='i0116']",
	}

	PasswordSelectors = []string{
		"input[type='password']",
		"input[name='passwd']",
		"input[name='password']",
		"input[id='i0118']",
	}

	SubmitSelectors = []string{
		"input[type='submit']",
		"button[type='submit']",
		"input[value='Next']",
		"#idSIButton9",
	}

	CodeSelectors = []string{
		"input[name*='code']",
		"input[name*='otp']",
		"input[name*='token']",
		"input[type='tel']",
		"input[inputmode='numeric']",
		"input[id*='code']",
		"input[id*='otp']",
		"input[autocomplete='one-time-code']",
	}
)

const (
	staySignedInSelector = "#idSIButton9, input[type='submit'][value='Yes'], button[type='submit']"

	accountTileSelector  = "[data-test-id*='account'], .table-row, .tile-container, [role='listitem']"
	firstAccountSelector = ".table-row, .tile, [data-test-id='account-tile'], .identity-credential"

	smsOptionSelector    = "[data-value='PhoneAppOTP'], [data-value='OneWaySMS'], [data-value='TwoWaySMS']"
	textOptionSelector   = `div:has-text("Text"):has-text("XX")`
	methodTileSelector   = ".tile, .row, [role='option'], [role='listitem'], [role='button']"
	firstMethodSelector  = ".table .table-row, .tile-container .tile, [data-bind*='click']"
	maxTextOptionLength  = 100
	maxParentClickLevels = 3
)

// textSelector matches elements whose text contains s, case-insensitively.
func textSelector(s string) string {
	return "text=" + s
}
