package auth

// HandledFlags records which sign-in steps were already acted on during one
// authentication attempt. Each flag is set at most once per attempt.
type HandledFlags struct {
	PickAccount bool
	Email       bool
	Password    bool
	Verify      bool
	Code        bool
}

// Mark sets the flag for s. It returns false if the flag was already set or s
// has no flag.
func (f *HandledFlags) Mark(s State) bool {
	p := f.flag(s)
	if p == nil || *p {
		return false
	}
	*p = true
	return true
}

// Handled reports whether s was already acted on. States without a flag are never handled.
func (f *HandledFlags) Handled(s State) bool {
	p := f.flag(s)
	return p != nil && *p
}

// Reset clears every flag for a new attempt.
func (f *HandledFlags) Reset() {
	*f = HandledFlags{}
}

func (f *HandledFlags) flag(s State) *bool {
	switch s {
	case AccountPicker:
		return &f.PickAccount
	case EmailEntry:
		return &f.Email
	case PasswordEntry:
		return &f.Password
	case VerifyIdentityMethodSelect:
		return &f.Verify
	case CodeEntry:
		return &f.Code
	}
	return nil
}
