package auth

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EmailEnv    = "UOG_EMAIL"
	PasswordEnv = "UOG_PASSWORD"
)

// Credentials are optional. A missing password makes the flow wait for browser autofill.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) HasEmail() bool    { return c.Email != "" }
func (c Credentials) HasPassword() bool { return c.Password != "" }

// LoadCredentials reads UOG_EMAIL and UOG_PASSWORD after loading the given
// .env files (".env" when none are given). Missing files are not an error and
// variables already set in the environment win.
func LoadCredentials(files ...string) (Credentials, error) {
	var loadErr error
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		loadErr = err
	}
	return Credentials{
		Email:    strings.TrimSpace(os.Getenv(EmailEnv)),
		Password: strings.TrimSpace(os.Getenv(PasswordEnv)),
	}, loadErr
}
