package auth

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
)

const (
	MAX_LENGTH_USERNAME = 30
	MIN_PASSWORD_LENGTH = 6
	MAX_PASSWORD_LENGTH = 72
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)

type User struct {
	Username       string
	PasswordHashed string
	JoinDate       time.Time
	IsAdmin        bool
}

func (u User) Principal() Principal {
	return Principal{Username: u.Username, IsAdmin: u.IsAdmin}
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	Username string
	IsAdmin  bool
}

type NewUser struct {
	UserName      string
	PasswordPlain string
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (newUser NewUser) ValidateUserFields() error {
	username := NormalizeUsername(newUser.UserName)
	if username == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Username cannot be empty!",
		}
	}
	if len(username) > MAX_LENGTH_USERNAME {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Username so long, maximum length is %d", MAX_LENGTH_USERNAME),
		}
	}
	if !usernameRegex.MatchString(username) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Username contains wrong characters, example username: john_doe",
		}
	}
	return ValidatePassword(newUser.PasswordPlain)
}

func ValidatePassword(password string) error {
	if password == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Password cannot be empty!",
		}
	}
	if len(password) < MIN_PASSWORD_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Password so short, minimum length is %d", MIN_PASSWORD_LENGTH),
		}
	}
	if len(password) > MAX_PASSWORD_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Password so long, maximum length is %d", MAX_PASSWORD_LENGTH),
		}
	}
	return nil
}

type Session struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	Username  string
}

type UserCredentialsPure struct {
	UserName      string
	PasswordPlain string
}

func (c UserCredentialsPure) Validate() error {
	if strings.TrimSpace(c.UserName) == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Username cannot be empty!",
		}
	}
	if c.PasswordPlain == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Password cannot be empty!",
		}
	}
	return nil
}
