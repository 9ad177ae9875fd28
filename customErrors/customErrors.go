package customErrors

import (
	"errors"
	"fmt"
)

const (
	ErrNotFound      = "NOT FOUND"
	ErrInvalidInput  = "INVALID INPUT"
	ErrAuth          = "UNAUTHORIZED"
	ErrAccessDenied  = "ACCESS DENIED"
	ErrConflict      = "CONFLICT"
	ErrInternal      = "INTERNAL"
	ErrMalformedDate = "MALFORMED DATE"
	ErrUnavailable   = "STORAGE UNAVAILABLE"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first ErrorResponse in err's chain,
// or ErrInternal when there is none.
func CodeOf(err error) string {
	var appErr ErrorResponse
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var appErr ErrorResponse
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong, try again later."
}

func HasCode(err error, code string) bool {
	var appErr ErrorResponse
	return errors.As(err, &appErr) && appErr.Code == code
}
