package errors

import (
	"errors"
	"strings"
)

// ErrNotConfigured marks an optional integration that has not been set up.
var ErrNotConfigured = errors.New("integration not configured")

// ErrValidation marks caller input that failed validation.
var ErrValidation = errors.New("validation failed")

// Message strips a leading sentinel prefix so the rest can be shown to users.
//
//	Message(fmt.Errorf("%w: Missing required fields", ErrValidation)) == "Missing required fields"
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrNotConfigured} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}
