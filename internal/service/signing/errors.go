package signing

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the signing service layer.
var (
	ErrPetitionNotFound   = errors.New("petition not found")
	ErrSignatureNotFound  = errors.New("signature not found")
	ErrDisposableEmail    = errors.New("disposable email addresses are not allowed")
	ErrBotCheckFailed     = errors.New("bot check failed")
	ErrRateLimited        = errors.New("too many signing attempts, try again later")
	ErrInvalidToken       = errors.New("invalid confirmation token")
	ErrExpiredToken       = errors.New("confirmation token has expired")
	ErrConfirmFailed      = errors.New("could not confirm signature")
	ErrNoPendingSignature = errors.New("no pending signature for this email")
)

// AlreadySignedError reports a duplicate signing attempt. Identifier names
// the conflicting contact method ("phone number" or "email address") so the
// response can tell the signer which one is already on file.
type AlreadySignedError struct {
	Identifier string
}

func (e *AlreadySignedError) Error() string {
	return fmt.Sprintf("%s already signed this petition", e.Identifier)
}

// FieldError describes a single invalid submission field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail for a rejected submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}
