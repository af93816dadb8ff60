package domain

import "time"

// EmailTemplate identifies which transactional email was attempted.
type EmailTemplate string

const (
	TemplateConfirm  EmailTemplate = "confirm"
	TemplateThankYou EmailTemplate = "thank_you"
)

// EmailLog is a write-only audit record of a notification attempt. It is
// used for operational debugging, never for control flow.
type EmailLog struct {
	ID       string            `json:"id" db:"id"`
	ToEmail  string            `json:"to_email" db:"to_email"`
	Template EmailTemplate     `json:"template" db:"template"`
	Meta     map[string]string `json:"meta,omitempty" db:"meta"`
	Success  bool              `json:"success" db:"success"`
	Error    string            `json:"error,omitempty" db:"error"`
	SentAt   time.Time         `json:"sent_at" db:"sent_at"`
}
