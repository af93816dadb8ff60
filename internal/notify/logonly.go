package notify

import (
	"context"
	"log"
)

// LogNotifier writes email content to the process log instead of sending it.
// Used in development when SES credentials are not configured, so the
// confirmation link is still visible to the developer.
type LogNotifier struct {
	frontendURL string
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(frontendURL string) *LogNotifier {
	return &LogNotifier{frontendURL: frontendURL}
}

func (n *LogNotifier) SendConfirmation(_ context.Context, email, name, petitionSlug, token string) error {
	log.Printf("[notify] (log-only) confirmation for %s <%s> petition=%s link=%s/api/confirm?token=%s",
		name, email, petitionSlug, n.frontendURL, token)
	return nil
}

func (n *LogNotifier) SendThankYou(_ context.Context, email, name, petitionSlug string) error {
	log.Printf("[notify] (log-only) thank-you for %s <%s> petition=%s", name, email, petitionSlug)
	return nil
}
