// Package notify sends transactional email through AWS SES v2 and records
// every attempt in the email audit log.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/petitions-api/internal/config"
	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/metrics"
)

// AuditLog receives one record per send attempt, success or failure.
type AuditLog interface {
	Log(ctx context.Context, e *domain.EmailLog) error
}

// sesAPI is the slice of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier implements signing.Notifier on AWS SES v2.
type SESNotifier struct {
	client      sesAPI
	from        string
	frontendURL string
	audit       AuditLog
}

// NewSESNotifier creates an SES v2 sender with static credentials.
func NewSESNotifier(ctx context.Context, cfg appconfig.EmailConfig, frontendURL string, audit AuditLog) (*SESNotifier, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESNotifier{
		client:      sesv2.NewFromConfig(awsCfg),
		from:        cfg.From,
		frontendURL: frontendURL,
		audit:       audit,
	}, nil
}

// SendConfirmation emails the signer their single-use confirmation link.
func (n *SESNotifier) SendConfirmation(ctx context.Context, email, name, petitionSlug, token string) error {
	confirmURL := fmt.Sprintf("%s/api/confirm?token=%s", n.frontendURL, token)
	tmpl := confirmationTemplate(name, confirmURL)

	err := n.send(ctx, email, tmpl)
	n.logAttempt(ctx, email, domain.TemplateConfirm, map[string]string{
		"petition_slug": petitionSlug,
	}, err)
	return err
}

// SendThankYou emails the signer after their signature is confirmed.
func (n *SESNotifier) SendThankYou(ctx context.Context, email, name, petitionSlug string) error {
	tmpl := thankYouTemplate(name)

	err := n.send(ctx, email, tmpl)
	n.logAttempt(ctx, email, domain.TemplateThankYou, map[string]string{
		"petition_slug": petitionSlug,
	}, err)
	return err
}

func (n *SESNotifier) send(ctx context.Context, to string, tmpl emailTemplate) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(tmpl.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(tmpl.HTML)},
					Text: &types.Content{Data: aws.String(tmpl.Text)},
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// logAttempt writes the audit row and bumps counters. Audit failures are
// logged and swallowed; they must never mask the send outcome.
func (n *SESNotifier) logAttempt(ctx context.Context, to string, template domain.EmailTemplate, meta map[string]string, sendErr error) {
	if sendErr != nil {
		metrics.EmailsFailedTotal.WithLabelValues(string(template)).Inc()
	} else {
		metrics.EmailsSentTotal.WithLabelValues(string(template)).Inc()
	}

	if n.audit == nil {
		return
	}
	entry := &domain.EmailLog{
		ToEmail:  to,
		Template: template,
		Meta:     meta,
		Success:  sendErr == nil,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := n.audit.Log(ctx, entry); err != nil {
		log.Printf("[notify] email audit write failed: %v", err)
	}
}
