package voice

import (
	"context"
	"fmt"
	"time"

	"lending-core/internal/common/errors"
	"lending-core/internal/common/logger"
	"lending-core/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SESService abstracts the SES client for testing.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService abstracts the SNS client for testing.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NotifierConfig selects which channels are live and how messages are
// addressed.
type NotifierConfig struct {
	SESEnabled  bool
	FromEmail   string
	SNSEnabled  bool
	SMSSenderID string
}

const notifyRetryDelay = 250 * time.Millisecond

// Notifier fans a new-voicemail alert out to a mailbox's recipients.
// Delivery is best effort: a send that still fails after its retry
// budget is logged and counted but never fails the call flow that
// triggered it.
type Notifier struct {
	config     NotifierConfig
	directory  *Directory
	sesClient  SESService
	snsClient  SNSService
	retryDelay time.Duration
	logger     logger.Logger
}

func NewNotifier(config NotifierConfig, directory *Directory, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config:     config,
		directory:  directory,
		sesClient:  sesClient,
		snsClient:  snsClient,
		retryDelay: notifyRetryDelay,
		logger:     log,
	}
}

// sendWithRetry drives one channel delivery through the retry budget
// for NOTIFICATION_SEND_FAILED. The terminal failure comes back as a
// structured error carrying the channel and the last provider error.
func (n *Notifier) sendWithRetry(ctx context.Context, channel string, send func() error) error {
	attempts := 1 + errors.GetRetryCount(errors.ErrCodeNotificationSendFailed)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = send(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.NewNotificationSendFailedError(channel, ctx.Err())
		case <-time.After(n.retryDelay):
		}
	}
	return errors.NewNotificationSendFailedError(channel, lastErr)
}

// NotifyMailbox alerts every recipient of the mailbox that received vm.
// Recipients with a phone get an SMS, recipients with an email get an
// email; a recipient with both gets both.
func (n *Notifier) NotifyMailbox(ctx context.Context, mailboxID string, vm Voicemail) {
	recipients, err := n.directory.Recipients(mailboxID)
	if err != nil {
		n.logger.Warn("Skipping notifications for unknown mailbox", map[string]interface{}{
			"mailbox_id": mailboxID,
			"error":      err.Error(),
		})
		return
	}

	mailbox, err := n.directory.Mailbox(mailboxID)
	if err != nil {
		return
	}

	for _, recipient := range recipients {
		if recipient.Phone != "" && n.config.SNSEnabled && n.snsClient != nil {
			n.sendSMS(ctx, recipient, mailbox.Label, vm)
		}
		if recipient.Email != "" && n.config.SESEnabled && n.sesClient != nil {
			n.sendEmail(ctx, recipient, mailbox.Label, vm)
		}
	}
}

func (n *Notifier) sendSMS(ctx context.Context, recipient User, mailboxLabel string, vm Voicemail) {
	message := fmt.Sprintf("New voicemail for %s from %s (%ds). Listen: %s",
		mailboxLabel, vm.From, vm.DurationSec, vm.RecordingURL)

	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient.Phone),
		Message:     aws.String(message),
	}
	if n.config.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.config.SMSSenderID),
			},
		}
	}

	err := n.sendWithRetry(ctx, "sms", func() error {
		_, err := n.snsClient.Publish(ctx, input)
		return err
	})
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues("sms").Inc()
		n.logger.Error("Failed to send voicemail SMS", map[string]interface{}{
			"user_id":    recipient.ID,
			"mailbox_id": vm.MailboxID,
			"error":      err.Error(),
		})
		return
	}

	metrics.NotificationsSent.WithLabelValues("sms").Inc()
	n.logger.Info("Voicemail SMS sent", map[string]interface{}{
		"user_id":    recipient.ID,
		"mailbox_id": vm.MailboxID,
	})
}

func (n *Notifier) sendEmail(ctx context.Context, recipient User, mailboxLabel string, vm Voicemail) {
	subject := fmt.Sprintf("New voicemail for %s", mailboxLabel)
	body := fmt.Sprintf(
		"Hi %s,\n\nA new voicemail was left for %s.\n\nFrom: %s\nDuration: %d seconds\nReceived: %s\nRecording: %s\n",
		recipient.Name, mailboxLabel, vm.From, vm.DurationSec,
		vm.CreatedAt.Format("Jan 2, 2006 3:04 PM MST"), vm.RecordingURL)

	input := &ses.SendEmailInput{
		Source: aws.String(n.config.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{recipient.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	}

	err := n.sendWithRetry(ctx, "email", func() error {
		_, err := n.sesClient.SendEmail(ctx, input)
		return err
	})
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues("email").Inc()
		n.logger.Error("Failed to send voicemail email", map[string]interface{}{
			"user_id":    recipient.ID,
			"mailbox_id": vm.MailboxID,
			"error":      err.Error(),
		})
		return
	}

	metrics.NotificationsSent.WithLabelValues("email").Inc()
	n.logger.Info("Voicemail email sent", map[string]interface{}{
		"user_id":    recipient.ID,
		"mailbox_id": vm.MailboxID,
	})
}
