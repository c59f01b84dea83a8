package sender

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/templates"
)

// SESService is the slice of the SES client the email sender uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender renders the type's template and sends it through SES.
type EmailSender struct {
	client    SESService
	templates *templates.Registry
	from      string
}

func NewEmailSender(client SESService, reg *templates.Registry, from string) *EmailSender {
	return &EmailSender{client: client, templates: reg, from: from}
}

func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send fails with domain.ErrTemplateNotFound before touching SES when the
// type has no template.
func (s *EmailSender) Send(ctx context.Context, c domain.Contact, job *domain.Job) error {
	html, text, err := s.templates.RenderEmail(job.Type, job.Data)
	if err != nil {
		return err
	}

	_, err = s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{c.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(s.templates.Subject(job.Type)), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return transportErr("ses send email", err)
	}
	return nil
}

var _ Sender = (*EmailSender)(nil)
