package sender

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/templates"
)

// SNSService is the slice of the SNS client used for SMS and push.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SMSSender struct {
	client    SNSService
	templates *templates.Registry
}

func NewSMSSender(client SNSService, reg *templates.Registry) *SMSSender {
	return &SMSSender{client: client, templates: reg}
}

func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, c domain.Contact, job *domain.Job) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(c.Phone),
		Message:     aws.String(s.templates.SMS(job.Type, job.Data)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	if err != nil {
		return transportErr("sns publish sms", err)
	}
	return nil
}

var _ Sender = (*SMSSender)(nil)
