// Package ses delivers emails through Amazon SES v2.
package ses

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"

	"github.com/quantonganh/mailbus"
)

// Config holds the SES settings. Empty keys fall back to the default AWS
// credential chain.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
	Timeout   time.Duration
}

type gateway struct {
	client  *sesv2.Client
	from    string
	timeout time.Duration
}

// NewGateway loads the AWS configuration and returns a MailGateway
func NewGateway(ctx context.Context, config Config) (mailbus.MailGateway, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &gateway{
		client:  sesv2.NewFromConfig(cfg),
		from:    config.From,
		timeout: config.Timeout,
	}, nil
}

func (g *gateway) Send(ctx context.Context, email *mailbus.Email) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(g.from),
		Destination:      &types.Destination{ToAddresses: []string{email.To.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(email.HTMLBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(email.TextBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if _, err := g.client.SendEmail(ctx, input); err != nil {
		return &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  errors.Wrapf(err, "ses: failed to send mail to %s", email.To),
		}
	}

	return nil
}
