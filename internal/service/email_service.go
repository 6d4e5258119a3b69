package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"speakwell/internal/models"
)

// sesClient is the part of the SES v2 client the service uses
type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends notification emails via Amazon SES
type EmailService struct {
	client     sesClient
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service. An empty fromEmail returns a
// disabled service that skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL), nil
}

func newEmailService(client sesClient, fromEmail, fromName, appBaseURL string) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		slog.Debug("skipping welcome email, service disabled", "to", toEmail)
		return nil
	}

	subject := "Welcome to Pronunciation Practice!"
	textBody := fmt.Sprintf(`Hi %s,

Your account is ready. Record yourself saying a word and you will get a
score, a grade and tips on the sounds to work on.

Get started: %s

---
This is an automated email. Please do not reply.
`, toName, s.appBaseURL)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Welcome, %s!</h1>
	<p>Your account is ready. Record yourself saying a word and you will get a score, a grade and tips on the sounds to work on.</p>
	<p><a href="%s">Start practicing</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>`, html.EscapeString(toName), html.EscapeString(s.appBaseURL))

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendFeedbackEmail tells a student their teacher reviewed a recording
func (s *EmailService) SendFeedbackEmail(ctx context.Context, toEmail, toName string, rec *models.Recording) error {
	if !s.IsEnabled() {
		slog.Debug("skipping feedback email, service disabled", "to", toEmail)
		return nil
	}

	grade := rec.TeacherGrade
	if grade == "" {
		grade = "not graded"
	}
	subject := fmt.Sprintf("New feedback on \"%s\"", rec.WordText)
	textBody := fmt.Sprintf(`Hi %s,

Your teacher reviewed your recording of "%s".

Grade: %s

%s

See all your feedback: %s

---
This is an automated email. Please do not reply.
`, toName, rec.WordText, grade, rec.TeacherFeedback, s.appBaseURL)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>Your teacher reviewed your recording of <strong>%s</strong>.</p>
	<p>Grade: <strong>%s</strong></p>
	<blockquote>%s</blockquote>
	<p><a href="%s">See all your feedback</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>`,
		html.EscapeString(toName),
		html.EscapeString(rec.WordText),
		html.EscapeString(grade),
		html.EscapeString(rec.TeacherFeedback),
		html.EscapeString(s.appBaseURL),
	)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	slog.Info("email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
