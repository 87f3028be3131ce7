package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of the SES client the email service calls
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES, region=%s from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

const emailLayout = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #6c5ce7; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #6c5ce7; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
%s
		</div>
		<div class="footer">
			<p>This is an automated email from ReadQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`

// SendWelcomeEmail sends a welcome email to a new account
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string, parent bool) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to ReadQuest!"
	next := "Record yourself reading aloud to earn points, diamonds and badges."
	if parent {
		next = "Create a link code to connect your child's account, then set reading assignments and listen to their recordings."
	}

	content := fmt.Sprintf(`			<p>Hi %s,</p>
			<p>Thanks for joining ReadQuest!</p>
			<p>%s</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Get Started</a>
			</p>`, html.EscapeString(toName), html.EscapeString(next), s.appBaseURL)
	htmlBody := fmt.Sprintf(emailLayout, "Welcome to ReadQuest!", content)

	textBody := fmt.Sprintf(`Hi %s,

Thanks for joining ReadQuest!

%s

Get started: %s

---
This is an automated email from ReadQuest. Please do not reply.
`, toName, next, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendAssignmentCompletedEmail tells a parent that a child finished an assignment
func (s *EmailService) SendAssignmentCompletedEmail(ctx context.Context, toEmail, parentName, studentName, bookTitle string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): assignment completed to %s", toEmail)
		return nil
	}

	subject := fmt.Sprintf("%s finished reading %s", studentName, bookTitle)
	content := fmt.Sprintf(`			<p>Hi %s,</p>
			<p><strong>%s</strong> just completed the reading assignment <em>%s</em>.</p>
			<p>Listen to the recording and leave a rating and some feedback.</p>
			<p style="text-align: center;">
				<a href="%s/parent/assignments" class="button">Review Recording</a>
			</p>`,
		html.EscapeString(parentName), html.EscapeString(studentName), html.EscapeString(bookTitle), s.appBaseURL)
	htmlBody := fmt.Sprintf(emailLayout, "Assignment Completed", content)

	textBody := fmt.Sprintf(`Hi %s,

%s just completed the reading assignment "%s".

Listen to the recording and leave a rating and some feedback:
%s/parent/assignments

---
This is an automated email from ReadQuest. Please do not reply.
`, parentName, studentName, bookTitle, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] Sending email: from=%s to=%s subject=%s", fromAddress, toEmail, subject)
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

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
