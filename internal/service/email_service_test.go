package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabled(t *testing.T) {
	s, err := NewEmailService("us-east-1", "", "ReadQuest", "http://localhost", false)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if s.IsEnabled() {
		t.Error("service without sender address should be disabled")
	}
	if err := s.SendAssignmentCompletedEmail(context.Background(), "p@example.com", "Pat", "Sam", "Matilda"); err != nil {
		t.Errorf("disabled send should be a no-op, got %v", err)
	}
}

func TestSendAssignmentCompletedEmail(t *testing.T) {
	fake := &fakeSES{}
	s := &EmailService{client: fake, fromEmail: "noreply@example.com", fromName: "ReadQuest", appBaseURL: "https://app.example.com", enabled: true}

	err := s.SendAssignmentCompletedEmail(context.Background(), "parent@example.com", "Pat", "<Sam>", "Matilda")
	if err != nil {
		t.Fatalf("SendAssignmentCompletedEmail() error = %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("SendEmail called %d times, want 1", len(fake.inputs))
	}

	in := fake.inputs[0]
	if got := aws.ToString(in.FromEmailAddress); got != "ReadQuest <noreply@example.com>" {
		t.Errorf("from = %q", got)
	}
	if in.Destination.ToAddresses[0] != "parent@example.com" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	body := aws.ToString(in.Content.Simple.Body.Html.Data)
	if strings.Contains(body, "<Sam>") || !strings.Contains(body, "&lt;Sam&gt;") {
		t.Error("student name should be escaped in the HTML body")
	}
	if !strings.Contains(body, "https://app.example.com/parent/assignments") {
		t.Error("HTML body should link to the review page")
	}
}

func TestSendEmailError(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	s := &EmailService{client: fake, fromEmail: "noreply@example.com", enabled: true}

	err := s.SendWelcomeEmail(context.Background(), "kid@example.com", "Sam", false)
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Errorf("SendWelcomeEmail() error = %v, want wrapped throttled", err)
	}
}
