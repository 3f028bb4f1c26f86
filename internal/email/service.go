// Package email sends notification mail over SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/helpdesk-labs/issue-tracker/internal/config"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("email not configured")

// IssueAssignedSubject is the subject of the new-issue mail.
const IssueAssignedSubject = "New Issue Assigned"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending.
type Service struct {
	cfg      config.SMTPConfig
	server   string
	auth     smtp.Auth
	send     sendFunc
	assigned *template.Template
}

// NewService creates a new email service.
func NewService(cfg config.SMTPConfig) *Service {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Service{
		cfg:      cfg,
		server:   cfg.Host + ":" + cfg.Port,
		auth:     auth,
		send:     smtp.SendMail,
		assigned: template.Must(template.New("issue_assigned").Parse(issueAssignedTemplate)),
	}
}

// IsConfigured returns true if email is configured.
func (s *Service) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.From != ""
}

// IssueAssigned holds the fields of the new-issue mail.
type IssueAssigned struct {
	RecipientName string
	Issue         string
	Description   string
	Address       string
	Signature     string
}

// SendIssueAssigned mails a department member about a newly routed issue.
func (s *Service) SendIssueAssigned(ctx context.Context, to string, data IssueAssigned) error {
	body, err := s.RenderIssueAssigned(data)
	if err != nil {
		return err
	}
	return s.SendText(ctx, []string{to}, IssueAssignedSubject, body)
}

// RenderIssueAssigned renders the plain-text body of the new-issue mail.
func (s *Service) RenderIssueAssigned(data IssueAssigned) (string, error) {
	var buf bytes.Buffer
	if err := s.assigned.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render issue assigned template: %w", err)
	}
	return buf.String(), nil
}

// SendText sends a plain text email. net/smtp has no context support, so ctx
// is only checked before dialing.
func (s *Service) SendText(ctx context.Context, to []string, subject, body string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		strings.ReplaceAll(body, "\n", "\r\n"),
	))

	if err := s.send(s.server, s.auth, s.cfg.From, to, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

const issueAssignedTemplate = `Dear {{.RecipientName}},

You have been assigned a new issue:

Issue: {{.Issue}}
Description: {{.Description}}
Address: {{.Address}}

Please address this issue as soon as possible.

Thank you,
{{.Signature}}`
