package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-labs/issue-tracker/internal/config"
)

func configured() config.SMTPConfig {
	return config.SMTPConfig{Host: "smtp.example.com", Port: "587", From: "noreply@example.com", FromName: "Issue Tracker"}
}

func TestRenderIssueAssigned(t *testing.T) {
	svc := NewService(configured())
	body, err := svc.RenderIssueAssigned(IssueAssigned{
		RecipientName: "Jane Doe",
		Issue:         "Broken light",
		Description:   "Corridor B",
		Address:       "Block 4",
		Signature:     "UAIMS HR",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dear Jane Doe,\n\nYou have been assigned a new issue:\n\nIssue: Broken light\nDescription: Corridor B\nAddress: Block 4\n\nPlease address this issue as soon as possible.\n\nThank you,\nUAIMS HR", body)
}

func TestSendIssueAssigned(t *testing.T) {
	svc := NewService(configured())
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := svc.SendIssueAssigned(context.Background(), "jdoe@example.com", IssueAssigned{RecipientName: "Jane", Issue: "Leak"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"jdoe@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: New Issue Assigned\r\n")
	assert.Contains(t, string(gotMsg), "From: Issue Tracker <noreply@example.com>\r\n")
	assert.Contains(t, string(gotMsg), "Issue: Leak\r\n")
}

func TestSendFailures(t *testing.T) {
	assert.ErrorIs(t, NewService(config.SMTPConfig{}).SendText(context.Background(), []string{"a@b.c"}, "s", "b"), ErrNotConfigured)

	svc := NewService(configured())
	boom := errors.New("dial failed")
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	assert.ErrorIs(t, svc.SendText(context.Background(), []string{"a@b.c"}, "s", "b"), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendText(ctx, []string{"a@b.c"}, "s", "b"), context.Canceled)
}
