package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/config"
	"github.com/helpdesk-labs/issue-tracker/internal/email"
	"github.com/helpdesk-labs/issue-tracker/internal/events"
)

// IssueMailer sends the new-issue mail.
type IssueMailer interface {
	IsConfigured() bool
	SendIssueAssigned(ctx context.Context, to string, data email.IssueAssigned) error
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     IssueMailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer IssueMailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueAcknowledged, n.logTransition)
	n.dispatcher.Subscribe(events.EventIssueCompleted, n.logTransition)
	n.dispatcher.Subscribe(events.EventIssueReopened, n.logTransition)
}

func (n *NotificationService) handleIssueCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if n.mailer == nil || !n.mailer.IsConfigured() {
		n.logger.Info("issue mail skipped, smtp not configured",
			zap.Int64("issue_id", event.IssueID),
			zap.String("recipient", payload.RecipientID))
		return nil
	}

	description := ""
	if payload.Description != nil {
		description = *payload.Description
	}
	err := n.mailer.SendIssueAssigned(ctx, payload.RecipientEmail, email.IssueAssigned{
		RecipientName: payload.RecipientName,
		Issue:         payload.Issue,
		Description:   description,
		Address:       payload.Address,
		Signature:     n.cfg.Signature,
	})
	if err != nil {
		return fmt.Errorf("mail issue %d to %s: %w", event.IssueID, payload.RecipientID, err)
	}
	n.logger.Info("issue mail sent", zap.Int64("issue_id", event.IssueID), zap.String("recipient", payload.RecipientID))
	return nil
}

func (n *NotificationService) logTransition(_ context.Context, event events.Event) error {
	n.logger.Info("issue transition",
		zap.String("event_type", string(event.Type)),
		zap.Int64("issue_id", event.IssueID),
		zap.String("actor", event.ActorID))
	return nil
}
