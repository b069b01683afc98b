package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go-form-editor/internal/content"
	"go-form-editor/internal/event"
	"go-form-editor/internal/model"
)

// QueuedNotification is the payload of a notification.queued event.
type QueuedNotification struct {
	NotificationID string `json:"notification_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
}

// NotificationService renders form notifications and hands them to the event
// bus. Delivery happens in Dispatch, outside the submitting request.
type NotificationService struct {
	bus    event.Bus
	logger *slog.Logger
}

func NewNotificationService(bus event.Bus, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{bus: bus, logger: logger.With("component", "notifications")}
}

func (s *NotificationService) Notify(ctx context.Context, form *model.Form, entry *model.Entry, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := strings.TrimSpace(content.ReplaceVariables(n.To, form, entry))
	if to == "" {
		return fmt.Errorf("notification %q: %w", n.ID, model.ErrInvalidInput)
	}

	payload := QueuedNotification{
		NotificationID: n.ID,
		To:             to,
		Subject:        content.ReplaceVariables(n.Subject, form, entry),
		Message:        content.ReplaceVariables(n.Message, form, entry),
	}

	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeNotificationQueued, form.ID, entry.ID, entry.CreatedBy, payload))
	}
	return nil
}

// Dispatch consumes queued notifications until ctx is done. Messages are
// logged; an outgoing mail transport is not configured.
func (s *NotificationService) Dispatch(ctx context.Context) {
	if s.bus == nil {
		return
	}

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != event.TypeNotificationQueued {
				continue
			}
			queued, _ := e.Payload.(QueuedNotification)
			s.logger.Info("notification dispatched",
				"form_id", e.FormID,
				"entry_id", e.EntryID,
				"notification", queued.NotificationID,
				"to", queued.To,
				"subject", queued.Subject)
		}
	}
}
