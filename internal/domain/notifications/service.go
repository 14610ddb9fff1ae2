package notifications

import (
	"context"
	"log/slog"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from}
}

func ValidFilter(filter string) bool {
	return filter == "" || filter == FilterRead || filter == FilterUnread
}

func (s *Service) List(ctx context.Context, recipientID, filter string, limit, offset int) ([]Notification, int, error) {
	if !ValidFilter(filter) {
		return nil, 0, ierr.NewError("invalid notification filter").
			WithHint("status must be read or unread").
			Mark(ierr.ErrValidation)
	}
	total, err := s.store.Count(ctx, recipientID, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, recipientID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.store.Count(ctx, recipientID, FilterUnread)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	found, err := s.store.MarkRead(ctx, recipientID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return ierr.NewError("notification not found").
			WithHint("notification not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// Deliver e-mails committed notifications. Failures are logged and dropped.
func (s *Service) Deliver(ctx context.Context, outbound []Outbound) {
	if s == nil || s.Mailer == nil {
		return
	}
	for _, item := range outbound {
		if !item.Email {
			continue
		}
		n := item.Notification
		email, err := s.store.RecipientEmail(ctx, n.RecipientID)
		if err != nil {
			slog.Warn("notification email lookup failed", "recipient", n.RecipientID, "err", err)
			continue
		}
		if email == "" {
			continue
		}
		if err := s.Mailer.Send(ctx, s.DefaultFrom, email, n.Title, n.Message); err != nil {
			slog.Warn("notification email send failed", "recipient", n.RecipientID, "err", err)
		}
	}
}
