package notifications

import (
	"context"
	"fmt"
)

func (s *Store) Create(ctx context.Context, n Notification) (Notification, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO notifications (recipient_id, title, message, related_record_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id, is_read, created_at
  `, n.RecipientID, n.Title, n.Message, n.RelatedRecordID).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (s *Store) List(ctx context.Context, recipientID, filter string, limit, offset int) ([]Notification, error) {
	where, args := filterClause(recipientID, filter)
	query := fmt.Sprintf(`
    SELECT id, recipient_id, title, message, is_read, related_record_id::text, created_at
    FROM notifications
    %s
    ORDER BY created_at DESC
    LIMIT $%d OFFSET $%d
  `, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.IsRead, &n.RelatedRecordID, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, recipientID, filter string) (int, error) {
	where, args := filterClause(recipientID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications "+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MarkRead reports whether the notification exists for the recipient.
// Marking an already read notification succeeds.
func (s *Store) MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET is_read = true
    WHERE recipient_id::text = $1 AND id::text = $2
  `, recipientID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RecipientEmail(ctx context.Context, recipientID string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT email FROM employees WHERE id::text = $1", recipientID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func filterClause(recipientID, filter string) (string, []any) {
	where := "WHERE recipient_id::text = $1"
	switch filter {
	case FilterRead:
		where += " AND is_read = true"
	case FilterUnread:
		where += " AND is_read = false"
	}
	return where, []any{recipientID}
}
