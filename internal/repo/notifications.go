package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

func (r Repo) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,message,COALESCE(link,''),is_read,created_at
FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	var n domain.Notification
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,message,COALESCE(link,''),is_read,created_at FROM notifications WHERE id=?`, id).
		Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

// MarkNotificationRead flips is_read for a notification owned by userID.
// A notification belonging to someone else is indistinguishable from one
// that does not exist. Marking an already-read notification is a no-op.
func (r Repo) MarkNotificationRead(ctx context.Context, id, userID string) (domain.Notification, error) {
	_, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return domain.Notification{}, err
	}
	var n domain.Notification
	err = r.DB.QueryRowContext(ctx, `SELECT id,user_id,message,COALESCE(link,''),is_read,created_at FROM notifications WHERE id=? AND user_id=?`, id, userID).
		Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}
