package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Writer appends notification rows inside the caller's transaction, so a
// notification exists exactly when the mutation it describes committed.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, userID, message, link string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications(id,user_id,message,link,is_read,created_at) VALUES (?,?,?,?,0,?)`,
		uuid.New().String(), userID, message, nullable(link), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
