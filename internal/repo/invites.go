package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

const inviteColumns = `id,mission_role_id,invited_user_id,inviting_user_id,status,created_at,updated_at`

func scanInvite(scan func(dest ...any) error) (domain.MissionInvite, error) {
	var iv domain.MissionInvite
	err := scan(&iv.ID, &iv.MissionRoleID, &iv.InvitedUserID, &iv.InvitingUserID, &iv.Status, &iv.CreatedAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		return iv, ErrNotFound
	}
	return iv, err
}

// InsertInviteTx relies on the partial unique index over pending invites:
// a second pending invite for the same (role, user) comes back as ErrConflict.
func (r Repo) InsertInviteTx(ctx context.Context, tx *sql.Tx, iv domain.MissionInvite) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO mission_invites(id,mission_role_id,invited_user_id,inviting_user_id,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		iv.ID, iv.MissionRoleID, iv.InvitedUserID, iv.InvitingUserID, iv.Status, iv.CreatedAt, iv.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetInvite(ctx context.Context, id string) (domain.MissionInvite, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM mission_invites WHERE id=?`, id)
	return scanInvite(row.Scan)
}

func (r Repo) ListInvitesForUser(ctx context.Context, invitedUserID string) ([]domain.MissionInvite, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+inviteColumns+` FROM mission_invites WHERE invited_user_id=? ORDER BY created_at DESC, id DESC`, invitedUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MissionInvite
	for rows.Next() {
		iv, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, rows.Err()
}

// UpdateInviteStatusTx resolves a pending invite. The Pending guard makes
// the transition single-shot at the store level: a concurrently resolved
// invite comes back as ErrConflict instead of being rewritten.
func (r Repo) UpdateInviteStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.InviteStatus, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE mission_invites SET status=?, updated_at=? WHERE id=? AND status='Pending'`, status, now, id)
	if err != nil {
		return TranslateConstraint(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}
