package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

const pitchColumns = `id,mission_id,user_id,pitch_text,status,created_at,updated_at`

func scanPitch(scan func(dest ...any) error) (domain.MissionPitch, error) {
	var p domain.MissionPitch
	err := scan(&p.ID, &p.MissionID, &p.UserID, &p.PitchText, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// InsertPitchTx relies on the store's one-pitch-per-(mission,user) rule:
// a duplicate submission comes back as ErrConflict.
func (r Repo) InsertPitchTx(ctx context.Context, tx *sql.Tx, p domain.MissionPitch) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO mission_pitches(id,mission_id,user_id,pitch_text,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.MissionID, p.UserID, p.PitchText, p.Status, p.CreatedAt, p.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetPitch(ctx context.Context, id string) (domain.MissionPitch, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+pitchColumns+` FROM mission_pitches WHERE id=?`, id)
	return scanPitch(row.Scan)
}

func (r Repo) ListMissionPitches(ctx context.Context, missionID string) ([]domain.MissionPitch, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+pitchColumns+` FROM mission_pitches WHERE mission_id=? ORDER BY created_at ASC, id ASC`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MissionPitch
	for rows.Next() {
		p, err := scanPitch(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdatePitchStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.PitchStatus, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE mission_pitches SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActionItem is a mission the user leads that has pitches awaiting a decision.
type ActionItem struct {
	Mission        domain.Mission
	PendingPitches int
}

func (r Repo) ListActionItems(ctx context.Context, leadUserID string) ([]ActionItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT m.id, m.title, COALESCE(m.description,''), m.lead_user_id, m.status, m.budget, m.start_date, m.end_date, m.created_at, m.updated_at,
COUNT(p.id) AS pending
FROM missions m JOIN mission_pitches p ON p.mission_id = m.id AND p.status = 'Submitted'
WHERE m.lead_user_id = ?
GROUP BY m.id
ORDER BY m.created_at DESC, m.id DESC`, leadUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ActionItem
	for rows.Next() {
		var it ActionItem
		var budget sql.NullFloat64
		var startDate, endDate sql.NullString
		if err := rows.Scan(&it.Mission.ID, &it.Mission.Title, &it.Mission.Description, &it.Mission.LeadUserID, &it.Mission.Status,
			&budget, &startDate, &endDate, &it.Mission.CreatedAt, &it.Mission.UpdatedAt, &it.PendingPitches); err != nil {
			return nil, err
		}
		if budget.Valid {
			it.Mission.Budget = &budget.Float64
		}
		if startDate.Valid {
			it.Mission.StartDate = &startDate.String
		}
		if endDate.Valid {
			it.Mission.EndDate = &endDate.String
		}
		res = append(res, it)
	}
	return res, rows.Err()
}
