package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

const missionColumns = `id,title,COALESCE(description,'') AS description,lead_user_id,status,budget,start_date,end_date,created_at,updated_at`

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var budget sql.NullFloat64
	var startDate, endDate sql.NullString
	err := scan(&m.ID, &m.Title, &m.Description, &m.LeadUserID, &m.Status, &budget, &startDate, &endDate, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if budget.Valid {
		m.Budget = &budget.Float64
	}
	if startDate.Valid {
		m.StartDate = &startDate.String
	}
	if endDate.Valid {
		m.EndDate = &endDate.String
	}
	return m, nil
}

func (r Repo) InsertMissionTx(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,title,description,lead_user_id,status,budget,start_date,end_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, nullable(m.Description), m.LeadUserID, m.Status, nullableFloatPtr(m.Budget), nullableStringPtr(m.StartDate), nullableStringPtr(m.EndDate), m.CreatedAt, m.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id)
	return scanMission(row.Scan)
}

func (r Repo) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) UpdateMissionStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.MissionStatus, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const roleColumns = `id,mission_id,role_description,skill_id_required,proficiency_required,assignee_user_id,created_at,updated_at`

func scanRole(scan func(dest ...any) error) (domain.MissionRole, error) {
	var mr domain.MissionRole
	var assignee sql.NullString
	err := scan(&mr.ID, &mr.MissionID, &mr.RoleDescription, &mr.SkillIDRequired, &mr.ProficiencyRequired, &assignee, &mr.CreatedAt, &mr.UpdatedAt)
	if err == sql.ErrNoRows {
		return mr, ErrNotFound
	}
	if err != nil {
		return mr, err
	}
	if assignee.Valid {
		mr.AssigneeUserID = &assignee.String
	}
	return mr, nil
}

func (r Repo) InsertMissionRoleTx(ctx context.Context, tx *sql.Tx, mr domain.MissionRole) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO mission_roles(id,mission_id,role_description,skill_id_required,proficiency_required,assignee_user_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		mr.ID, mr.MissionID, mr.RoleDescription, mr.SkillIDRequired, mr.ProficiencyRequired, nullableStringPtr(mr.AssigneeUserID), mr.CreatedAt, mr.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetMissionRole(ctx context.Context, id string) (domain.MissionRole, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM mission_roles WHERE id=?`, id)
	return scanRole(row.Scan)
}

// GetMissionRoleTx reads a role inside the caller's transaction. Role-filling
// writes re-read the assignee through this immediately before mutating, so
// the free-slot check and the write are atomic against concurrent fills.
func (r Repo) GetMissionRoleTx(ctx context.Context, tx *sql.Tx, id string) (domain.MissionRole, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM mission_roles WHERE id=?`, id)
	return scanRole(row.Scan)
}

func (r Repo) ListMissionRoles(ctx context.Context, missionID string) ([]domain.MissionRole, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+roleColumns+` FROM mission_roles WHERE mission_id=? ORDER BY created_at ASC, id ASC`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MissionRole
	for rows.Next() {
		mr, err := scanRole(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, mr)
	}
	return res, rows.Err()
}

func (r Repo) SetRoleAssigneeTx(ctx context.Context, tx *sql.Tx, roleID string, userID *string, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE mission_roles SET assignee_user_id=?, updated_at=? WHERE id=?`,
		nullableStringPtr(userID), now, roleID)
	if err != nil {
		return TranslateConstraint(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
