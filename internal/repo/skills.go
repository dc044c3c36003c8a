package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

func (r Repo) InsertSkill(ctx context.Context, s domain.Skill) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO skills(id,name,created_at,updated_at) VALUES (?,?,?,?)`,
		s.ID, s.Name, s.CreatedAt, s.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetSkill(ctx context.Context, id string) (domain.Skill, error) {
	var s domain.Skill
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at,updated_at FROM skills WHERE id=?`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListSkills(ctx context.Context) ([]domain.Skill, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at,updated_at FROM skills ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Skill
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
