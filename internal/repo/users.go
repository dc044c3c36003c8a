package repo

import (
	"context"
	"database/sql"

	"guildhall/internal/domain"
)

const userColumns = `id,name,COALESCE(photo_url,'') AS photo_url,email,title,COALESCE(password_hash,'') AS password_hash,role,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.PhotoURL, &u.Email, &u.Title, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,name,photo_url,email,title,password_hash,role,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, nullable(u.PhotoURL), u.Email, u.Title, nullable(u.PasswordHash), u.Role, u.CreatedAt, u.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r Repo) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.PhotoURL, &u.Email, &u.Title, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UpsertSkillGrant inserts or updates a user's proficiency for a skill.
// The (user, skill) pair is the identity; re-granting never duplicates.
func (r Repo) UpsertSkillGrant(ctx context.Context, g domain.SkillGrant) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO user_skills(user_id,skill_id,proficiency,created_at,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(user_id,skill_id) DO UPDATE SET proficiency=excluded.proficiency, updated_at=excluded.updated_at`,
		g.UserID, g.SkillID, g.Proficiency, g.CreatedAt, g.UpdatedAt)
	return TranslateConstraint(err)
}

func (r Repo) DeleteSkillGrant(ctx context.Context, userID, skillID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM user_skills WHERE user_id=? AND skill_id=?`, userID, skillID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantWithSkill is a skill grant joined with its skill row, for profile views.
type GrantWithSkill struct {
	Skill       domain.Skill
	Proficiency domain.Proficiency
}

func (r Repo) ListSkillGrants(ctx context.Context, userID string) ([]GrantWithSkill, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT s.id, s.name, s.created_at, s.updated_at, us.proficiency
FROM user_skills us JOIN skills s ON s.id=us.skill_id
WHERE us.user_id=? ORDER BY s.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []GrantWithSkill
	for rows.Next() {
		var g GrantWithSkill
		if err := rows.Scan(&g.Skill.ID, &g.Skill.Name, &g.Skill.CreatedAt, &g.Skill.UpdatedAt, &g.Proficiency); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// SkillMatch is a user surfaced by skill search, with the matching grant.
type SkillMatch struct {
	User        domain.User
	Skill       domain.Skill
	Proficiency domain.Proficiency
}

// SearchUsersBySkill finds users holding a skill whose name contains the
// given substring (case-insensitive) at a proficiency at or above the floor.
func (r Repo) SearchUsersBySkill(ctx context.Context, skillSubstring string, minimum domain.Proficiency) ([]SkillMatch, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT u.id, u.name, COALESCE(u.photo_url,''), u.email, u.title, COALESCE(u.password_hash,''), u.role, u.created_at, u.updated_at,
s.id, s.name, s.created_at, s.updated_at, us.proficiency
FROM user_skills us
JOIN users u ON u.id=us.user_id
JOIN skills s ON s.id=us.skill_id
WHERE s.name LIKE '%' || ? || '%' COLLATE NOCASE
AND (CASE us.proficiency
     WHEN 'Beginner' THEN 1 WHEN 'Intermediate' THEN 2
     WHEN 'Advanced' THEN 3 WHEN 'Expert' THEN 4 ELSE 0 END) >= ?
ORDER BY u.name ASC, s.name ASC`, skillSubstring, domain.ProficiencyRank(minimum))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SkillMatch
	for rows.Next() {
		var m SkillMatch
		if err := rows.Scan(&m.User.ID, &m.User.Name, &m.User.PhotoURL, &m.User.Email, &m.User.Title, &m.User.PasswordHash, &m.User.Role, &m.User.CreatedAt, &m.User.UpdatedAt,
			&m.Skill.ID, &m.Skill.Name, &m.Skill.CreatedAt, &m.Skill.UpdatedAt, &m.Proficiency); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
