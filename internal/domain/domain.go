package domain

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhotoURL     string `json:"photo_url,omitempty"`
	Title        string `json:"title"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type Skill struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// SkillGrant links a user to a skill at a proficiency. One grant per
// (user, skill) pair; re-granting updates the proficiency in place.
type SkillGrant struct {
	UserID      string      `json:"user_id"`
	SkillID     string      `json:"skill_id"`
	Proficiency Proficiency `json:"proficiency"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" format:"date-time"`
}

type Mission struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	LeadUserID  string        `json:"lead_user_id"`
	Status      MissionStatus `json:"status"`
	Budget      *float64      `json:"budget,omitempty"`
	StartDate   *string       `json:"start_date,omitempty" format:"date"`
	EndDate     *string       `json:"end_date,omitempty" format:"date"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
	UpdatedAt   string        `json:"updated_at" format:"date-time"`
}

// MissionRole is a single fillable slot on a mission. AssigneeUserID is nil
// until the slot is filled; at most one assignee at a time.
type MissionRole struct {
	ID                  string      `json:"id"`
	MissionID           string      `json:"mission_id"`
	RoleDescription     string      `json:"role_description"`
	SkillIDRequired     string      `json:"skill_id_required"`
	ProficiencyRequired Proficiency `json:"proficiency_required"`
	AssigneeUserID      *string     `json:"assignee_user_id,omitempty"`
	CreatedAt           string      `json:"created_at" format:"date-time"`
	UpdatedAt           string      `json:"updated_at" format:"date-time"`
}

type MissionPitch struct {
	ID        string      `json:"id"`
	MissionID string      `json:"mission_id"`
	UserID    string      `json:"user_id"`
	PitchText string      `json:"pitch_text"`
	Status    PitchStatus `json:"status"`
	CreatedAt string      `json:"created_at" format:"date-time"`
	UpdatedAt string      `json:"updated_at" format:"date-time"`
}

type MissionInvite struct {
	ID             string       `json:"id"`
	MissionRoleID  string       `json:"mission_role_id"`
	InvitedUserID  string       `json:"invited_user_id"`
	InvitingUserID string       `json:"inviting_user_id"`
	Status         InviteStatus `json:"status"`
	CreatedAt      string       `json:"created_at" format:"date-time"`
	UpdatedAt      string       `json:"updated_at" format:"date-time"`
}

type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
