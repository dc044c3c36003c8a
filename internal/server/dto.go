package server

import (
	"guildhall/internal/domain"
	"guildhall/internal/engine"
	"guildhall/internal/repo"
)

// Request payloads

type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email" format:"email"`
	Title    string  `json:"title,omitempty"`
	Password string  `json:"password" minLength:"8"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type GrantSkillRequest struct {
	SkillID     string `json:"skill_id"`
	Proficiency string `json:"proficiency" enum:"Beginner,Intermediate,Advanced,Expert"`
}

type CreateSkillRequest struct {
	Name string `json:"name"`
}

type RoleSpecRequest struct {
	RoleDescription     string `json:"role_description"`
	SkillIDRequired     string `json:"skill_id_required"`
	ProficiencyRequired string `json:"proficiency_required" enum:"Beginner,Intermediate,Advanced,Expert"`
}

type CreateMissionRequest struct {
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Budget      *float64          `json:"budget,omitempty"`
	StartDate   *string           `json:"start_date,omitempty" format:"date"`
	EndDate     *string           `json:"end_date,omitempty" format:"date"`
	Roles       []RoleSpecRequest `json:"roles,omitempty"`
}

type SetMissionStatusRequest struct {
	Status string `json:"status" enum:"Proposed,Active,Completed"`
}

type DraftRequest struct {
	UserID string `json:"user_id"`
}

type CreatePitchRequest struct {
	PitchText string `json:"pitch_text"`
}

type DecidePitchRequest struct {
	Status string `json:"status" enum:"Accepted,Rejected"`
}

type CreateInviteRequest struct {
	MissionRoleID string `json:"mission_role_id"`
	InvitedUserID string `json:"invited_user_id"`
}

type RespondInviteRequest struct {
	Status string `json:"status" enum:"Accepted,Declined"`
}

// Response payloads

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	PhotoURL  string `json:"photo_url,omitempty"`
	Title     string `json:"title,omitempty"`
	Role      string `json:"role" enum:"Member,Manager,Admin"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type SkillResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SkillGrantResponse struct {
	Skill       SkillResponse `json:"skill"`
	Proficiency string        `json:"proficiency" enum:"Beginner,Intermediate,Advanced,Expert"`
}

type UserProfileResponse struct {
	UserResponse
	Skills []SkillGrantResponse `json:"skills"`
}

type SkillMatchResponse struct {
	User        UserResponse  `json:"user"`
	Skill       SkillResponse `json:"skill"`
	Proficiency string        `json:"proficiency"`
}

// MissionSummary is the flat mission shape used everywhere a mission is
// embedded in another payload; it never nests roles or pitches.
type MissionSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	LeadUserID  string   `json:"lead_user_id"`
	Status      string   `json:"status" enum:"Proposed,Active,Completed"`
	Budget      *float64 `json:"budget,omitempty"`
	StartDate   *string  `json:"start_date,omitempty" format:"date"`
	EndDate     *string  `json:"end_date,omitempty" format:"date"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

type MissionRoleResponse struct {
	ID                  string         `json:"id"`
	MissionID           string         `json:"mission_id"`
	RoleDescription     string         `json:"role_description"`
	SkillIDRequired     string         `json:"skill_id_required"`
	ProficiencyRequired string         `json:"proficiency_required" enum:"Beginner,Intermediate,Advanced,Expert"`
	AssigneeUserID      *string        `json:"assignee_user_id,omitempty"`
	Skill               *SkillResponse `json:"skill,omitempty"`
	Assignee            *UserResponse  `json:"assignee,omitempty"`
}

type PitchResponse struct {
	ID        string        `json:"id"`
	MissionID string        `json:"mission_id"`
	UserID    string        `json:"user_id"`
	PitchText string        `json:"pitch_text"`
	Status    string        `json:"status" enum:"Submitted,Accepted,Rejected"`
	CreatedAt string        `json:"created_at" format:"date-time"`
	User      *UserResponse `json:"user,omitempty"`
}

type MissionDetailResponse struct {
	MissionSummary
	Lead    UserResponse          `json:"lead"`
	Roles   []MissionRoleResponse `json:"roles"`
	Pitches []PitchResponse       `json:"pitches"`
}

type InviteResponse struct {
	ID             string `json:"id"`
	MissionRoleID  string `json:"mission_role_id"`
	InvitedUserID  string `json:"invited_user_id"`
	InvitingUserID string `json:"inviting_user_id"`
	Status         string `json:"status" enum:"Pending,Accepted,Declined"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

type NotificationResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ActionItemResponse struct {
	Mission        MissionSummary `json:"mission"`
	PendingPitches int            `json:"pending_pitches"`
}

// Mappers

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		PhotoURL:  u.PhotoURL,
		Title:     u.Title,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func mapUsers(users []domain.User) []UserResponse {
	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, userResponse(u))
	}
	return res
}

func skillResponse(s domain.Skill) SkillResponse {
	return SkillResponse{ID: s.ID, Name: s.Name}
}

func profileResponse(u domain.User, grants []repo.GrantWithSkill) UserProfileResponse {
	p := UserProfileResponse{UserResponse: userResponse(u), Skills: []SkillGrantResponse{}}
	for _, g := range grants {
		p.Skills = append(p.Skills, SkillGrantResponse{
			Skill:       skillResponse(g.Skill),
			Proficiency: string(g.Proficiency),
		})
	}
	return p
}

func missionSummary(m domain.Mission) MissionSummary {
	return MissionSummary{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		LeadUserID:  m.LeadUserID,
		Status:      string(m.Status),
		Budget:      m.Budget,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func roleResponse(mr domain.MissionRole) MissionRoleResponse {
	return MissionRoleResponse{
		ID:                  mr.ID,
		MissionID:           mr.MissionID,
		RoleDescription:     mr.RoleDescription,
		SkillIDRequired:     mr.SkillIDRequired,
		ProficiencyRequired: string(mr.ProficiencyRequired),
		AssigneeUserID:      mr.AssigneeUserID,
	}
}

func pitchResponse(p domain.MissionPitch) PitchResponse {
	return PitchResponse{
		ID:        p.ID,
		MissionID: p.MissionID,
		UserID:    p.UserID,
		PitchText: p.PitchText,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
}

func missionDetailResponse(d engine.MissionDetail) MissionDetailResponse {
	resp := MissionDetailResponse{
		MissionSummary: missionSummary(d.Mission),
		Lead:           userResponse(d.Lead),
		Roles:          []MissionRoleResponse{},
		Pitches:        []PitchResponse{},
	}
	for _, rd := range d.Roles {
		rr := roleResponse(rd.Role)
		sk := skillResponse(rd.Skill)
		rr.Skill = &sk
		if rd.Assignee != nil {
			ur := userResponse(*rd.Assignee)
			rr.Assignee = &ur
		}
		resp.Roles = append(resp.Roles, rr)
	}
	for _, pd := range d.Pitches {
		pr := pitchResponse(pd.Pitch)
		ur := userResponse(pd.User)
		pr.User = &ur
		resp.Pitches = append(resp.Pitches, pr)
	}
	return resp
}

func inviteResponse(iv domain.MissionInvite) InviteResponse {
	return InviteResponse{
		ID:             iv.ID,
		MissionRoleID:  iv.MissionRoleID,
		InvitedUserID:  iv.InvitedUserID,
		InvitingUserID: iv.InvitingUserID,
		Status:         string(iv.Status),
		CreatedAt:      iv.CreatedAt,
		UpdatedAt:      iv.UpdatedAt,
	}
}

func notificationResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
