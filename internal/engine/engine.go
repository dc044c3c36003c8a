package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"guildhall/internal/domain"
	"guildhall/internal/engine/auth"
	"guildhall/internal/notify"
	"guildhall/internal/repo"
)

// BadRequestError indicates a request that is well-formed but not valid
// against the current state (terminal transitions, filled slots).
type BadRequestError struct {
	Reason string
}

func (e BadRequestError) Error() string {
	return e.Reason
}

// Engine runs the mission ledger: every mutation is one transaction, and
// every transition visible to a second party writes its notification row
// inside that same transaction.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Notify notify.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Notify: notify.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) notifier() notify.Writer {
	w := e.Notify
	if w.Now == nil {
		w.Now = e.Now
	}
	return w
}

// RoleSpec describes one slot requested at mission creation.
type RoleSpec struct {
	Description         string
	SkillIDRequired     string
	ProficiencyRequired domain.Proficiency
}

// MissionCreateOptions are parameters for proposing a mission.
type MissionCreateOptions struct {
	Title       string
	Description string
	Budget      *float64
	StartDate   *string
	EndDate     *string
	Roles       []RoleSpec
}

// CreateMission proposes a mission led by the actor, with its role slots.
// The mission and all roles land in a single transaction; either everything
// exists or nothing does.
func (e Engine) CreateMission(ctx context.Context, actor domain.User, opts MissionCreateOptions) (domain.Mission, []domain.MissionRole, error) {
	if err := auth.RequireManager(actor); err != nil {
		return domain.Mission{}, nil, err
	}
	if opts.Title == "" {
		return domain.Mission{}, nil, BadRequestError{Reason: "title is required"}
	}
	for _, rs := range opts.Roles {
		if _, err := e.Repo.GetSkill(ctx, rs.SkillIDRequired); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Mission{}, nil, BadRequestError{Reason: fmt.Sprintf("unknown skill %s", rs.SkillIDRequired)}
			}
			return domain.Mission{}, nil, err
		}
		if domain.ProficiencyRank(rs.ProficiencyRequired) == 0 {
			return domain.Mission{}, nil, BadRequestError{Reason: fmt.Sprintf("invalid proficiency %q", rs.ProficiencyRequired)}
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	m := domain.Mission{
		ID:          uuid.New().String(),
		Title:       opts.Title,
		Description: opts.Description,
		LeadUserID:  actor.ID,
		Status:      domain.MissionProposed,
		Budget:      opts.Budget,
		StartDate:   opts.StartDate,
		EndDate:     opts.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	roles := make([]domain.MissionRole, 0, len(opts.Roles))
	for _, rs := range opts.Roles {
		roles = append(roles, domain.MissionRole{
			ID:                  uuid.New().String(),
			MissionID:           m.ID,
			RoleDescription:     rs.Description,
			SkillIDRequired:     rs.SkillIDRequired,
			ProficiencyRequired: rs.ProficiencyRequired,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertMissionTx(ctx, tx, m); err != nil {
		return domain.Mission{}, nil, err
	}
	for _, mr := range roles {
		if err := e.Repo.InsertMissionRoleTx(ctx, tx, mr); err != nil {
			return domain.Mission{}, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, nil, err
	}
	return m, roles, nil
}

// SetMissionStatus moves a mission to any status; only the lead may do it.
func (e Engine) SetMissionStatus(ctx context.Context, actor domain.User, missionID string, status domain.MissionStatus) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := auth.RequireMissionLead(actor, m); err != nil {
		return domain.Mission{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, status, now); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	m.Status = status
	m.UpdatedAt = now
	return m, nil
}

// DraftRole assigns a user to a role directly. Drafting is the lead's
// prerogative and overwrites any current assignee without consent from
// either party; the drafted user is notified.
func (e Engine) DraftRole(ctx context.Context, actor domain.User, roleID, userID string) (domain.MissionRole, error) {
	role, err := e.Repo.GetMissionRole(ctx, roleID)
	if err != nil {
		return domain.MissionRole{}, err
	}
	m, err := e.Repo.GetMission(ctx, role.MissionID)
	if err != nil {
		return domain.MissionRole{}, err
	}
	if err := auth.RequireMissionLead(actor, m); err != nil {
		return domain.MissionRole{}, err
	}
	drafted, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.MissionRole{}, fmt.Errorf("user %s: %w", userID, repo.ErrNotFound)
		}
		return domain.MissionRole{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MissionRole{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetRoleAssigneeTx(ctx, tx, role.ID, &drafted.ID, now); err != nil {
		return domain.MissionRole{}, err
	}
	msg := fmt.Sprintf("You have been drafted into the mission %q.", m.Title)
	if err := e.notifier().Append(ctx, tx, drafted.ID, msg, "/missions/"+m.ID); err != nil {
		return domain.MissionRole{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MissionRole{}, err
	}
	role.AssigneeUserID = &drafted.ID
	role.UpdatedAt = now
	return role, nil
}

// SubmitPitch records a volunteer's pitch for a mission and notifies the
// lead. One pitch per user per mission; a second submission is a conflict.
func (e Engine) SubmitPitch(ctx context.Context, actor domain.User, missionID, pitchText string) (domain.MissionPitch, error) {
	if pitchText == "" {
		return domain.MissionPitch{}, BadRequestError{Reason: "pitch_text is required"}
	}
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return domain.MissionPitch{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.MissionPitch{
		ID:        uuid.New().String(),
		MissionID: m.ID,
		UserID:    actor.ID,
		PitchText: pitchText,
		Status:    domain.PitchSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MissionPitch{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPitchTx(ctx, tx, p); err != nil {
		return domain.MissionPitch{}, err
	}
	msg := fmt.Sprintf("%s pitched to join your mission %q.", actor.Name, m.Title)
	if err := e.notifier().Append(ctx, tx, m.LeadUserID, msg, "/missions/"+m.ID); err != nil {
		return domain.MissionPitch{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MissionPitch{}, err
	}
	return p, nil
}

// DecidePitch accepts or rejects a pitch. The decision is terminal and does
// not by itself fill any role; the lead drafts or invites separately.
func (e Engine) DecidePitch(ctx context.Context, actor domain.User, pitchID string, status domain.PitchStatus) (domain.MissionPitch, error) {
	if status != domain.PitchAccepted && status != domain.PitchRejected {
		return domain.MissionPitch{}, BadRequestError{Reason: "status must be Accepted or Rejected"}
	}
	p, err := e.Repo.GetPitch(ctx, pitchID)
	if err != nil {
		return domain.MissionPitch{}, err
	}
	m, err := e.Repo.GetMission(ctx, p.MissionID)
	if err != nil {
		return domain.MissionPitch{}, err
	}
	if err := auth.RequireMissionLead(actor, m); err != nil {
		return domain.MissionPitch{}, err
	}
	if p.Status != domain.PitchSubmitted {
		return domain.MissionPitch{}, BadRequestError{Reason: fmt.Sprintf("pitch already %s", p.Status)}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MissionPitch{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdatePitchStatusTx(ctx, tx, p.ID, status, now); err != nil {
		return domain.MissionPitch{}, err
	}
	verb := "accepted"
	if status == domain.PitchRejected {
		verb = "rejected"
	}
	msg := fmt.Sprintf("Your pitch for the mission %q was %s.", m.Title, verb)
	if err := e.notifier().Append(ctx, tx, p.UserID, msg, "/missions/"+m.ID); err != nil {
		return domain.MissionPitch{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MissionPitch{}, err
	}
	p.Status = status
	p.UpdatedAt = now
	return p, nil
}

// CreateInvite asks a user to take a role. Only valid while the slot is
// free; at most one pending invite per (role, user).
func (e Engine) CreateInvite(ctx context.Context, actor domain.User, roleID, invitedUserID string) (domain.MissionInvite, error) {
	role, err := e.Repo.GetMissionRole(ctx, roleID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	m, err := e.Repo.GetMission(ctx, role.MissionID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	if err := auth.RequireMissionLead(actor, m); err != nil {
		return domain.MissionInvite{}, err
	}
	if role.AssigneeUserID != nil {
		return domain.MissionInvite{}, BadRequestError{Reason: "role is already filled"}
	}
	invited, err := e.Repo.GetUser(ctx, invitedUserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.MissionInvite{}, fmt.Errorf("user %s: %w", invitedUserID, repo.ErrNotFound)
		}
		return domain.MissionInvite{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	iv := domain.MissionInvite{
		ID:             uuid.New().String(),
		MissionRoleID:  role.ID,
		InvitedUserID:  invited.ID,
		InvitingUserID: actor.ID,
		Status:         domain.InvitePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertInviteTx(ctx, tx, iv); err != nil {
		return domain.MissionInvite{}, err
	}
	msg := fmt.Sprintf("%s invited you to the role %q on the mission %q.", actor.Name, role.RoleDescription, m.Title)
	if err := e.notifier().Append(ctx, tx, invited.ID, msg, "/missions/"+m.ID); err != nil {
		return domain.MissionInvite{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MissionInvite{}, err
	}
	return iv, nil
}

// RespondInvite is the invited user accepting or declining. An accept only
// fills the role if the slot is still free at commit time; the assignee is
// re-read inside the transaction, and a lost race forces the invite to
// Declined, notifies the responder, and reports a conflict.
func (e Engine) RespondInvite(ctx context.Context, actor domain.User, inviteID string, accept bool) (domain.MissionInvite, error) {
	iv, err := e.Repo.GetInvite(ctx, inviteID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	if iv.InvitedUserID != actor.ID {
		return domain.MissionInvite{}, auth.ForbiddenError{Reason: "only the invited user may respond"}
	}
	if iv.Status != domain.InvitePending {
		return domain.MissionInvite{}, BadRequestError{Reason: fmt.Sprintf("invite already %s", iv.Status)}
	}
	role, err := e.Repo.GetMissionRole(ctx, iv.MissionRoleID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	m, err := e.Repo.GetMission(ctx, role.MissionID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	defer tx.Rollback()

	if !accept {
		if err := e.Repo.UpdateInviteStatusTx(ctx, tx, iv.ID, domain.InviteDeclined, now); err != nil {
			return domain.MissionInvite{}, err
		}
		msg := fmt.Sprintf("%s declined your invite for the role %q on the mission %q.", actor.Name, role.RoleDescription, m.Title)
		if err := e.notifier().Append(ctx, tx, iv.InvitingUserID, msg, "/missions/"+m.ID); err != nil {
			return domain.MissionInvite{}, err
		}
		if err := tx.Commit(); err != nil {
			return domain.MissionInvite{}, err
		}
		iv.Status = domain.InviteDeclined
		iv.UpdatedAt = now
		return iv, nil
	}

	current, err := e.Repo.GetMissionRoleTx(ctx, tx, role.ID)
	if err != nil {
		return domain.MissionInvite{}, err
	}
	if current.AssigneeUserID != nil {
		// Someone else filled the slot first. The invite is spent either
		// way; record the decline and tell the responder what happened.
		if err := e.Repo.UpdateInviteStatusTx(ctx, tx, iv.ID, domain.InviteDeclined, now); err != nil {
			return domain.MissionInvite{}, err
		}
		msg := fmt.Sprintf("The role %q on the mission %q was filled before you accepted.", role.RoleDescription, m.Title)
		if err := e.notifier().Append(ctx, tx, actor.ID, msg, "/missions/"+m.ID); err != nil {
			return domain.MissionInvite{}, err
		}
		if err := tx.Commit(); err != nil {
			return domain.MissionInvite{}, err
		}
		return domain.MissionInvite{}, fmt.Errorf("role already filled: %w", repo.ErrConflict)
	}

	if err := e.Repo.SetRoleAssigneeTx(ctx, tx, role.ID, &actor.ID, now); err != nil {
		return domain.MissionInvite{}, err
	}
	if err := e.Repo.UpdateInviteStatusTx(ctx, tx, iv.ID, domain.InviteAccepted, now); err != nil {
		return domain.MissionInvite{}, err
	}
	msg := fmt.Sprintf("%s accepted your invite for the role %q on the mission %q.", actor.Name, role.RoleDescription, m.Title)
	if err := e.notifier().Append(ctx, tx, iv.InvitingUserID, msg, "/missions/"+m.ID); err != nil {
		return domain.MissionInvite{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MissionInvite{}, err
	}
	iv.Status = domain.InviteAccepted
	iv.UpdatedAt = now
	return iv, nil
}

// GrantSkill records or updates the actor's proficiency in a skill.
func (e Engine) GrantSkill(ctx context.Context, actor domain.User, skillID string, proficiency domain.Proficiency) (domain.SkillGrant, error) {
	if domain.ProficiencyRank(proficiency) == 0 {
		return domain.SkillGrant{}, BadRequestError{Reason: fmt.Sprintf("invalid proficiency %q", proficiency)}
	}
	if _, err := e.Repo.GetSkill(ctx, skillID); err != nil {
		return domain.SkillGrant{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	g := domain.SkillGrant{
		UserID:      actor.ID,
		SkillID:     skillID,
		Proficiency: proficiency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.UpsertSkillGrant(ctx, g); err != nil {
		return domain.SkillGrant{}, err
	}
	return g, nil
}

// RevokeSkill removes the actor's grant for a skill.
func (e Engine) RevokeSkill(ctx context.Context, actor domain.User, skillID string) error {
	return e.Repo.DeleteSkillGrant(ctx, actor.ID, skillID)
}

// CreateSkill adds a skill to the catalog. Names are unique ignoring case.
func (e Engine) CreateSkill(ctx context.Context, actor domain.User, name string) (domain.Skill, error) {
	if err := auth.RequireManager(actor); err != nil {
		return domain.Skill{}, err
	}
	if name == "" {
		return domain.Skill{}, BadRequestError{Reason: "name is required"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	s := domain.Skill{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertSkill(ctx, s); err != nil {
		return domain.Skill{}, err
	}
	return s, nil
}

// RoleDetail is a role slot with its required skill and current assignee.
type RoleDetail struct {
	Role     domain.MissionRole
	Skill    domain.Skill
	Assignee *domain.User
}

// PitchDetail is a pitch with its author.
type PitchDetail struct {
	Pitch domain.MissionPitch
	User  domain.User
}

// MissionDetail is the full view of one mission. Nested entities are flat;
// they never point back at the mission.
type MissionDetail struct {
	Mission domain.Mission
	Lead    domain.User
	Roles   []RoleDetail
	Pitches []PitchDetail
}

// GetMissionDetail assembles the full mission view.
func (e Engine) GetMissionDetail(ctx context.Context, missionID string) (MissionDetail, error) {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return MissionDetail{}, err
	}
	lead, err := e.Repo.GetUser(ctx, m.LeadUserID)
	if err != nil {
		return MissionDetail{}, err
	}
	roles, err := e.Repo.ListMissionRoles(ctx, m.ID)
	if err != nil {
		return MissionDetail{}, err
	}
	d := MissionDetail{Mission: m, Lead: lead}
	for _, role := range roles {
		rd := RoleDetail{Role: role}
		rd.Skill, err = e.Repo.GetSkill(ctx, role.SkillIDRequired)
		if err != nil {
			return MissionDetail{}, err
		}
		if role.AssigneeUserID != nil {
			u, err := e.Repo.GetUser(ctx, *role.AssigneeUserID)
			if err != nil {
				return MissionDetail{}, err
			}
			rd.Assignee = &u
		}
		d.Roles = append(d.Roles, rd)
	}
	pitches, err := e.Repo.ListMissionPitches(ctx, m.ID)
	if err != nil {
		return MissionDetail{}, err
	}
	for _, p := range pitches {
		u, err := e.Repo.GetUser(ctx, p.UserID)
		if err != nil {
			return MissionDetail{}, err
		}
		d.Pitches = append(d.Pitches, PitchDetail{Pitch: p, User: u})
	}
	return d, nil
}

// ListMissionPitches returns a mission's pitches; only the lead may see them.
func (e Engine) ListMissionPitches(ctx context.Context, actor domain.User, missionID string) ([]domain.MissionPitch, error) {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireMissionLead(actor, m); err != nil {
		return nil, err
	}
	return e.Repo.ListMissionPitches(ctx, m.ID)
}
