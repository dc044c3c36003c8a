package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"guildhall/internal/domain"
	"guildhall/internal/engine"
	"guildhall/internal/engine/auth"
	"guildhall/internal/identity"
	"guildhall/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine         engine.Engine
	Identity       identity.Service
	BasePath       string
	AllowedOrigins []string
	RateRPS        float64
	RateBurst      int
	Logger         zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"role is already filled"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Guildhall API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newCORSMiddleware(cfg.AllowedOrigins))
	router.Use(newRequestLogMiddleware(cfg.Logger))
	router.Use(newRateLimitMiddleware(cfg.RateRPS, cfg.RateBurst))
	router.Use(newAuthMiddleware(basePath, AuthConfig{Identity: cfg.Identity, Logger: cfg.Logger}))

	hcfg := huma.DefaultConfig("Guildhall API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Identity)
	registerUsers(group, cfg.Engine)
	registerSkills(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerPitches(group, cfg.Engine)
	registerInvites(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps domain error kinds to the envelope exactly once.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	var be engine.BadRequestError
	if errors.As(err, &be) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	if errors.Is(err, repo.ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "required") || strings.Contains(lowered, "invalid") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, ident identity.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register an account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		opts := identity.RegisterOptions{
			Name:     input.Body.Name,
			Email:    input.Body.Email,
			Title:    input.Body.Title,
			Password: input.Body.Password,
		}
		if input.Body.PhotoURL != nil {
			opts.PhotoURL = *input.Body.PhotoURL
		}
		u, err := ident.Register(ctx, opts)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return nil, newAPIError(http.StatusConflict, "conflict", "email already registered", nil)
			}
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for a token",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := ident.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := ident.IssueToken(u)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{AccessToken: token, TokenType: "bearer"}}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, input *struct {
		Limit  int `query:"limit" default:"100"`
		Offset int `query:"offset"`
	}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		if _, authErr := currentUser(ctx); authErr != nil {
			return nil, authErr
		}
		users, err := e.Repo.ListUsers(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(users)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-users",
		Method:      http.MethodGet,
		Path:        "/users/search",
		Summary:     "Search users by skill",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Skill       string `query:"skill" required:"true"`
		Proficiency string `query:"proficiency" default:"Beginner" enum:"Beginner,Intermediate,Advanced,Expert"`
	}) (*struct {
		Body []SkillMatchResponse `json:"body"`
	}, error) {
		if _, authErr := currentUser(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Skill == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "skill is required", nil)
		}
		minimum, err := domain.ParseProficiency(input.Proficiency)
		if err != nil {
			return nil, handleError(engine.BadRequestError{Reason: err.Error()})
		}
		matches, err := e.Repo.SearchUsersBySkill(ctx, input.Skill, minimum)
		if err != nil {
			return nil, handleError(err)
		}
		res := []SkillMatchResponse{}
		for _, m := range matches {
			res = append(res, SkillMatchResponse{
				User:        userResponse(m.User),
				Skill:       skillResponse(m.Skill),
				Proficiency: string(m.Proficiency),
			})
		}
		return &struct {
			Body []SkillMatchResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user profile",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserProfileResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		grants, err := e.Repo.ListSkillGrants(ctx, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserProfileResponse `json:"body"`
		}{Body: profileResponse(u, grants)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-skill",
		Method:      http.MethodPut,
		Path:        "/me/skills",
		Summary:     "Add or update one of my skills",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body GrantSkillRequest `json:"body"`
	}) (*struct {
		Body UserProfileResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.GrantSkill(ctx, u, input.Body.SkillID, domain.Proficiency(input.Body.Proficiency)); err != nil {
			return nil, handleError(err)
		}
		grants, err := e.Repo.ListSkillGrants(ctx, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserProfileResponse `json:"body"`
		}{Body: profileResponse(u, grants)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-skill",
		Method:      http.MethodDelete,
		Path:        "/me/skills/{skill_id}",
		Summary:     "Remove one of my skills",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SkillID string `path:"skill_id"`
	}) (*struct{}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeSkill(ctx, u, input.SkillID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSkills(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-skill",
		Method:        http.MethodPost,
		Path:          "/skills",
		Summary:       "Add a skill to the catalog",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateSkillRequest `json:"body"`
	}) (*struct {
		Body SkillResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSkill(ctx, u, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SkillResponse `json:"body"`
		}{Body: skillResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-skills",
		Method:      http.MethodGet,
		Path:        "/skills",
		Summary:     "List the skill catalog",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []SkillResponse `json:"body"`
	}, error) {
		if _, authErr := currentUser(ctx); authErr != nil {
			return nil, authErr
		}
		skills, err := e.Repo.ListSkills(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := []SkillResponse{}
		for _, s := range skills {
			res = append(res, skillResponse(s))
		}
		return &struct {
			Body []SkillResponse `json:"body"`
		}{Body: res}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Propose a mission with role slots",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionDetailResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.MissionCreateOptions{
			Title:     input.Body.Title,
			Budget:    input.Body.Budget,
			StartDate: input.Body.StartDate,
			EndDate:   input.Body.EndDate,
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		for _, rs := range input.Body.Roles {
			opts.Roles = append(opts.Roles, engine.RoleSpec{
				Description:         rs.RoleDescription,
				SkillIDRequired:     rs.SkillIDRequired,
				ProficiencyRequired: domain.Proficiency(rs.ProficiencyRequired),
			})
		}
		m, _, err := e.CreateMission(ctx, u, opts)
		if err != nil {
			return nil, handleError(err)
		}
		d, err := e.GetMissionDetail(ctx, m.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionDetailResponse `json:"body"`
		}{Body: missionDetailResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []MissionSummary `json:"body"`
	}, error) {
		if _, authErr := currentUser(ctx); authErr != nil {
			return nil, authErr
		}
		missions, err := e.Repo.ListMissions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := []MissionSummary{}
		for _, m := range missions {
			res = append(res, missionSummary(m))
		}
		return &struct {
			Body []MissionSummary `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-action-items",
		Method:      http.MethodGet,
		Path:        "/missions/action-items",
		Summary:     "Led missions with pitches awaiting a decision",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ActionItemResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListActionItems(ctx, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []ActionItemResponse{}
		for _, it := range items {
			res = append(res, ActionItemResponse{
				Mission:        missionSummary(it.Mission),
				PendingPitches: it.PendingPitches,
			})
		}
		return &struct {
			Body []ActionItemResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Get a mission with roles and pitches",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MissionDetailResponse `json:"body"`
	}, error) {
		if _, authErr := currentUser(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.GetMissionDetail(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionDetailResponse `json:"body"`
		}{Body: missionDetailResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-mission-status",
		Method:      http.MethodPatch,
		Path:        "/missions/{id}/status",
		Summary:     "Update mission status",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body SetMissionStatusRequest `json:"body"`
	}) (*struct {
		Body MissionSummary `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status, err := domain.ParseMissionStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(engine.BadRequestError{Reason: err.Error()})
		}
		m, err := e.SetMissionStatus(ctx, u, input.ID, status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionSummary `json:"body"`
		}{Body: missionSummary(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "draft-role",
		Method:      http.MethodPost,
		Path:        "/mission-roles/{role_id}/draft",
		Summary:     "Draft a user into a role",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RoleID string       `path:"role_id"`
		Body   DraftRequest `json:"body"`
	}) (*struct {
		Body MissionRoleResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		mr, err := e.DraftRole(ctx, u, input.RoleID, input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionRoleResponse `json:"body"`
		}{Body: roleResponse(mr)}, nil
	})
}

func registerPitches(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-pitch",
		Method:        http.MethodPost,
		Path:          "/missions/{id}/pitches",
		Summary:       "Pitch to join a mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body CreatePitchRequest `json:"body"`
	}) (*struct {
		Body PitchResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SubmitPitch(ctx, u, input.ID, input.Body.PitchText)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return nil, newAPIError(http.StatusConflict, "conflict", "you have already pitched for this mission", nil)
			}
			return nil, handleError(err)
		}
		return &struct {
			Body PitchResponse `json:"body"`
		}{Body: pitchResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-pitches",
		Method:      http.MethodGet,
		Path:        "/missions/{id}/pitches",
		Summary:     "List a mission's pitches (lead only)",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []PitchResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		pitches, err := e.ListMissionPitches(ctx, u, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []PitchResponse{}
		for _, p := range pitches {
			res = append(res, pitchResponse(p))
		}
		return &struct {
			Body []PitchResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-pitch",
		Method:      http.MethodPatch,
		Path:        "/pitches/{id}",
		Summary:     "Accept or reject a pitch",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body DecidePitchRequest `json:"body"`
	}) (*struct {
		Body PitchResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status, err := domain.ParsePitchStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(engine.BadRequestError{Reason: err.Error()})
		}
		p, err := e.DecidePitch(ctx, u, input.ID, status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PitchResponse `json:"body"`
		}{Body: pitchResponse(p)}, nil
	})
}

func registerInvites(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-invite",
		Method:        http.MethodPost,
		Path:          "/invites",
		Summary:       "Invite a user to a role",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateInviteRequest `json:"body"`
	}) (*struct {
		Body InviteResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		iv, err := e.CreateInvite(ctx, u, input.Body.MissionRoleID, input.Body.InvitedUserID)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return nil, newAPIError(http.StatusConflict, "conflict", "a pending invite for this user and role already exists", nil)
			}
			return nil, handleError(err)
		}
		return &struct {
			Body InviteResponse `json:"body"`
		}{Body: inviteResponse(iv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-invites",
		Method:      http.MethodGet,
		Path:        "/invites",
		Summary:     "List invites addressed to me",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []InviteResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		invites, err := e.Repo.ListInvitesForUser(ctx, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []InviteResponse{}
		for _, iv := range invites {
			res = append(res, inviteResponse(iv))
		}
		return &struct {
			Body []InviteResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "respond-invite",
		Method:      http.MethodPatch,
		Path:        "/invites/{id}",
		Summary:     "Accept or decline an invite",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body RespondInviteRequest `json:"body"`
	}) (*struct {
		Body InviteResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status, err := domain.ParseInviteStatus(input.Body.Status)
		if err != nil || status == domain.InvitePending {
			return nil, handleError(engine.BadRequestError{Reason: "status must be Accepted or Declined"})
		}
		iv, err := e.RespondInvite(ctx, u, input.ID, status == domain.InviteAccepted)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InviteResponse `json:"body"`
		}{Body: inviteResponse(iv)}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List my notifications, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []NotificationResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListNotifications(ctx, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []NotificationResponse{}
		for _, n := range items {
			res = append(res, notificationResponse(n))
		}
		return &struct {
			Body []NotificationResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{id}/read",
		Summary:     "Mark a notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body NotificationResponse `json:"body"`
	}, error) {
		u, authErr := currentUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.Repo.MarkNotificationRead(ctx, input.ID, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NotificationResponse `json:"body"`
		}{Body: notificationResponse(n)}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var once sync.Once
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	openPaths := map[string]bool{
		path.Join(basePath, "health"):        true,
		path.Join(basePath, "auth/login"):    true,
		path.Join(basePath, "auth/register"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if openPaths[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Guildhall API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}
