package guildhallsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Guildhall HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents the API user model.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Title string `json:"title,omitempty"`
	Role  string `json:"role"`
}

// Skill is a catalog entry.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Mission is the flat mission shape.
type Mission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LeadUserID  string `json:"lead_user_id"`
	Status      string `json:"status"`
}

// MissionRole is one fillable slot on a mission.
type MissionRole struct {
	ID                  string  `json:"id"`
	MissionID           string  `json:"mission_id"`
	RoleDescription     string  `json:"role_description"`
	SkillIDRequired     string  `json:"skill_id_required"`
	ProficiencyRequired string  `json:"proficiency_required"`
	AssigneeUserID      *string `json:"assignee_user_id,omitempty"`
}

// MissionDetail is a mission with its roles and pitches.
type MissionDetail struct {
	Mission
	Lead    User          `json:"lead"`
	Roles   []MissionRole `json:"roles"`
	Pitches []Pitch       `json:"pitches"`
}

// Pitch is a volunteer's application to a mission.
type Pitch struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	UserID    string `json:"user_id"`
	PitchText string `json:"pitch_text"`
	Status    string `json:"status"`
}

// Invite asks a user to take a role.
type Invite struct {
	ID             string `json:"id"`
	MissionRoleID  string `json:"mission_role_id"`
	InvitedUserID  string `json:"invited_user_id"`
	InvitingUserID string `json:"inviting_user_id"`
	Status         string `json:"status"`
}

// Notification is a message addressed to the authenticated user.
type Notification struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, title, password string) (User, error) {
	body := map[string]any{
		"name":     name,
		"email":    email,
		"title":    title,
		"password": password,
	}
	var resp User
	err := c.do(ctx, http.MethodPost, "auth/register", body, &resp)
	return resp, err
}

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]any{"email": email, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.AccessToken
	return nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// ListMissions lists all missions.
func (c *Client) ListMissions(ctx context.Context) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "missions", nil, &resp)
	return resp, err
}

// GetMission fetches a mission with roles and pitches.
func (c *Client) GetMission(ctx context.Context, id string) (MissionDetail, error) {
	var resp MissionDetail
	err := c.do(ctx, http.MethodGet, "missions/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SubmitPitch pitches the authenticated user to a mission.
func (c *Client) SubmitPitch(ctx context.Context, missionID, pitchText string) (Pitch, error) {
	body := map[string]any{"pitch_text": pitchText}
	var resp Pitch
	err := c.do(ctx, http.MethodPost, "missions/"+url.PathEscape(missionID)+"/pitches", body, &resp)
	return resp, err
}

// RespondInvite accepts or declines an invite ("Accepted" or "Declined").
func (c *Client) RespondInvite(ctx context.Context, inviteID, status string) (Invite, error) {
	body := map[string]any{"status": status}
	var resp Invite
	err := c.do(ctx, http.MethodPatch, "invites/"+url.PathEscape(inviteID), body, &resp)
	return resp, err
}

// Notifications lists the user's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var resp []Notification
	err := c.do(ctx, http.MethodGet, "notifications", nil, &resp)
	return resp, err
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (Notification, error) {
	var resp Notification
	err := c.do(ctx, http.MethodPost, "notifications/"+url.PathEscape(id)+"/read", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
