package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"guildhall/internal/db"
	"guildhall/internal/domain"
	"guildhall/internal/engine"
	"guildhall/internal/identity"
	"guildhall/internal/migrate"
	"guildhall/internal/server"
)

type testServer struct {
	BaseURL  string
	Client   *http.Client
	Engine   engine.Engine
	Identity identity.Service
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	ident := identity.Service{
		Repo:      eng.Repo,
		JWTSecret: "test-secret",
		TokenTTL:  30 * time.Minute,
	}
	handler, err := server.New(server.Config{
		Engine:   eng,
		Identity: ident,
		BasePath: "/v1",
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return testServer{
		BaseURL:  "http://" + ln.Addr().String() + "/v1",
		Client:   &http.Client{Timeout: 5 * time.Second},
		Engine:   eng,
		Identity: ident,
	}
}

func (ts testServer) doJSON(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.BaseURL+path, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

type errEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeErr(t *testing.T, raw []byte) errEnvelope {
	t.Helper()
	var env errEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode error envelope from %s: %v", raw, err)
	}
	return env
}

// register creates an account over HTTP and returns a bearer token for it.
func (ts testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	status, raw := ts.doJSON(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "hunter2hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, status, raw)
	}
	return ts.login(t, email)
}

func (ts testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, raw := ts.doJSON(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    email,
		"password": "hunter2hunter2",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, status, raw)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		t.Fatalf("token response: %s", raw)
	}
	return tok.AccessToken
}

// registerManager seeds a Manager account directly, then logs in over HTTP.
func (ts testServer) registerManager(t *testing.T, name, email string) string {
	t.Helper()
	_, err := ts.Identity.Register(context.Background(), identity.RegisterOptions{
		Name:     name,
		Email:    email,
		Password: "hunter2hunter2",
		Role:     domain.RoleManager,
	})
	if err != nil {
		t.Fatalf("seed manager: %v", err)
	}
	return ts.login(t, email)
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t)
	status, raw := ts.doJSON(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health: %d %s", status, raw)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	status, raw := ts.doJSON(t, http.MethodGet, "/me", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", status, raw)
	}
	env := decodeErr(t, raw)
	if env.Error.Code != "unauthorized" {
		t.Fatalf("envelope code = %q", env.Error.Code)
	}
	status, _ = ts.doJSON(t, http.MethodGet, "/me", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", status)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "Pip", "pip@guild.test")

	status, raw := ts.doJSON(t, http.MethodGet, "/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %s", status, raw)
	}
	var me struct {
		Email  string `json:"email"`
		Role   string `json:"role"`
		Skills []any  `json:"skills"`
	}
	if err := json.Unmarshal(raw, &me); err != nil {
		t.Fatal(err)
	}
	if me.Email != "pip@guild.test" || me.Role != "Member" {
		t.Fatalf("profile: %s", raw)
	}

	// duplicate registration is a conflict with a stable message
	status, raw = ts.doJSON(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Pip2", "email": "pip@guild.test", "password": "hunter2hunter2",
	})
	if status != http.StatusConflict {
		t.Fatalf("dup register: %d %s", status, raw)
	}
	if env := decodeErr(t, raw); env.Error.Message != "email already registered" {
		t.Fatalf("dup message: %s", raw)
	}

	// bad credentials never reveal which half was wrong
	status, raw = ts.doJSON(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "pip@guild.test", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login: %d %s", status, raw)
	}
}

func TestSkillGrantAndSearchOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	managerTok := ts.registerManager(t, "Greta", "greta@guild.test")
	memberTok := ts.register(t, "Pip", "pip@guild.test")

	status, raw := ts.doJSON(t, http.MethodPost, "/skills", managerTok, map[string]any{"name": "Welding"})
	if status != http.StatusCreated {
		t.Fatalf("create skill: %d %s", status, raw)
	}
	var skill struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &skill); err != nil {
		t.Fatal(err)
	}

	// members cannot extend the catalog
	status, raw = ts.doJSON(t, http.MethodPost, "/skills", memberTok, map[string]any{"name": "Baking"})
	if status != http.StatusForbidden {
		t.Fatalf("member create skill: %d %s", status, raw)
	}

	status, raw = ts.doJSON(t, http.MethodPut, "/me/skills", memberTok, map[string]any{
		"skill_id": skill.ID, "proficiency": "Advanced",
	})
	if status != http.StatusOK {
		t.Fatalf("grant: %d %s", status, raw)
	}
	var profile struct {
		Skills []struct {
			Skill       struct{ Name string } `json:"skill"`
			Proficiency string                `json:"proficiency"`
		} `json:"skills"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		t.Fatal(err)
	}
	if len(profile.Skills) != 1 || profile.Skills[0].Proficiency != "Advanced" {
		t.Fatalf("profile skills: %s", raw)
	}

	status, raw = ts.doJSON(t, http.MethodGet, "/users/search?skill=weld&proficiency=Intermediate", managerTok, nil)
	if status != http.StatusOK {
		t.Fatalf("search: %d %s", status, raw)
	}
	var matches []struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(raw, &matches); err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].User.Email != "pip@guild.test" {
		t.Fatalf("matches: %s", raw)
	}

	// an Expert floor excludes the Advanced welder
	status, raw = ts.doJSON(t, http.MethodGet, "/users/search?skill=weld&proficiency=Expert", managerTok, nil)
	if status != http.StatusOK {
		t.Fatalf("search expert: %d %s", status, raw)
	}
	matches = nil
	if err := json.Unmarshal(raw, &matches); err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("expert matches: %s", raw)
	}
}

func TestMissionWorkflowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	leadTok := ts.registerManager(t, "Greta", "greta@guild.test")
	memberTok := ts.register(t, "Pip", "pip@guild.test")

	status, raw := ts.doJSON(t, http.MethodPost, "/skills", leadTok, map[string]any{"name": "Masonry"})
	if status != http.StatusCreated {
		t.Fatalf("skill: %d %s", status, raw)
	}
	var skill struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &skill); err != nil {
		t.Fatal(err)
	}

	status, raw = ts.doJSON(t, http.MethodPost, "/missions", leadTok, map[string]any{
		"title":       "Wall repair",
		"description": "Patch the north wall before winter.",
		"roles": []map[string]any{{
			"role_description":     "Mason",
			"skill_id_required":    skill.ID,
			"proficiency_required": "Beginner",
		}},
	})
	if status != http.StatusCreated {
		t.Fatalf("create mission: %d %s", status, raw)
	}
	var mission struct {
		ID    string `json:"id"`
		Roles []struct {
			ID string `json:"id"`
		} `json:"roles"`
	}
	if err := json.Unmarshal(raw, &mission); err != nil {
		t.Fatal(err)
	}
	if len(mission.Roles) != 1 {
		t.Fatalf("mission roles: %s", raw)
	}
	roleID := mission.Roles[0].ID

	// members cannot propose missions
	status, raw = ts.doJSON(t, http.MethodPost, "/missions", memberTok, map[string]any{"title": "Nope"})
	if status != http.StatusForbidden {
		t.Fatalf("member create mission: %d %s", status, raw)
	}

	// pitch, then pitch again
	status, raw = ts.doJSON(t, http.MethodPost, fmt.Sprintf("/missions/%s/pitches", mission.ID), memberTok, map[string]any{
		"pitch_text": "I have laid brick before.",
	})
	if status != http.StatusCreated {
		t.Fatalf("pitch: %d %s", status, raw)
	}
	var pitch struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &pitch); err != nil {
		t.Fatal(err)
	}
	status, raw = ts.doJSON(t, http.MethodPost, fmt.Sprintf("/missions/%s/pitches", mission.ID), memberTok, map[string]any{
		"pitch_text": "Twice.",
	})
	if status != http.StatusConflict {
		t.Fatalf("dup pitch: %d %s", status, raw)
	}

	// only the lead sees the pitch list
	status, raw = ts.doJSON(t, http.MethodGet, fmt.Sprintf("/missions/%s/pitches", mission.ID), memberTok, nil)
	if status != http.StatusForbidden {
		t.Fatalf("member pitch list: %d %s", status, raw)
	}
	status, raw = ts.doJSON(t, http.MethodGet, fmt.Sprintf("/missions/%s/pitches", mission.ID), leadTok, nil)
	if status != http.StatusOK {
		t.Fatalf("lead pitch list: %d %s", status, raw)
	}

	status, raw = ts.doJSON(t, http.MethodPatch, "/pitches/"+pitch.ID, leadTok, map[string]any{"status": "Accepted"})
	if status != http.StatusOK {
		t.Fatalf("decide pitch: %d %s", status, raw)
	}

	// drafting a nonexistent user reports the absent entity
	status, raw = ts.doJSON(t, http.MethodPost, "/mission-roles/"+roleID+"/draft", leadTok, map[string]any{
		"user_id": "no-such-user",
	})
	if status != http.StatusNotFound {
		t.Fatalf("draft unknown user: %d %s", status, raw)
	}
	if env := decodeErr(t, raw); env.Error.Code != "not_found" {
		t.Fatalf("draft unknown user code: %s", raw)
	}

	// invite the member to the role, member accepts
	status, raw = ts.doJSON(t, http.MethodPost, "/invites", leadTok, map[string]any{
		"mission_role_id": roleID,
		"invited_user_id": userID(t, ts, "pip@guild.test"),
	})
	if status != http.StatusCreated {
		t.Fatalf("invite: %d %s", status, raw)
	}
	var invite struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &invite); err != nil {
		t.Fatal(err)
	}

	status, raw = ts.doJSON(t, http.MethodGet, "/invites", memberTok, nil)
	if status != http.StatusOK {
		t.Fatalf("list invites: %d %s", status, raw)
	}
	var invites []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &invites); err != nil {
		t.Fatal(err)
	}
	if len(invites) != 1 || invites[0].Status != "Pending" {
		t.Fatalf("invites: %s", raw)
	}

	// the lead cannot answer on the invitee's behalf
	status, raw = ts.doJSON(t, http.MethodPatch, "/invites/"+invite.ID, leadTok, map[string]any{"status": "Accepted"})
	if status != http.StatusForbidden {
		t.Fatalf("lead respond: %d %s", status, raw)
	}
	status, raw = ts.doJSON(t, http.MethodPatch, "/invites/"+invite.ID, memberTok, map[string]any{"status": "Accepted"})
	if status != http.StatusOK {
		t.Fatalf("accept invite: %d %s", status, raw)
	}

	// the role now shows the assignee in the mission detail
	status, raw = ts.doJSON(t, http.MethodGet, "/missions/"+mission.ID, leadTok, nil)
	if status != http.StatusOK {
		t.Fatalf("detail: %d %s", status, raw)
	}
	var detail struct {
		Roles []struct {
			Assignee *struct {
				Email string `json:"email"`
			} `json:"assignee"`
		} `json:"roles"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		t.Fatal(err)
	}
	if len(detail.Roles) != 1 || detail.Roles[0].Assignee == nil || detail.Roles[0].Assignee.Email != "pip@guild.test" {
		t.Fatalf("assignee: %s", raw)
	}

	// the member accumulated notifications along the way; mark one read
	status, raw = ts.doJSON(t, http.MethodGet, "/notifications", memberTok, nil)
	if status != http.StatusOK {
		t.Fatalf("notifications: %d %s", status, raw)
	}
	var notes []struct {
		ID     string `json:"id"`
		IsRead bool   `json:"is_read"`
	}
	if err := json.Unmarshal(raw, &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes) == 0 {
		t.Fatalf("expected notifications, got %s", raw)
	}
	status, raw = ts.doJSON(t, http.MethodPost, "/notifications/"+notes[0].ID+"/read", memberTok, nil)
	if status != http.StatusOK {
		t.Fatalf("mark read: %d %s", status, raw)
	}
	var marked struct {
		IsRead bool `json:"is_read"`
	}
	if err := json.Unmarshal(raw, &marked); err != nil {
		t.Fatal(err)
	}
	if !marked.IsRead {
		t.Fatalf("mark read: %s", raw)
	}
	// another user's notification reads as missing
	status, raw = ts.doJSON(t, http.MethodPost, "/notifications/"+notes[0].ID+"/read", leadTok, nil)
	if status != http.StatusNotFound {
		t.Fatalf("cross-user mark: %d %s", status, raw)
	}
}

func TestActionItemsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	leadTok := ts.registerManager(t, "Greta", "greta@guild.test")
	memberTok := ts.register(t, "Pip", "pip@guild.test")

	status, raw := ts.doJSON(t, http.MethodPost, "/missions", leadTok, map[string]any{"title": "Granary"})
	if status != http.StatusCreated {
		t.Fatalf("mission: %d %s", status, raw)
	}
	var mission struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &mission); err != nil {
		t.Fatal(err)
	}
	if status, raw = ts.doJSON(t, http.MethodPost, fmt.Sprintf("/missions/%s/pitches", mission.ID), memberTok, map[string]any{
		"pitch_text": "count me in",
	}); status != http.StatusCreated {
		t.Fatalf("pitch: %d %s", status, raw)
	}

	status, raw = ts.doJSON(t, http.MethodGet, "/missions/action-items", leadTok, nil)
	if status != http.StatusOK {
		t.Fatalf("action items: %d %s", status, raw)
	}
	var items []struct {
		Mission struct {
			ID string `json:"id"`
		} `json:"mission"`
		PendingPitches int `json:"pending_pitches"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Mission.ID != mission.ID || items[0].PendingPitches != 1 {
		t.Fatalf("items: %s", raw)
	}

	// the member leads nothing, so their queue is empty
	status, raw = ts.doJSON(t, http.MethodGet, "/missions/action-items", memberTok, nil)
	if status != http.StatusOK {
		t.Fatalf("member action items: %d %s", status, raw)
	}
	items = nil
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("member items: %s", raw)
	}
}

func userID(t *testing.T, ts testServer, email string) string {
	t.Helper()
	u, err := ts.Engine.Repo.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	return u.ID
}
