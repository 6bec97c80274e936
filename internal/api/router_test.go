package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/teamflow-app/teamflow/internal/app"
	iauth "github.com/teamflow-app/teamflow/internal/auth"
	"github.com/teamflow-app/teamflow/internal/database/testutil"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t)

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "router-test-secret"
	cfg.Auth.JWT.Issuer = "teamflow-test"
	cfg.Auth.JWT.TTL = 15 * time.Minute
	cfg.Auth.Session.RefreshTTL = 24 * time.Hour
	cfg.Auth.Session.RefreshLength = 48
	cfg.Auth.Local.LockoutThreshold = 5
	cfg.Auth.Local.LockoutDuration = 15 * time.Minute
	cfg.Auth.AdminEmails = []string{"admin@example.com"}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: cfg.Auth.Session.RefreshTTL,
		RefreshLength:   cfg.Auth.Session.RefreshLength,
	})
	require.NoError(t, err)

	r, err := NewRouter(db, cfg, jwtSvc, sessions, nil)
	require.NoError(t, err)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	return envelope.Data
}

// registerAndLogin creates an account over HTTP and returns the user id and
// its access/refresh token pair.
func registerAndLogin(t *testing.T, r *gin.Engine, email string) (userID, access, refresh string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"name":     email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	userID = decodeData(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	tokens := data["tokens"].(map[string]any)
	return userID, tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func TestRouterHealthAndNotFound(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRequiresAuthOnAPI(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterProjectAndTeamGates(t *testing.T) {
	r := newTestServer(t)

	_, managerToken, _ := registerAndLogin(t, r, "pm@example.com")
	memberID, memberToken, _ := registerAndLogin(t, r, "tm@example.com")

	// Creator becomes Project Manager.
	w := doJSON(t, r, http.MethodPost, "/api/projects", managerToken, gin.H{"name": "Apollo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := decodeData(t, w)["id"].(string)

	// Outsiders cannot read the project or manage its members.
	w = doJSON(t, r, http.MethodGet, "/api/projects/"+projectID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/projects/"+projectID+"/members", memberToken, gin.H{
		"user_id": memberID,
		"role":    "Team Member",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/projects/"+projectID+"/members", managerToken, gin.H{
		"user_id": memberID,
		"role":    "Team Member",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Membership opens reads but not manager-only mutations.
	w = doJSON(t, r, http.MethodGet, "/api/projects/"+projectID, memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPut, "/api/projects/"+projectID, memberToken, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodPut, "/api/projects/"+projectID, managerToken, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Team creation mirrors the creator's project role into the team, so
	// the manager can delete the team while the unaffiliated member cannot
	// even read it.
	w = doJSON(t, r, http.MethodPost, "/api/projects/"+projectID+"/teams", managerToken, gin.H{"name": "Core"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	teamID := decodeData(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/teams/"+teamID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/teams/"+teamID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/teams/"+teamID, managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouterTaskAssignmentAndUpdateRules(t *testing.T) {
	r := newTestServer(t)

	_, managerToken, _ := registerAndLogin(t, r, "lead@example.com")
	assigneeID, assigneeToken, _ := registerAndLogin(t, r, "dev@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/projects", managerToken, gin.H{"name": "Apollo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := decodeData(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/projects/"+projectID+"/members", managerToken, gin.H{
		"user_id": assigneeID,
		"role":    "Team Member",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/projects/"+projectID+"/tasks", managerToken, gin.H{
		"title":               "Write report",
		"primary_assignee_id": assigneeID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	taskID := decodeData(t, w)["id"].(string)

	// Task reads are assignment-gated: the manager is not assigned.
	w = doJSON(t, r, http.MethodGet, "/api/tasks/"+taskID, assigneeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/tasks/"+taskID, managerToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Assignees may only change status.
	w = doJSON(t, r, http.MethodPut, "/api/tasks/"+taskID, assigneeToken, gin.H{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPut, "/api/tasks/"+taskID, assigneeToken, gin.H{"title": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "not permitted: title")

	// Managers are unrestricted.
	w = doJSON(t, r, http.MethodPut, "/api/tasks/"+taskID, managerToken, gin.H{"title": "Write final report"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Missing tasks 404 before any permission check.
	w = doJSON(t, r, http.MethodPut, "/api/tasks/00000000-0000-0000-0000-000000000000", managerToken, gin.H{"title": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRefreshRotationAndLogout(t *testing.T) {
	r := newTestServer(t)

	_, _, refresh := registerAndLogin(t, r, "session@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := decodeData(t, w)["refresh_token"].(string)
	require.NotEqual(t, refresh, rotated)

	// The pre-rotation token is dead.
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Logout is idempotent.
	for i := 0; i < 2; i++ {
		w = doJSON(t, r, http.MethodPost, "/api/auth/logout", "", gin.H{"refresh_token": rotated})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": rotated})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterAdminOnlyAuditTrail(t *testing.T) {
	r := newTestServer(t)

	_, adminToken, _ := registerAndLogin(t, r, "admin@example.com")
	_, userToken, _ := registerAndLogin(t, r, "plain@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/audit", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
