package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/teamflow-app/teamflow/internal/auth"
	"github.com/teamflow-app/teamflow/internal/auth/providers"
	"github.com/teamflow-app/teamflow/internal/models"
	"github.com/teamflow-app/teamflow/internal/services"
	"github.com/teamflow-app/teamflow/pkg/errors"
	"github.com/teamflow-app/teamflow/pkg/response"
)

// AuthHandler manages authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	jwt         *iauth.JWTService
	sessions    *iauth.SessionService
	local       *providers.LocalProvider
	federated   *providers.FederatedProvider
	users       *services.UserService
	adminEmails map[string]struct{}
}

// NewAuthHandler constructs an AuthHandler. The federated provider may be nil
// when no identity provider is configured.
func NewAuthHandler(
	jwt *iauth.JWTService,
	sessions *iauth.SessionService,
	local *providers.LocalProvider,
	federated *providers.FederatedProvider,
	users *services.UserService,
	adminEmails []string,
) *AuthHandler {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}
	return &AuthHandler{
		jwt:         jwt,
		sessions:    sessions,
		local:       local,
		federated:   federated,
		users:       users,
		adminEmails: admins,
	}
}

func (h *AuthHandler) roleHintFor(email string) string {
	if _, ok := h.adminEmails[strings.ToLower(strings.TrimSpace(email))]; ok {
		return iauth.RoleHintAdmin
	}
	return iauth.RoleHintUser
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type federatedLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"is_active": user.IsActive,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.local.Register(requestContext(c), providers.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, userPayload(user))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.local.Authenticate(requestContext(c), req.Email, req.Password, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueTokens(c, user)
}

// POST /api/auth/login/federated
func (h *AuthHandler) FederatedLogin(c *gin.Context) {
	if h.federated == nil {
		response.Error(c, errors.NewBadRequest("federated login is not configured"))
		return
	}

	var req federatedLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, _, err := h.federated.Authenticate(requestContext(c), req.IDToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueTokens(c, user)
}

func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) {
	pair, _, err := h.sessions.CreateSession(requestContext(c), iauth.CreateSessionInput{
		UserID:    user.ID,
		Email:     user.Email,
		RoleHint:  h.roleHintFor(user.Email),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userPayload(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.sessions.SessionByRefreshToken(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), session.UserID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), req.RefreshToken, user.Email, h.roleHintFor(user.Email))
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/logout
//
// Logout is idempotent: an unknown or already-revoked refresh token still
// yields success, so retries and double-clicks are harmless.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.sessions.Logout(requestContext(c), req.RefreshToken); err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := userPayload(user)
	payload["role_hint"] = h.roleHintFor(user.Email)

	response.Success(c, http.StatusOK, payload)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.local.ChangePassword(requestContext(c), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	// A password change invalidates every active session.
	if err := h.sessions.RevokeUserSessions(requestContext(c), userID); err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true})
}
