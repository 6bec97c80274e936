package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/database/testutil"
	"github.com/teamflow-app/teamflow/internal/models"
)

func newSessionTestStack(t *testing.T) (*gorm.DB, *SessionService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "teamflow-test"})
	require.NoError(t, err)

	sessions, err := NewSessionService(db, jwtSvc, SessionConfig{})
	require.NoError(t, err)

	return db, sessions
}

func createSessionUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: email, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestSessionServiceCreateRevokesPriorSessions(t *testing.T) {
	db, sessions := newSessionTestStack(t)
	user := createSessionUser(t, db, "login@example.com")
	ctx := context.Background()

	first, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)

	second, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// One active session per user: the first login is now revoked.
	var active int64
	require.NoError(t, db.Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", user.ID).
		Count(&active).Error)
	require.Equal(t, int64(1), active)

	_, _, err = sessions.RefreshSession(ctx, first.RefreshToken, user.Email, RoleHintUser)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionServiceRefreshRotatesToken(t *testing.T) {
	db, sessions := newSessionTestStack(t)
	user := createSessionUser(t, db, "rotate@example.com")
	ctx := context.Background()

	pair, created, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	rotated, session, err := sessions.RefreshSession(ctx, pair.RefreshToken, user.Email, RoleHintUser)
	require.NoError(t, err)
	require.Equal(t, created.ID, session.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old token is spent.
	_, _, err = sessions.RefreshSession(ctx, pair.RefreshToken, user.Email, RoleHintUser)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// The rotated token still works.
	_, _, err = sessions.RefreshSession(ctx, rotated.RefreshToken, user.Email, RoleHintUser)
	require.NoError(t, err)
}

func TestSessionServiceRefreshExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	current := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	sessions, err := NewSessionService(db, jwtSvc, SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           func() time.Time { return current },
	})
	require.NoError(t, err)

	user := createSessionUser(t, db, "expired@example.com")
	ctx := context.Background()

	pair, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, _, err = sessions.RefreshSession(ctx, pair.RefreshToken, user.Email, RoleHintUser)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionServiceLogoutIsIdempotent(t *testing.T) {
	db, sessions := newSessionTestStack(t)
	user := createSessionUser(t, db, "logout@example.com")
	ctx := context.Background()

	pair, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	require.NoError(t, sessions.Logout(ctx, pair.RefreshToken))
	require.NoError(t, sessions.Logout(ctx, pair.RefreshToken))
	require.NoError(t, sessions.Logout(ctx, "never-issued"))
	require.NoError(t, sessions.Logout(ctx, ""))

	_, _, err = sessions.RefreshSession(ctx, pair.RefreshToken, user.Email, RoleHintUser)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionServiceRevokeUserSessions(t *testing.T) {
	db, sessions := newSessionTestStack(t)
	user := createSessionUser(t, db, "revokeall@example.com")
	ctx := context.Background()

	pair, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeUserSessions(ctx, user.ID))

	_, _, err = sessions.RefreshSession(ctx, pair.RefreshToken, user.Email, RoleHintUser)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionServiceCleanupExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	current := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	sessions, err := NewSessionService(db, jwtSvc, SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           func() time.Time { return current },
	})
	require.NoError(t, err)

	user := createSessionUser(t, db, "cleanup@example.com")
	ctx := context.Background()

	_, _, err = sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	pair, _, err := sessions.CreateSession(ctx, CreateSessionInput{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)
	require.NoError(t, sessions.Logout(ctx, pair.RefreshToken))

	current = current.Add(3 * time.Hour)
	removed, err := sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	var remaining int64
	require.NoError(t, db.Model(&models.Session{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}
