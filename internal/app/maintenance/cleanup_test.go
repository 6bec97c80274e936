package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/teamflow-app/teamflow/internal/auth"
	"github.com/teamflow-app/teamflow/internal/database/testutil"
	"github.com/teamflow-app/teamflow/internal/models"
	"github.com/teamflow-app/teamflow/internal/services"
)

func newCleanerStack(t *testing.T) (*gorm.DB, *iauth.SessionService, *services.AuditService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cleanup-test", Issuer: "teamflow-test"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	return db, sessions, audit
}

func TestCleanerRunOncePurgesExpiredSessionsAndOldAuditLogs(t *testing.T) {
	db, sessions, audit := newCleanerStack(t)

	user := models.User{Email: "cleanup@example.com", Name: "cleanup", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	expired := models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		RefreshToken: "expired-token",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	live := models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		RefreshToken: "live-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&live).Error)

	stale := models.AuditLog{
		Action:    "project.delete",
		Result:    "success",
		CreatedAt: time.Now().AddDate(0, 0, -120),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, audit.Log(context.Background(), services.AuditEntry{Action: "project.create", Result: "success"}))

	cleaner := NewCleaner(sessions, audit, WithAuditRetentionDays(90))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Equal(t, int64(1), sessionCount)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Equal(t, int64(1), auditCount)
}

func TestCleanerStartAndStop(t *testing.T) {
	_, sessions, audit := newCleanerStack(t)

	cleaner := NewCleaner(sessions, audit,
		WithSessionSchedule("@every 1h"),
		WithAuditSchedule("@every 24h"),
	)
	require.NoError(t, cleaner.Start())

	stopped := cleaner.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestCleanerDisabledWithoutDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
