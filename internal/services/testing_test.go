package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/database/testutil"
	"github.com/teamflow-app/teamflow/internal/models"
)

// fixture bundles the services under test with a fresh database.
type fixture struct {
	db           *gorm.DB
	audit        *AuditService
	projects     *ProjectService
	teams        *TeamService
	tasks        *TaskService
	appointments *AppointmentService
	users        *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	resolver, err := authz.NewResolver(db)
	require.NoError(t, err)
	projects, err := NewProjectService(db, audit)
	require.NoError(t, err)
	teams, err := NewTeamService(db, audit)
	require.NoError(t, err)
	tasks, err := NewTaskService(db, audit, resolver)
	require.NoError(t, err)
	appointments, err := NewAppointmentService(db, audit, resolver)
	require.NoError(t, err)
	users, err := NewUserService(db, audit)
	require.NoError(t, err)

	return &fixture{
		db:           db,
		audit:        audit,
		projects:     projects,
		teams:        teams,
		tasks:        tasks,
		appointments: appointments,
		users:        users,
	}
}

func (f *fixture) user(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: email, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) membership(t *testing.T, projectID, userID string, role models.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}).Error)
}

func count[T any](t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var model T
	var n int64
	q := db.Model(&model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
