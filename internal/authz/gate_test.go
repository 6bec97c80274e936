package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamflow-app/teamflow/internal/database/testutil"
	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

func mustTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func TestRoleSatisfiesInheritance(t *testing.T) {
	cases := []struct {
		name    string
		held    Role
		allowed []Role
		want    bool
	}{
		{"manager passes manager gate", models.RoleProjectManager, []Role{models.RoleProjectManager}, true},
		{"manager passes member gate", models.RoleProjectManager, []Role{models.RoleTeamMember}, true},
		{"member passes member gate", models.RoleTeamMember, []Role{models.RoleTeamMember}, true},
		{"member fails manager gate", models.RoleTeamMember, []Role{models.RoleProjectManager}, false},
		{"empty allowed set denies", models.RoleProjectManager, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RoleSatisfies(tc.held, tc.allowed))
		})
	}
}

func TestGateAuthorizeRoleMode(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)
	gate, err := NewGate(resolver)
	require.NoError(t, err)

	manager := seedUser(t, db, "pm@example.com")
	member := seedUser(t, db, "tm@example.com")
	outsider := seedUser(t, db, "nobody@example.com")
	project := seedProject(t, db, manager)

	require.NoError(t, db.Create(&models.ProjectMembership{
		ProjectID: project.ID, UserID: manager.ID, Role: models.RoleProjectManager,
	}).Error)
	require.NoError(t, db.Create(&models.ProjectMembership{
		ProjectID: project.ID, UserID: member.ID, Role: models.RoleTeamMember,
	}).Error)

	managerGate := Requirement{Entity: EntityProject, Mode: ModeRole, AllowedRoles: []Role{models.RoleProjectManager}}
	memberGate := Requirement{Entity: EntityProject, Mode: ModeRole, AllowedRoles: []Role{models.RoleTeamMember}}

	ctx := context.Background()

	require.NoError(t, gate.Authorize(ctx, managerGate, project.ID, manager.ID))
	require.NoError(t, gate.Authorize(ctx, memberGate, project.ID, manager.ID))
	require.NoError(t, gate.Authorize(ctx, memberGate, project.ID, member.ID))

	err = gate.Authorize(ctx, managerGate, project.ID, member.ID)
	requireStatus(t, err, 403)

	err = gate.Authorize(ctx, memberGate, project.ID, outsider.ID)
	requireStatus(t, err, 403)
}

func TestGateAuthorizeAssignmentMode(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)
	gate, err := NewGate(resolver)
	require.NoError(t, err)

	assignee := seedUser(t, db, "assigned@example.com")
	stranger := seedUser(t, db, "stranger@example.com")
	project := seedProject(t, db, assignee)
	task := models.Task{Title: "Ship release", ProjectID: project.ID, CreatedBy: assignee.ID}
	require.NoError(t, db.Create(&task).Error)
	require.NoError(t, db.Create(&models.TaskAssignee{TaskID: task.ID, UserID: assignee.ID}).Error)

	req := Requirement{Entity: EntityTask, Mode: ModeAssignment}
	ctx := context.Background()

	require.NoError(t, gate.Authorize(ctx, req, task.ID, assignee.ID))

	err = gate.Authorize(ctx, req, task.ID, stranger.ID)
	requireStatus(t, err, 403)
}

func TestGateAuthorizeInputValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	resolver, err := NewResolver(db)
	require.NoError(t, err)
	gate, err := NewGate(resolver)
	require.NoError(t, err)

	req := Requirement{Entity: EntityProject, Mode: ModeRole, AllowedRoles: []Role{models.RoleTeamMember}}

	err = gate.Authorize(context.Background(), req, "", "user")
	requireStatus(t, err, 400)

	err = gate.Authorize(context.Background(), req, "project", "")
	requireStatus(t, err, 401)
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, status, appErr.StatusCode)
}
