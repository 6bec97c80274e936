package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

func TestProjectServiceCreateGrantsCreatorManagerRole(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	require.Equal(t, models.ProjectStatusPlanning, project.Status)

	var membership models.ProjectMembership
	require.NoError(t, f.db.Where("project_id = ? AND user_id = ?", project.ID, creator.ID).
		Take(&membership).Error)
	require.Equal(t, models.RoleProjectManager, membership.Role)
}

func TestProjectServiceCreateRequiresName(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")

	_, err := f.projects.Create(context.Background(), creator.ID, CreateProjectInput{Name: "   "})
	require.Error(t, err)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)
}

func TestProjectServiceListScopedToMembership(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	ctx := context.Background()

	mine, err := f.projects.Create(ctx, alice.ID, CreateProjectInput{Name: "Mine"})
	require.NoError(t, err)
	_, err = f.projects.Create(ctx, bob.ID, CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	projects, err := f.projects.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, mine.ID, projects[0].ID)
}

func TestProjectServiceUpdate(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	name := "Apollo 11"
	status := models.ProjectStatusInProgress
	updated, err := f.projects.Update(ctx, project.ID, UpdateProjectInput{Name: &name, Status: &status})
	require.NoError(t, err)
	require.Equal(t, "Apollo 11", updated.Name)
	require.Equal(t, models.ProjectStatusInProgress, updated.Status)

	bad := models.ProjectStatus("Archived")
	_, err = f.projects.Update(ctx, project.ID, UpdateProjectInput{Status: &bad})
	require.Error(t, err)

	_, err = f.projects.Update(ctx, "missing", UpdateProjectInput{Name: &name})
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectServiceAddMemberLastWriteWins(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	first, err := f.projects.AddMember(ctx, project.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)
	require.Equal(t, models.RoleTeamMember, first.Role)

	// Re-adding replaces the role instead of erroring or duplicating.
	second, err := f.projects.AddMember(ctx, project.ID, member.ID, models.RoleProjectManager)
	require.NoError(t, err)
	require.Equal(t, models.RoleProjectManager, second.Role)

	require.Equal(t, int64(1),
		count[models.ProjectMembership](t, f.db, "project_id = ? AND user_id = ?", project.ID, member.ID))
}

func TestProjectServiceAddMemberValidation(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	_, err = f.projects.AddMember(ctx, project.ID, creator.ID, models.Role("Owner"))
	require.Error(t, err)

	_, err = f.projects.AddMember(ctx, project.ID, "missing-user", models.RoleTeamMember)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.projects.AddMember(ctx, "missing-project", creator.ID, models.RoleTeamMember)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectServiceRemoveMember(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	_, err = f.projects.AddMember(ctx, project.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)

	require.NoError(t, f.projects.RemoveMember(ctx, project.ID, member.ID))
	require.ErrorIs(t, f.projects.RemoveMember(ctx, project.ID, member.ID), ErrProjectMemberNotFound)
}

func TestProjectServiceDeleteCascades(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	_, err = f.projects.AddMember(ctx, project.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)

	team, err := f.teams.Create(ctx, creator.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)

	_, err = f.tasks.Create(ctx, creator.ID, CreateTaskInput{
		ProjectID:   project.ID,
		TeamID:      &team.ID,
		Title:       "Write report",
		AssigneeIDs: []string{member.ID},
	})
	require.NoError(t, err)

	_, err = f.appointments.Create(ctx, creator.ID, CreateAppointmentInput{
		ProjectID:      project.ID,
		Title:          "Kickoff",
		StartTime:      time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC),
		ParticipantIDs: []string{member.ID},
	})
	require.NoError(t, err)

	summary, err := f.projects.Delete(ctx, creator.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.TasksDeleted)
	require.Equal(t, int64(1), summary.TeamsDeleted)
	require.Equal(t, int64(1), summary.AppointmentsDeleted)
	require.Equal(t, int64(2), summary.MembershipsDeleted)

	// Nothing scoped to the project survives.
	require.Zero(t, count[models.Task](t, f.db, ""))
	require.Zero(t, count[models.TaskAssignee](t, f.db, ""))
	require.Zero(t, count[models.Team](t, f.db, ""))
	require.Zero(t, count[models.TeamMembership](t, f.db, ""))
	require.Zero(t, count[models.Appointment](t, f.db, ""))
	require.Zero(t, count[models.AppointmentParticipant](t, f.db, ""))
	require.Zero(t, count[models.ProjectMembership](t, f.db, ""))
	require.Zero(t, count[models.Project](t, f.db, ""))

	// Users are not part of the cascade.
	require.Equal(t, int64(2), count[models.User](t, f.db, ""))

	_, err = f.projects.Delete(ctx, creator.ID, project.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectServiceCreateRollsBackWhenMembershipFails(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	// With the membership table gone the creator grant cannot be written;
	// the project row must not survive on its own.
	require.NoError(t, f.db.Migrator().DropTable(&models.ProjectMembership{}))

	_, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.Error(t, err)
	require.Zero(t, count[models.Project](t, f.db, ""))
}

func TestProjectServiceDeleteRollsBackOnMidCascadeFailure(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	_, err = f.projects.AddMember(ctx, project.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)

	team, err := f.teams.Create(ctx, creator.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)

	_, err = f.tasks.Create(ctx, creator.ID, CreateTaskInput{
		ProjectID:   project.ID,
		TeamID:      &team.ID,
		Title:       "Write report",
		AssigneeIDs: []string{member.ID},
	})
	require.NoError(t, err)

	_, err = f.appointments.Create(ctx, creator.ID, CreateAppointmentInput{
		ProjectID: project.ID,
		Title:     "Kickoff",
		StartTime: time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Tasks and assignees are removed before participants during the cascade.
	// Dropping the participant table makes the middle of the cascade fail, so
	// the earlier deletions must roll back too.
	require.NoError(t, f.db.Migrator().DropTable(&models.AppointmentParticipant{}))

	_, err = f.projects.Delete(ctx, creator.ID, project.ID)
	require.Error(t, err)

	require.Equal(t, int64(1), count[models.Project](t, f.db, ""))
	require.Equal(t, int64(1), count[models.Task](t, f.db, ""))
	require.Equal(t, int64(1), count[models.TaskAssignee](t, f.db, ""))
	require.Equal(t, int64(1), count[models.Team](t, f.db, ""))
	require.Equal(t, int64(1), count[models.TeamMembership](t, f.db, ""))
	require.Equal(t, int64(1), count[models.Appointment](t, f.db, ""))
	require.Equal(t, int64(2), count[models.ProjectMembership](t, f.db, ""))
}
