package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamflow-app/teamflow/internal/models"
)

func TestTeamServiceCreateMirrorsCreatorProjectRole(t *testing.T) {
	f := newFixture(t)
	manager := f.user(t, "pm@example.com")
	member := f.user(t, "tm@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, manager.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	_, err = f.projects.AddMember(ctx, project.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)

	// A Project Manager keeps manager rank inside the new team.
	managed, err := f.teams.Create(ctx, manager.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)

	var membership models.TeamMembership
	require.NoError(t, f.db.Where("team_id = ? AND user_id = ?", managed.ID, manager.ID).
		Take(&membership).Error)
	require.Equal(t, models.RoleProjectManager, membership.Role)

	// A Team Member creator is enrolled as Team Member.
	grassroots, err := f.teams.Create(ctx, member.ID, CreateTeamInput{ProjectID: project.ID, Name: "Docs"})
	require.NoError(t, err)

	require.NoError(t, f.db.Where("team_id = ? AND user_id = ?", grassroots.ID, member.ID).
		Take(&membership).Error)
	require.Equal(t, models.RoleTeamMember, membership.Role)
}

func TestTeamServiceCreateUnknownProject(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")

	_, err := f.teams.Create(context.Background(), creator.ID, CreateTeamInput{ProjectID: "missing", Name: "Core"})
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestTeamServiceAddMemberLastWriteWins(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	team, err := f.teams.Create(ctx, creator.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)

	first, err := f.teams.AddMember(ctx, team.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)
	require.Equal(t, models.RoleTeamMember, first.Role)

	second, err := f.teams.AddMember(ctx, team.ID, member.ID, models.RoleProjectManager)
	require.NoError(t, err)
	require.Equal(t, models.RoleProjectManager, second.Role)

	require.Equal(t, int64(1),
		count[models.TeamMembership](t, f.db, "team_id = ? AND user_id = ?", team.ID, member.ID))
}

func TestTeamServiceRemoveMember(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	member := f.user(t, "member@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	team, err := f.teams.Create(ctx, creator.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)
	_, err = f.teams.AddMember(ctx, team.ID, member.ID, models.RoleTeamMember)
	require.NoError(t, err)

	require.NoError(t, f.teams.RemoveMember(ctx, team.ID, member.ID))
	require.ErrorIs(t, f.teams.RemoveMember(ctx, team.ID, member.ID), ErrTeamMemberNotFound)
}

func TestTeamServiceDeleteDetachesScopedWork(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	team, err := f.teams.Create(ctx, creator.ID, CreateTeamInput{ProjectID: project.ID, Name: "Core"})
	require.NoError(t, err)

	task, err := f.tasks.Create(ctx, creator.ID, CreateTaskInput{
		ProjectID: project.ID,
		TeamID:    &team.ID,
		Title:     "Write report",
	})
	require.NoError(t, err)

	appointment, err := f.appointments.Create(ctx, creator.ID, CreateAppointmentInput{
		ProjectID: project.ID,
		TeamID:    &team.ID,
		Title:     "Standup",
		StartTime: time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, f.teams.Delete(ctx, team.ID))

	// Tasks and appointments survive, detached from the removed team.
	reloaded, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.TeamID)

	reloadedAppt, err := f.appointments.GetByID(ctx, appointment.ID)
	require.NoError(t, err)
	require.Nil(t, reloadedAppt.TeamID)

	require.Zero(t, count[models.TeamMembership](t, f.db, "team_id = ?", team.ID))
	require.ErrorIs(t, f.teams.Delete(ctx, team.ID), ErrTeamNotFound)
}
