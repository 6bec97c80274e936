package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamflow-app/teamflow/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "auditor@example.com")
	ctx := context.Background()

	err := f.audit.Log(ctx, AuditEntry{
		UserID:   &user.ID,
		Email:    user.Email,
		Action:   "project.create",
		Resource: "project-1",
		Result:   "success",
		Metadata: map[string]any{"name": "Apollo"},
	})
	require.NoError(t, err)

	logs, total, err := f.audit.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	require.Equal(t, "project.create", logs[0].Action)
	require.Equal(t, user.Email, logs[0].Email)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &metadata))
	require.Equal(t, "Apollo", metadata["name"])
}

func TestAuditServiceListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.audit.Log(ctx, AuditEntry{Action: "task.update", Result: "success", Resource: "task-1"}))
	require.NoError(t, f.audit.Log(ctx, AuditEntry{Action: "task.delete", Result: "failure", Resource: "task-1"}))

	logs, total, err := f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Result: "failure"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "task.delete", logs[0].Action)

	logs, total, err = f.audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Action: "task.update"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "task.update", logs[0].Action)
}

func TestAuditServiceRequiresActionAndResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Error(t, f.audit.Log(ctx, AuditEntry{Result: "success"}))
	require.Error(t, f.audit.Log(ctx, AuditEntry{Action: "noop"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := models.AuditLog{
		Action:    "old.action",
		Result:    "success",
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, f.db.Create(&old).Error)
	require.NoError(t, f.audit.Log(ctx, AuditEntry{Action: "fresh.action", Result: "success"}))

	removed, err := f.audit.CleanupOlderThan(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, total, err := f.audit.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	_, err = f.audit.CleanupOlderThan(ctx, 0)
	require.Error(t, err)
}

func TestServicesRecordAuditTrail(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "creator@example.com")
	ctx := context.Background()

	project, err := f.projects.Create(ctx, creator.ID, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	_, err = f.projects.Delete(ctx, creator.ID, project.ID)
	require.NoError(t, err)

	logs, _, err := f.audit.List(ctx, AuditListOptions{Filters: AuditFilters{Action: "project.delete"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &metadata))
	require.Equal(t, float64(1), metadata["memberships_deleted"])
}
