package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrProjectMemberNotFound indicates the requested membership does not exist.
	ErrProjectMemberNotFound = apperrors.New("PROJECT_MEMBER_NOT_FOUND", "User is not a member of the project", http.StatusNotFound)
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
)

// CreateProjectInput captures new project metadata.
type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProjectInput describes mutable project fields.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// CascadeSummary reports what a project deletion removed.
type CascadeSummary struct {
	ProjectID           string `json:"project_id"`
	TasksDeleted        int64  `json:"tasks_deleted"`
	TeamsDeleted        int64  `json:"teams_deleted"`
	AppointmentsDeleted int64  `json:"appointments_deleted"`
	MembershipsDeleted  int64  `json:"memberships_deleted"`
}

// ProjectService handles project lifecycle and project-level membership.
type ProjectService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB, auditService *AuditService) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create registers a new project and grants the creator the Project Manager
// role in the same transaction. Either both rows exist afterwards or neither.
func (s *ProjectService) Create(ctx context.Context, creatorID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("project name is required")
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("project service: create project: %w", err)
		}
		membership := &models.ProjectMembership{
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      models.RoleProjectManager,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("project service: grant creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &creatorID,
		Action:   "project.create",
		Resource: project.ID,
		Result:   "success",
		Metadata: map[string]any{"name": project.Name},
	})

	return project, nil
}

// GetByID loads a project with its memberships.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Memberships").
		First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}

	return &project, nil
}

// List returns the projects the user is a member of, newest first.
func (s *ProjectService) List(ctx context.Context, userID string) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var projects []models.Project
	err := s.db.WithContext(ctx).
		Joins("JOIN project_memberships ON project_memberships.project_id = projects.id").
		Where("project_memberships.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}

	return projects, nil
}

// Update modifies project metadata.
func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("project name is required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !validProjectStatus(*input.Status) {
			return nil, apperrors.NewBadRequest("invalid project status")
		}
		updates["status"] = *input.Status
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}

	if len(updates) == 0 {
		return &project, nil
	}

	if err := s.db.WithContext(ctx).Model(&project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("project service: reload project: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "project.update",
		Resource: project.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &project, nil
}

// Delete removes a project and everything scoped to it: tasks with their
// assignments, teams with their memberships, appointments with their
// participants, and the project membership rows. The deletion runs in a
// single transaction so a mid-failure leaves no orphans, and the counts are
// snapshotted before anything is removed.
func (s *ProjectService) Delete(ctx context.Context, actorID, id string) (*CascadeSummary, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}

	summary := &CascadeSummary{ProjectID: id}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.First(&project, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("project service: load project: %w", err)
		}

		var taskIDs []string
		if err := tx.Model(&models.Task{}).Where("project_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("project service: collect tasks: %w", err)
		}
		var teamIDs []string
		if err := tx.Model(&models.Team{}).Where("project_id = ?", id).Pluck("id", &teamIDs).Error; err != nil {
			return fmt.Errorf("project service: collect teams: %w", err)
		}
		var appointmentIDs []string
		if err := tx.Model(&models.Appointment{}).Where("project_id = ?", id).Pluck("id", &appointmentIDs).Error; err != nil {
			return fmt.Errorf("project service: collect appointments: %w", err)
		}

		summary.TasksDeleted = int64(len(taskIDs))
		summary.TeamsDeleted = int64(len(teamIDs))
		summary.AppointmentsDeleted = int64(len(appointmentIDs))

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskAssignee{}).Error; err != nil {
				return fmt.Errorf("project service: delete task assignees: %w", err)
			}
			if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
				return fmt.Errorf("project service: delete tasks: %w", err)
			}
		}

		if len(appointmentIDs) > 0 {
			if err := tx.Where("appointment_id IN ?", appointmentIDs).Delete(&models.AppointmentParticipant{}).Error; err != nil {
				return fmt.Errorf("project service: delete appointment participants: %w", err)
			}
			if err := tx.Where("id IN ?", appointmentIDs).Delete(&models.Appointment{}).Error; err != nil {
				return fmt.Errorf("project service: delete appointments: %w", err)
			}
		}

		if len(teamIDs) > 0 {
			if err := tx.Where("team_id IN ?", teamIDs).Delete(&models.TeamMembership{}).Error; err != nil {
				return fmt.Errorf("project service: delete team memberships: %w", err)
			}
			if err := tx.Where("id IN ?", teamIDs).Delete(&models.Team{}).Error; err != nil {
				return fmt.Errorf("project service: delete teams: %w", err)
			}
		}

		memberships := tx.Where("project_id = ?", id).Delete(&models.ProjectMembership{})
		if memberships.Error != nil {
			return fmt.Errorf("project service: delete memberships: %w", memberships.Error)
		}
		summary.MembershipsDeleted = memberships.RowsAffected

		if err := tx.Delete(&project).Error; err != nil {
			return fmt.Errorf("project service: delete project: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := AuditEntry{
		Action:   "project.delete",
		Resource: id,
		Result:   "success",
		Metadata: map[string]any{
			"tasks_deleted":        summary.TasksDeleted,
			"teams_deleted":        summary.TeamsDeleted,
			"appointments_deleted": summary.AppointmentsDeleted,
			"memberships_deleted":  summary.MembershipsDeleted,
		},
	}
	if actorID = strings.TrimSpace(actorID); actorID != "" {
		entry.UserID = &actorID
	}
	recordAudit(s.auditService, ctx, entry)

	return summary, nil
}

// Members returns the membership rows for a project.
func (s *ProjectService) Members(ctx context.Context, projectID string) ([]models.ProjectMembership, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	var memberships []models.ProjectMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list members: %w", err)
	}

	return memberships, nil
}

// AddMember grants or updates a user's role on the project. Adding an existing
// member replaces their role; the last write wins. The composite unique index
// on (project_id, user_id) keeps concurrent writers from creating duplicates.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID string, role models.Role) (*models.ProjectMembership, error) {
	ctx = ensureContext(ctx)

	projectID = strings.TrimSpace(projectID)
	userID = strings.TrimSpace(userID)
	if projectID == "" || userID == "" {
		return nil, apperrors.NewBadRequest("project id and user id are required")
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("invalid membership role")
	}

	if _, err := s.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("project service: load user: %w", err)
	}

	membership := &models.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"role": role}),
		}).
		Create(membership).Error
	if err != nil {
		return nil, fmt.Errorf("project service: upsert membership: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Take(membership).Error; err != nil {
		return nil, fmt.Errorf("project service: reload membership: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "project.add_member",
		Resource: projectID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID, "role": string(role)},
	})

	return membership, nil
}

// RemoveMember revokes a user's project membership.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID string) error {
	ctx = ensureContext(ctx)

	projectID = strings.TrimSpace(projectID)
	userID = strings.TrimSpace(userID)
	if projectID == "" || userID == "" {
		return apperrors.NewBadRequest("project id and user id are required")
	}

	result := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMembership{})
	if result.Error != nil {
		return fmt.Errorf("project service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProjectMemberNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "project.remove_member",
		Resource: projectID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

func validProjectStatus(status models.ProjectStatus) bool {
	switch status {
	case models.ProjectStatusPlanning, models.ProjectStatusInProgress, models.ProjectStatusCompleted:
		return true
	default:
		return false
	}
}
