package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
	// ErrTaskAssigneeNotFound indicates the user is not assigned to the task.
	ErrTaskAssigneeNotFound = apperrors.New("TASK_ASSIGNEE_NOT_FOUND", "User is not assigned to the task", http.StatusNotFound)
)

// CreateTaskInput captures new task metadata.
type CreateTaskInput struct {
	ProjectID   string
	TeamID      *string
	Title       string
	Description string
	Priority    models.TaskPriority
	Status      models.TaskStatus
	DueDate     *time.Time
	AssigneeIDs []string
	PrimaryID   string
}

// UpdateTaskInput describes mutable task fields. Nil means "not provided",
// which matters for the assignee restriction below.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	Status      *models.TaskStatus
	DueDate     *time.Time
}

// TaskService handles task lifecycle and assignment management.
type TaskService struct {
	db           *gorm.DB
	auditService *AuditService
	resolver     *authz.Resolver
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(db *gorm.DB, auditService *AuditService, resolver *authz.Resolver) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if resolver == nil {
		return nil, errors.New("task service: resolver is required")
	}
	return &TaskService{
		db:           db,
		auditService: auditService,
		resolver:     resolver,
	}, nil
}

// Create registers a new task in a project, optionally scoped to one of the
// project's teams, and records the initial assignees in the same transaction.
func (s *TaskService) Create(ctx context.Context, creatorID string, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("task title is required")
	}

	assigneeIDs := normaliseIDs(input.AssigneeIDs)
	primaryID := strings.TrimSpace(input.PrimaryID)
	if primaryID != "" && !containsID(assigneeIDs, primaryID) {
		assigneeIDs = append(assigneeIDs, primaryID)
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      input.Status,
		DueDate:     input.DueDate,
		ProjectID:   projectID,
		CreatedBy:   creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.First(&project, "id = ?", projectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("task service: load project: %w", err)
		}

		if input.TeamID != nil && strings.TrimSpace(*input.TeamID) != "" {
			teamID := strings.TrimSpace(*input.TeamID)
			var team models.Team
			err := tx.First(&team, "id = ?", teamID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			if err != nil {
				return fmt.Errorf("task service: load team: %w", err)
			}
			if team.ProjectID != projectID {
				return apperrors.NewBadRequest("team does not belong to the project")
			}
			task.TeamID = &teamID
		}

		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("task service: create task: %w", err)
		}

		for _, userID := range assigneeIDs {
			var user models.User
			if err := tx.First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("task service: load assignee: %w", err)
			}
			assignee := &models.TaskAssignee{
				TaskID:  task.ID,
				UserID:  userID,
				Primary: userID == primaryID,
			}
			if err := tx.Create(assignee).Error; err != nil {
				return fmt.Errorf("task service: create assignee: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &creatorID,
		Action:   "task.create",
		Resource: task.ID,
		Result:   "success",
		Metadata: map[string]any{"title": task.Title, "project_id": projectID},
	})

	return task, nil
}

// GetByID loads a task with its assignees.
func (s *TaskService) GetByID(ctx context.Context, id string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignees").
		First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: get task: %w", err)
	}

	return &task, nil
}

// ListByProject returns the tasks belonging to a project.
func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignees").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}

	return tasks, nil
}

// Update applies the provided fields after deciding what the caller may
// touch. Project Managers of the task's project update any field; assignees
// may only change the status. A denied update names the offending fields so
// the caller knows what to drop. Existence is checked first: an update to a
// missing task is 404 regardless of who asks.
func (s *TaskService) Update(ctx context.Context, id, userID string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}

	updates, err := taskUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperrors.NewBadRequest("no fields to update")
	}

	manager, err := s.isProjectManager(ctx, task.ProjectID, userID)
	if err != nil {
		return nil, err
	}

	if !manager {
		assigned, err := s.resolver.Assigned(ctx, authz.EntityTask, id, userID)
		if err != nil {
			return nil, fmt.Errorf("task service: check assignment: %w", err)
		}
		if !assigned {
			return nil, apperrors.ErrForbidden
		}

		var disallowed []string
		for field := range updates {
			if field != "status" {
				disallowed = append(disallowed, field)
			}
		}
		if len(disallowed) > 0 {
			sort.Strings(disallowed)
			return nil, apperrors.NewForbidden(
				"assignees may only update status; not permitted: " + strings.Join(disallowed, ", "))
		}
	}

	if err := s.db.WithContext(ctx).Model(&task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: update task: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("Assignees").First(&task, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("task service: reload task: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "task.update",
		Resource: task.ID,
		Result:   "success",
		Metadata: map[string]any{"fields": updateFieldNames(updates)},
	})

	return &task, nil
}

// Delete removes a task and its assignment rows in one transaction. Only a
// Project Manager of the task's project may delete it.
func (s *TaskService) Delete(ctx context.Context, actorID, id string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperrors.ErrUnauthorized
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		err := tx.First(&task, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("task service: load task: %w", err)
		}

		manager, err := s.isProjectManager(ctx, task.ProjectID, actorID)
		if err != nil {
			return err
		}
		if !manager {
			return apperrors.ErrForbidden
		}

		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return fmt.Errorf("task service: delete assignees: %w", err)
		}
		if err := tx.Delete(&task).Error; err != nil {
			return fmt.Errorf("task service: delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "task.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

// Assignees returns the assignment rows for a task.
func (s *TaskService) Assignees(ctx context.Context, taskID string) ([]models.TaskAssignee, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	var assignees []models.TaskAssignee
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&assignees).Error
	if err != nil {
		return nil, fmt.Errorf("task service: list assignees: %w", err)
	}

	return assignees, nil
}

// Assign attaches a user to a task. Only a Project Manager of the task's
// project may manage assignments. Marking the user primary demotes any
// existing primary assignee in the same transaction, so the task never holds
// two primaries.
func (s *TaskService) Assign(ctx context.Context, actorID, taskID, userID string, primary bool) (*models.TaskAssignee, error) {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	taskID = strings.TrimSpace(taskID)
	userID = strings.TrimSpace(userID)
	if taskID == "" || userID == "" {
		return nil, apperrors.NewBadRequest("task id and user id are required")
	}

	assignee := &models.TaskAssignee{
		TaskID:  taskID,
		UserID:  userID,
		Primary: primary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		err := tx.First(&task, "id = ?", taskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("task service: load task: %w", err)
		}

		manager, err := s.isProjectManager(ctx, task.ProjectID, actorID)
		if err != nil {
			return err
		}
		if !manager {
			return apperrors.ErrForbidden
		}

		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("task service: load user: %w", err)
		}

		if primary {
			if err := tx.Model(&models.TaskAssignee{}).
				Where("task_id = ?", taskID).
				Where(map[string]any{"primary": true}).
				Update("primary", false).Error; err != nil {
				return fmt.Errorf("task service: demote primary: %w", err)
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"primary": primary}),
		}).Create(assignee).Error; err != nil {
			return fmt.Errorf("task service: upsert assignee: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Take(assignee).Error; err != nil {
		return nil, fmt.Errorf("task service: reload assignee: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "task.assign",
		Resource: taskID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID, "primary": primary},
	})

	return assignee, nil
}

// Unassign removes a user from a task. Only a Project Manager of the task's
// project may manage assignments.
func (s *TaskService) Unassign(ctx context.Context, actorID, taskID, userID string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperrors.ErrUnauthorized
	}
	taskID = strings.TrimSpace(taskID)
	userID = strings.TrimSpace(userID)
	if taskID == "" || userID == "" {
		return apperrors.NewBadRequest("task id and user id are required")
	}

	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("task service: load task: %w", err)
	}

	manager, err := s.isProjectManager(ctx, task.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !manager {
		return apperrors.ErrForbidden
	}

	result := s.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskAssignee{})
	if result.Error != nil {
		return fmt.Errorf("task service: unassign: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskAssigneeNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "task.unassign",
		Resource: taskID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

func (s *TaskService) isProjectManager(ctx context.Context, projectID, userID string) (bool, error) {
	role, ok, err := s.resolver.Role(ctx, authz.EntityProject, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("task service: resolve project role: %w", err)
	}
	return ok && role == models.RoleProjectManager, nil
}

func taskUpdates(input UpdateTaskInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("task title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !validTaskPriority(*input.Priority) {
			return nil, apperrors.NewBadRequest("invalid task priority")
		}
		updates["priority"] = *input.Priority
	}
	if input.Status != nil {
		if !validTaskStatus(*input.Status) {
			return nil, apperrors.NewBadRequest("invalid task status")
		}
		updates["status"] = *input.Status
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	return updates, nil
}

func updateFieldNames(updates map[string]any) []string {
	names := make([]string, 0, len(updates))
	for field := range updates {
		names = append(names, field)
	}
	sort.Strings(names)
	return names
}

func validTaskStatus(status models.TaskStatus) bool {
	switch status {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted:
		return true
	default:
		return false
	}
}

func validTaskPriority(priority models.TaskPriority) bool {
	switch priority {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return true
	default:
		return false
	}
}

func containsID(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
