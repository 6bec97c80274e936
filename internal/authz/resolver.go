package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/models"
)

// Role aliases the membership role stored on project/team membership rows.
type Role = models.Role

// Resolver answers "what is this user's relationship to this entity" from the
// membership and assignment tables. Absence of a row means no access; there is
// no implicit role anywhere.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("authz: db is required")
	}
	return &Resolver{db: db}, nil
}

// Role looks up the user's membership role on a project or team. The second
// return value reports whether a membership row exists.
func (r *Resolver) Role(ctx context.Context, entity EntityType, entityID, userID string) (Role, bool, error) {
	entityID = strings.TrimSpace(entityID)
	userID = strings.TrimSpace(userID)
	if entityID == "" || userID == "" {
		return "", false, errors.New("authz: entity id and user id are required")
	}

	switch entity {
	case EntityProject:
		var membership models.ProjectMembership
		err := r.db.WithContext(ctx).
			Where("project_id = ? AND user_id = ?", entityID, userID).
			Take(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("authz: load project membership: %w", err)
		}
		return membership.Role, true, nil
	case EntityTeam:
		var membership models.TeamMembership
		err := r.db.WithContext(ctx).
			Where("team_id = ? AND user_id = ?", entityID, userID).
			Take(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("authz: load team membership: %w", err)
		}
		return membership.Role, true, nil
	case EntityTask, EntityAppointment:
		return "", false, fmt.Errorf("authz: %s has no membership roles", entity)
	default:
		return "", false, fmt.Errorf("authz: unknown entity type %d", entity)
	}
}

// Assigned reports whether an assignment/participation row exists for the
// user on a task or appointment.
func (r *Resolver) Assigned(ctx context.Context, entity EntityType, entityID, userID string) (bool, error) {
	entityID = strings.TrimSpace(entityID)
	userID = strings.TrimSpace(userID)
	if entityID == "" || userID == "" {
		return false, errors.New("authz: entity id and user id are required")
	}

	var count int64
	switch entity {
	case EntityTask:
		if err := r.db.WithContext(ctx).
			Model(&models.TaskAssignee{}).
			Where("task_id = ? AND user_id = ?", entityID, userID).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("authz: check task assignment: %w", err)
		}
	case EntityAppointment:
		if err := r.db.WithContext(ctx).
			Model(&models.AppointmentParticipant{}).
			Where("appointment_id = ? AND user_id = ?", entityID, userID).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("authz: check appointment participation: %w", err)
		}
	case EntityProject, EntityTeam:
		return false, fmt.Errorf("authz: %s uses membership roles, not assignments", entity)
	default:
		return false, fmt.Errorf("authz: unknown entity type %d", entity)
	}

	return count > 0, nil
}
