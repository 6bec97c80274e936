package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrTeamMemberNotFound indicates the requested membership does not exist.
	ErrTeamMemberNotFound = apperrors.New("TEAM_MEMBER_NOT_FOUND", "User is not a member of the team", http.StatusNotFound)
)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	ProjectID   string
	Name        string
	Description string
}

// UpdateTeamInput describes mutable team fields.
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// TeamService handles team lifecycle and team-level membership.
type TeamService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, auditService *AuditService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create registers a new team inside a project and enrols the creator in the
// same transaction. The creator's team role mirrors their current project
// role; without a project membership they join as a Team Member.
func (s *TeamService) Create(ctx context.Context, creatorID string, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
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
			return fmt.Errorf("team service: load project: %w", err)
		}

		role := models.RoleTeamMember
		var projectMembership models.ProjectMembership
		err = tx.Where("project_id = ? AND user_id = ?", projectID, creatorID).
			Take(&projectMembership).Error
		switch {
		case err == nil:
			role = projectMembership.Role
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no project membership, default role stands
		default:
			return fmt.Errorf("team service: load creator membership: %w", err)
		}

		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("team service: create team: %w", err)
		}

		membership := &models.TeamMembership{
			TeamID: team.ID,
			UserID: creatorID,
			Role:   role,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("team service: enrol creator: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &creatorID,
		Action:   "team.create",
		Resource: team.ID,
		Result:   "success",
		Metadata: map[string]any{"name": team.Name, "project_id": projectID},
	})

	return team, nil
}

// GetByID loads a team with its memberships.
func (s *TeamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).
		Preload("Memberships").
		First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: get team: %w", err)
	}

	return &team, nil
}

// ListByProject returns the teams belonging to a project.
func (s *TeamService) ListByProject(ctx context.Context, projectID string) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}

	var teams []models.Team
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}

	return teams, nil
}

// Update modifies team metadata.
func (s *TeamService) Update(ctx context.Context, id string, input UpdateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("team name is required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return &team, nil
	}

	if err := s.db.WithContext(ctx).Model(&team).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("team service: update team: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("team service: reload team: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.update",
		Resource: team.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &team, nil
}

// Delete removes a team and its membership rows in one transaction. Tasks and
// appointments that referenced the team stay in the project with the team
// link cleared.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		err := tx.First(&team, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load team: %w", err)
		}

		if err := tx.Model(&models.Task{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("team service: detach tasks: %w", err)
		}
		if err := tx.Model(&models.Appointment{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("team service: detach appointments: %w", err)
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMembership{}).Error; err != nil {
			return fmt.Errorf("team service: delete memberships: %w", err)
		}
		if err := tx.Delete(&team).Error; err != nil {
			return fmt.Errorf("team service: delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

// Members returns the membership rows for a team.
func (s *TeamService) Members(ctx context.Context, teamID string) ([]models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, teamID); err != nil {
		return nil, err
	}

	var memberships []models.TeamMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list members: %w", err)
	}

	return memberships, nil
}

// AddMember grants or updates a user's role on the team. Re-adding an
// existing member replaces their role; the last write wins.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, role models.Role) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	userID = strings.TrimSpace(userID)
	if teamID == "" || userID == "" {
		return nil, apperrors.NewBadRequest("team id and user id are required")
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("invalid membership role")
	}

	if _, err := s.GetByID(ctx, teamID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("team service: load user: %w", err)
	}

	membership := &models.TeamMembership{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"role": role}),
		}).
		Create(membership).Error
	if err != nil {
		return nil, fmt.Errorf("team service: upsert membership: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Take(membership).Error; err != nil {
		return nil, fmt.Errorf("team service: reload membership: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.add_member",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID, "role": string(role)},
	})

	return membership, nil
}

// RemoveMember revokes a user's team membership.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	userID = strings.TrimSpace(userID)
	if teamID == "" || userID == "" {
		return apperrors.NewBadRequest("team id and user id are required")
	}

	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMembership{})
	if result.Error != nil {
		return fmt.Errorf("team service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamMemberNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.remove_member",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}
