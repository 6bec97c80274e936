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

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

var (
	// ErrAppointmentNotFound indicates the requested appointment does not exist.
	ErrAppointmentNotFound = apperrors.New("APPOINTMENT_NOT_FOUND", "Appointment not found", http.StatusNotFound)
	// ErrParticipantNotFound indicates the user does not participate in the appointment.
	ErrParticipantNotFound = apperrors.New("PARTICIPANT_NOT_FOUND", "User is not a participant of the appointment", http.StatusNotFound)
)

// CreateAppointmentInput captures new appointment metadata.
type CreateAppointmentInput struct {
	ProjectID      string
	TeamID         *string
	Title          string
	Description    string
	StartTime      time.Time
	Duration       int
	Location       string
	ParticipantIDs []string
}

// UpdateAppointmentInput describes mutable appointment fields.
type UpdateAppointmentInput struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	Duration    *int
	Location    *string
}

// AppointmentService handles appointment lifecycle and participation.
type AppointmentService struct {
	db           *gorm.DB
	auditService *AuditService
	resolver     *authz.Resolver
	now          func() time.Time
}

// NewAppointmentService constructs an AppointmentService instance.
func NewAppointmentService(db *gorm.DB, auditService *AuditService, resolver *authz.Resolver) (*AppointmentService, error) {
	if db == nil {
		return nil, errors.New("appointment service: db is required")
	}
	if resolver == nil {
		return nil, errors.New("appointment service: resolver is required")
	}
	return &AppointmentService{
		db:           db,
		auditService: auditService,
		resolver:     resolver,
		now:          time.Now,
	}, nil
}

func (s *AppointmentService) requireManager(ctx context.Context, projectID, userID string) error {
	role, ok, err := s.resolver.Role(ctx, authz.EntityProject, projectID, userID)
	if err != nil {
		return fmt.Errorf("appointment service: resolve project role: %w", err)
	}
	if !ok || role != models.RoleProjectManager {
		return apperrors.ErrForbidden
	}
	return nil
}

// Create schedules a new appointment and records its participants in the same
// transaction. The creator always participates, whether listed or not.
func (s *AppointmentService) Create(ctx context.Context, creatorID string, input CreateAppointmentInput) (*models.Appointment, error) {
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
		return nil, apperrors.NewBadRequest("appointment title is required")
	}
	if input.StartTime.IsZero() {
		return nil, apperrors.NewBadRequest("appointment start time is required")
	}

	participantIDs := normaliseIDs(input.ParticipantIDs)
	if !containsID(participantIDs, creatorID) {
		participantIDs = append(participantIDs, creatorID)
	}

	appointment := &models.Appointment{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		StartTime:   input.StartTime,
		Duration:    input.Duration,
		Location:    strings.TrimSpace(input.Location),
		ProjectID:   projectID,
		CreatedBy:   creatorID,
	}

	invitedAt := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.First(&project, "id = ?", projectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("appointment service: load project: %w", err)
		}

		if input.TeamID != nil && strings.TrimSpace(*input.TeamID) != "" {
			teamID := strings.TrimSpace(*input.TeamID)
			var team models.Team
			err := tx.First(&team, "id = ?", teamID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			if err != nil {
				return fmt.Errorf("appointment service: load team: %w", err)
			}
			if team.ProjectID != projectID {
				return apperrors.NewBadRequest("team does not belong to the project")
			}
			appointment.TeamID = &teamID
		}

		if err := tx.Create(appointment).Error; err != nil {
			return fmt.Errorf("appointment service: create appointment: %w", err)
		}

		for _, userID := range participantIDs {
			var user models.User
			if err := tx.First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("appointment service: load participant: %w", err)
			}
			participant := &models.AppointmentParticipant{
				AppointmentID: appointment.ID,
				UserID:        userID,
				InvitedAt:     invitedAt,
			}
			if err := tx.Create(participant).Error; err != nil {
				return fmt.Errorf("appointment service: create participant: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &creatorID,
		Action:   "appointment.create",
		Resource: appointment.ID,
		Result:   "success",
		Metadata: map[string]any{"title": appointment.Title, "project_id": projectID},
	})

	return appointment, nil
}

// GetByID loads an appointment with its participants.
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx = ensureContext(ctx)

	var appointment models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Participants").
		First(&appointment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment service: get appointment: %w", err)
	}

	return &appointment, nil
}

// ListByProject returns the appointments belonging to a project ordered by start time.
func (s *AppointmentService) ListByProject(ctx context.Context, projectID string) ([]models.Appointment, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.NewBadRequest("project id is required")
	}

	var appointments []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Participants").
		Where("project_id = ?", projectID).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("appointment service: list appointments: %w", err)
	}

	return appointments, nil
}

// Update modifies appointment metadata. Only a Project Manager of the
// appointment's project may modify it.
func (s *AppointmentService) Update(ctx context.Context, actorID, id string, input UpdateAppointmentInput) (*models.Appointment, error) {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var appointment models.Appointment
	err := s.db.WithContext(ctx).First(&appointment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment service: load appointment: %w", err)
	}

	if err := s.requireManager(ctx, appointment.ProjectID, actorID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("appointment title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.StartTime != nil {
		if input.StartTime.IsZero() {
			return nil, apperrors.NewBadRequest("appointment start time is required")
		}
		updates["start_time"] = *input.StartTime
	}
	if input.Duration != nil {
		if *input.Duration <= 0 {
			return nil, apperrors.NewBadRequest("appointment duration must be positive")
		}
		updates["duration"] = *input.Duration
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}

	if len(updates) == 0 {
		return &appointment, nil
	}

	if err := s.db.WithContext(ctx).Model(&appointment).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("appointment service: update appointment: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("appointment service: reload appointment: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "appointment.update",
		Resource: appointment.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &appointment, nil
}

// Delete removes an appointment and its participation rows in one
// transaction. Only a Project Manager of the appointment's project may
// delete it.
func (s *AppointmentService) Delete(ctx context.Context, actorID, id string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperrors.ErrUnauthorized
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appointment models.Appointment
		err := tx.First(&appointment, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return fmt.Errorf("appointment service: load appointment: %w", err)
		}

		if err := s.requireManager(ctx, appointment.ProjectID, actorID); err != nil {
			return err
		}

		if err := tx.Where("appointment_id = ?", id).Delete(&models.AppointmentParticipant{}).Error; err != nil {
			return fmt.Errorf("appointment service: delete participants: %w", err)
		}
		if err := tx.Delete(&appointment).Error; err != nil {
			return fmt.Errorf("appointment service: delete appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "appointment.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

// Participants returns the participation rows for an appointment.
func (s *AppointmentService) Participants(ctx context.Context, appointmentID string) ([]models.AppointmentParticipant, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}

	var participants []models.AppointmentParticipant
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("appointment_id = ?", appointmentID).
		Order("invited_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("appointment service: list participants: %w", err)
	}

	return participants, nil
}

// AddParticipant invites a user to an appointment. Only a Project Manager of
// the appointment's project may manage participation. Re-inviting an existing
// participant is a no-op.
func (s *AppointmentService) AddParticipant(ctx context.Context, actorID, appointmentID, userID string) (*models.AppointmentParticipant, error) {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	appointmentID = strings.TrimSpace(appointmentID)
	userID = strings.TrimSpace(userID)
	if appointmentID == "" || userID == "" {
		return nil, apperrors.NewBadRequest("appointment id and user id are required")
	}

	appointment, err := s.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, appointment.ProjectID, actorID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("appointment service: load user: %w", err)
	}

	participant := &models.AppointmentParticipant{
		AppointmentID: appointmentID,
		UserID:        userID,
		InvitedAt:     s.now(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "appointment_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(participant).Error
	if err != nil {
		return nil, fmt.Errorf("appointment service: add participant: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("appointment_id = ? AND user_id = ?", appointmentID, userID).
		Take(participant).Error; err != nil {
		return nil, fmt.Errorf("appointment service: reload participant: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "appointment.add_participant",
		Resource: appointmentID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return participant, nil
}

// RemoveParticipant withdraws a user from an appointment. Participants may
// remove themselves; removing anyone else requires the Project Manager role.
func (s *AppointmentService) RemoveParticipant(ctx context.Context, actorID, appointmentID, userID string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperrors.ErrUnauthorized
	}
	appointmentID = strings.TrimSpace(appointmentID)
	userID = strings.TrimSpace(userID)
	if appointmentID == "" || userID == "" {
		return apperrors.NewBadRequest("appointment id and user id are required")
	}

	appointment, err := s.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if actorID != userID {
		if err := s.requireManager(ctx, appointment.ProjectID, actorID); err != nil {
			return err
		}
	}

	result := s.db.WithContext(ctx).
		Where("appointment_id = ? AND user_id = ?", appointmentID, userID).
		Delete(&models.AppointmentParticipant{})
	if result.Error != nil {
		return fmt.Errorf("appointment service: remove participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "appointment.remove_participant",
		Resource: appointmentID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}
