package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/services"
	"github.com/teamflow-app/teamflow/pkg/errors"
	"github.com/teamflow-app/teamflow/pkg/response"
)

// AppointmentHandler exposes appointment CRUD and participation endpoints.
type AppointmentHandler struct {
	appointments *services.AppointmentService
}

func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

type createAppointmentRequest struct {
	Title          string    `json:"title" validate:"required,min=1,max=200"`
	Description    string    `json:"description" validate:"max=2000"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	Duration       int       `json:"duration_minutes" validate:"omitempty,min=1"`
	Location       string    `json:"location" validate:"max=500"`
	TeamID         *string   `json:"team_id"`
	ParticipantIDs []string  `json:"participant_ids"`
}

// POST /api/projects/:projectId/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createAppointmentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	appointment, err := h.appointments.Create(requestContext(c), userID, services.CreateAppointmentInput{
		ProjectID:      c.Param("projectId"),
		TeamID:         req.TeamID,
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		Duration:       req.Duration,
		Location:       req.Location,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, appointment)
}

// GET /api/projects/:projectId/appointments
func (h *AppointmentHandler) ListByProject(c *gin.Context) {
	appointments, err := h.appointments.ListByProject(requestContext(c), c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, appointments)
}

// GET /api/appointments/:appointmentId
func (h *AppointmentHandler) Get(c *gin.Context) {
	appointment, err := h.appointments.GetByID(requestContext(c), c.Param("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, appointment)
}

type updateAppointmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	Duration    *int       `json:"duration_minutes" validate:"omitempty,min=1"`
	Location    *string    `json:"location" validate:"omitempty,max=500"`
}

// PUT /api/appointments/:appointmentId
func (h *AppointmentHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateAppointmentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	appointment, err := h.appointments.Update(requestContext(c), userID, c.Param("appointmentId"), services.UpdateAppointmentInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		Duration:    req.Duration,
		Location:    req.Location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, appointment)
}

// DELETE /api/appointments/:appointmentId
func (h *AppointmentHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.appointments.Delete(requestContext(c), userID, c.Param("appointmentId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/appointments/:appointmentId/participants
func (h *AppointmentHandler) Participants(c *gin.Context) {
	participants, err := h.appointments.Participants(requestContext(c), c.Param("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, participants)
}

type addParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// POST /api/appointments/:appointmentId/participants
func (h *AppointmentHandler) AddParticipant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req addParticipantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	participant, err := h.appointments.AddParticipant(requestContext(c), userID, c.Param("appointmentId"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, participant)
}

// DELETE /api/appointments/:appointmentId/participants/:userId
func (h *AppointmentHandler) RemoveParticipant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.appointments.RemoveParticipant(requestContext(c), userID, c.Param("appointmentId"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
