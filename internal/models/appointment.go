package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Appointment is a scheduled meeting within a project, optionally scoped to a
// team. The creator is always a participant.
type Appointment struct {
	BaseModel

	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `gorm:"not null" json:"start_time"`
	Duration    int       `gorm:"not null;default:30" json:"duration_minutes"`
	Location    string    `json:"location"`

	ProjectID string   `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	TeamID    *string  `gorm:"type:uuid;index" json:"team_id"`
	Team      *Team    `gorm:"foreignKey:TeamID" json:"team,omitempty"`

	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`
	Creator   *User  `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	Participants []AppointmentParticipant `gorm:"foreignKey:AppointmentID" json:"participants,omitempty"`
}

// BeforeSave validates the required appointment fields.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return errors.New("appointment: title is required")
	}
	if a.StartTime.IsZero() {
		return errors.New("appointment: start time is required")
	}
	if a.Duration <= 0 {
		a.Duration = 30
	}
	return nil
}

// AppointmentParticipant records a user's participation in an appointment.
type AppointmentParticipant struct {
	BaseModel

	AppointmentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_user" json:"appointment_id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_appointment_user" json:"user_id"`
	InvitedAt     time.Time `gorm:"not null" json:"invited_at"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"appointment,omitempty"`
	User        *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
