package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ProjectStatus enumerates the supported project lifecycle states.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "Planning"
	ProjectStatusInProgress ProjectStatus = "In Progress"
	ProjectStatusCompleted  ProjectStatus = "Completed"
)

var validProjectStatuses = map[ProjectStatus]struct{}{
	ProjectStatusPlanning:   {},
	ProjectStatusInProgress: {},
	ProjectStatusCompleted:  {},
}

// Project is the top-level collaboration unit. Deleting a project cascades to
// its tasks, teams, and appointments through ProjectService.
type Project struct {
	BaseModel

	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `gorm:"type:text;not null;default:'Planning'" json:"status"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`

	CreatedBy string `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator   *User  `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	Memberships  []ProjectMembership `gorm:"foreignKey:ProjectID" json:"memberships,omitempty"`
	Teams        []Team              `gorm:"foreignKey:ProjectID" json:"teams,omitempty"`
	Tasks        []Task              `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
	Appointments []Appointment       `gorm:"foreignKey:ProjectID" json:"appointments,omitempty"`
}

// BeforeSave normalises and validates the status enum.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("project: name is required")
	}

	if p.Status == "" {
		p.Status = ProjectStatusPlanning
	}
	if _, ok := validProjectStatuses[p.Status]; !ok {
		return fmt.Errorf("project: invalid status %q", p.Status)
	}
	return nil
}
