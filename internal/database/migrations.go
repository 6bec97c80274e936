package database

import (
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.OAuthIdentity{},
		&models.Session{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Team{},
		&models.TeamMembership{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.Appointment{},
		&models.AppointmentParticipant{},
		&models.AuditLog{},
	)
}
