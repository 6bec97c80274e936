package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TaskStatus enumerates the supported task states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

var validTaskStatuses = map[TaskStatus]struct{}{
	TaskStatusPending:    {},
	TaskStatusInProgress: {},
	TaskStatusCompleted:  {},
}

// TaskPriority enumerates the supported task priorities.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

var validTaskPriorities = map[TaskPriority]struct{}{
	TaskPriorityLow:    {},
	TaskPriorityMedium: {},
	TaskPriorityHigh:   {},
}

// Task belongs to a project and optionally to one of its teams.
type Task struct {
	BaseModel

	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `gorm:"type:text;not null;default:'Medium'" json:"priority"`
	Status      TaskStatus   `gorm:"type:text;not null;default:'Pending'" json:"status"`
	DueDate     *time.Time   `json:"due_date"`

	ProjectID string   `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	TeamID    *string  `gorm:"type:uuid;index" json:"team_id"`
	Team      *Team    `gorm:"foreignKey:TeamID" json:"team,omitempty"`

	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`
	Creator   *User  `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	Assignees []TaskAssignee `gorm:"foreignKey:TaskID" json:"assignees,omitempty"`
}

// BeforeSave normalises and validates the status/priority enums.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("task: title is required")
	}

	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if _, ok := validTaskStatuses[t.Status]; !ok {
		return fmt.Errorf("task: invalid status %q", t.Status)
	}

	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	if _, ok := validTaskPriorities[t.Priority]; !ok {
		return fmt.Errorf("task: invalid priority %q", t.Priority)
	}
	return nil
}

// TaskAssignee records that a user is assigned to a task. At most one assignee
// per task carries the primary flag; TaskService enforces this at write time.
type TaskAssignee struct {
	BaseModel

	TaskID  string `gorm:"type:uuid;not null;uniqueIndex:idx_task_user" json:"task_id"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_task_user" json:"user_id"`
	Primary bool   `gorm:"default:false" json:"primary"`

	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
