package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/models"
	"github.com/teamflow-app/teamflow/internal/services"
	"github.com/teamflow-app/teamflow/pkg/errors"
	"github.com/teamflow-app/teamflow/pkg/response"
)

// TaskHandler exposes task CRUD and assignment endpoints.
type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    string     `json:"priority" validate:"omitempty,oneof='Low' 'Medium' 'High'"`
	Status      string     `json:"status" validate:"omitempty,oneof='Pending' 'In Progress' 'Completed'"`
	DueDate     *time.Time `json:"due_date"`
	TeamID      *string    `json:"team_id"`
	AssigneeIDs []string   `json:"assignee_ids"`
	PrimaryID   string     `json:"primary_assignee_id"`
}

// POST /api/projects/:projectId/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), userID, services.CreateTaskInput{
		ProjectID:   c.Param("projectId"),
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.TaskPriority(req.Priority),
		Status:      models.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		AssigneeIDs: req.AssigneeIDs,
		PrimaryID:   req.PrimaryID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, task)
}

// GET /api/projects/:projectId/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	tasks, err := h.tasks.ListByProject(requestContext(c), c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:taskId
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.GetByID(requestContext(c), c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

type updateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof='Low' 'Medium' 'High'"`
	Status      *string    `json:"status" validate:"omitempty,oneof='Pending' 'In Progress' 'Completed'"`
	DueDate     *time.Time `json:"due_date"`
}

// PUT /api/tasks/:taskId
//
// The service decides what the caller may change: managers update anything,
// assignees only the status.
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}

	task, err := h.tasks.Update(requestContext(c), c.Param("taskId"), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.tasks.Delete(requestContext(c), userID, c.Param("taskId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/tasks/:taskId/assignees
func (h *TaskHandler) Assignees(c *gin.Context) {
	assignees, err := h.tasks.Assignees(requestContext(c), c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, assignees)
}

type assignTaskRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Primary bool   `json:"primary"`
}

// POST /api/tasks/:taskId/assignees
func (h *TaskHandler) Assign(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req assignTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	assignee, err := h.tasks.Assign(requestContext(c), userID, c.Param("taskId"), req.UserID, req.Primary)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, assignee)
}

// DELETE /api/tasks/:taskId/assignees/:userId
func (h *TaskHandler) Unassign(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.tasks.Unassign(requestContext(c), userID, c.Param("taskId"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
