package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
)

// Task reads are gated on assignment (binary, no role gradation). Mutations
// go through the service, which applies the manager/assignee two-tier rule
// after confirming the task exists.
func registerTaskRoutes(api *gin.RouterGroup, taskHandler *handlers.TaskHandler, gate *authz.Gate) {
	assigned := middleware.RequireTaskAssignment(gate, "taskId")

	tasks := api.Group("/tasks")
	{
		tasks.GET("/:taskId", assigned, taskHandler.Get)
		tasks.PUT("/:taskId", taskHandler.Update)
		tasks.DELETE("/:taskId", taskHandler.Delete)

		tasks.GET("/:taskId/assignees", assigned, taskHandler.Assignees)
		tasks.POST("/:taskId/assignees", taskHandler.Assign)
		tasks.DELETE("/:taskId/assignees/:userId", taskHandler.Unassign)
	}
}
