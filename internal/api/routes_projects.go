package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
	"github.com/teamflow-app/teamflow/internal/models"
)

// Project routes carry the declarative gate bindings: membership (any role)
// for reads and nested creation, Project Manager for mutations. Nested task,
// team, and appointment collections hang off the project id so the gate can
// resolve the scope from the route.
func registerProjectRoutes(
	api *gin.RouterGroup,
	projectHandler *handlers.ProjectHandler,
	teamHandler *handlers.TeamHandler,
	taskHandler *handlers.TaskHandler,
	appointmentHandler *handlers.AppointmentHandler,
	gate *authz.Gate,
) {
	member := middleware.RequireProjectRole(gate, "projectId", models.RoleTeamMember)
	manager := middleware.RequireProjectRole(gate, "projectId", models.RoleProjectManager)

	projects := api.Group("/projects")
	{
		projects.POST("", projectHandler.Create)
		projects.GET("", projectHandler.List)
		projects.GET("/:projectId", member, projectHandler.Get)
		projects.PUT("/:projectId", manager, projectHandler.Update)
		projects.DELETE("/:projectId", manager, projectHandler.Delete)

		projects.GET("/:projectId/members", member, projectHandler.Members)
		projects.POST("/:projectId/members", manager, projectHandler.AddMember)
		projects.DELETE("/:projectId/members/:userId", manager, projectHandler.RemoveMember)

		projects.GET("/:projectId/teams", member, teamHandler.ListByProject)
		projects.POST("/:projectId/teams", member, teamHandler.Create)

		projects.GET("/:projectId/tasks", member, taskHandler.ListByProject)
		projects.POST("/:projectId/tasks", member, taskHandler.Create)

		projects.GET("/:projectId/appointments", member, appointmentHandler.ListByProject)
		projects.POST("/:projectId/appointments", member, appointmentHandler.Create)
	}
}
