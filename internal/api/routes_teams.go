package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
	"github.com/teamflow-app/teamflow/internal/models"
)

func registerTeamRoutes(api *gin.RouterGroup, teamHandler *handlers.TeamHandler, gate *authz.Gate) {
	member := middleware.RequireTeamRole(gate, "teamId", models.RoleTeamMember)
	manager := middleware.RequireTeamRole(gate, "teamId", models.RoleProjectManager)

	teams := api.Group("/teams")
	{
		teams.GET("/:teamId", member, teamHandler.Get)
		teams.PUT("/:teamId", manager, teamHandler.Update)
		teams.DELETE("/:teamId", manager, teamHandler.Delete)

		teams.GET("/:teamId/members", member, teamHandler.Members)
		teams.POST("/:teamId/members", manager, teamHandler.AddMember)
		teams.DELETE("/:teamId/members/:userId", manager, teamHandler.RemoveMember)
	}
}
