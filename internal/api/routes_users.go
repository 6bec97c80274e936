package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
)

func registerUserRoutes(api *gin.RouterGroup, userHandler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", userHandler.List)
		users.PUT("/me", userHandler.UpdateProfile)
		users.GET("/:userId", userHandler.Get)
		users.DELETE("/:userId", middleware.RequireAdmin(), userHandler.Deactivate)
	}
}
