package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
)

func registerAuditRoutes(api *gin.RouterGroup, auditHandler *handlers.AuditHandler) {
	api.GET("/audit", middleware.RequireAdmin(), auditHandler.List)
}
