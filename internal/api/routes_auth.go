package api

import (
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/teamflow-app/teamflow/internal/auth"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, authHandler *handlers.AuthHandler, jwt *iauth.JWTService) {
	// Public routes get a tighter rate limit to slow down credential stuffing.
	auth := r.Group("/api/auth")
	auth.Use(middleware.RateLimit(20, time.Minute))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/login/federated", authHandler.FederatedLogin)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	authed := r.Group("/api/auth")
	authed.Use(middleware.Auth(jwt))
	{
		authed.GET("/me", authHandler.Me)
		authed.POST("/password", authHandler.ChangePassword)
	}
}
