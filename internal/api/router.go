package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/app"
	iauth "github.com/teamflow-app/teamflow/internal/auth"
	"github.com/teamflow-app/teamflow/internal/auth/providers"
	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
	"github.com/teamflow-app/teamflow/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The federated provider may be nil when no identity provider is configured.
func NewRouter(
	db *gorm.DB,
	cfg *app.Config,
	jwt *iauth.JWTService,
	sessions *iauth.SessionService,
	federated *providers.FederatedProvider,
) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	// Authorization gate over the membership store
	resolver, err := authz.NewResolver(db)
	if err != nil {
		return nil, err
	}
	gate, err := authz.NewGate(resolver)
	if err != nil {
		return nil, err
	}

	// Services
	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(db, auditService)
	if err != nil {
		return nil, err
	}
	projectService, err := services.NewProjectService(db, auditService)
	if err != nil {
		return nil, err
	}
	teamService, err := services.NewTeamService(db, auditService)
	if err != nil {
		return nil, err
	}
	taskService, err := services.NewTaskService(db, auditService, resolver)
	if err != nil {
		return nil, err
	}
	appointmentService, err := services.NewAppointmentService(db, auditService, resolver)
	if err != nil {
		return nil, err
	}
	localProvider, err := providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, err
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(jwt, sessions, localProvider, federated, userService, cfg.Auth.AdminEmails)
	userHandler := handlers.NewUserHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	auditHandler := handlers.NewAuditHandler(auditService)

	registerAuthRoutes(r, authHandler, jwt)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerUserRoutes(api, userHandler)
	registerProjectRoutes(api, projectHandler, teamHandler, taskHandler, appointmentHandler, gate)
	registerTeamRoutes(api, teamHandler, gate)
	registerTaskRoutes(api, taskHandler, gate)
	registerAppointmentRoutes(api, appointmentHandler, gate)
	registerAuditRoutes(api, auditHandler)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
