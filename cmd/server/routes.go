package main

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/handlers"
	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowedOrigins...))
	r.Use(svc.metrics.Middleware())

	healthHandler := handlers.NewHealthHandler(svc.db, svc.repo, svc.activity)
	r.GET("/health", healthHandler.Liveness)
	r.GET("/metrics", gin.WrapH(svc.metrics.Handler()))

	authRequired := middleware.AuthRequired(svc.identity, svc.auth)

	api := r.Group("/api")
	{
		authHandler := handlers.NewAuthHandler(svc.auth, svc.identity)

		// Auth routes (public, rate limited per client IP)
		auth := api.Group("/auth")
		{
			auth.POST("/register", svc.authLimiter.Middleware(), authHandler.Register)
			auth.POST("/login", svc.authLimiter.Middleware(), authHandler.Login)
		}

		// SSE events accept ?token= since EventSource cannot set headers
		sseHandler := handlers.NewSSEHandler(svc.activity.Hub())
		api.GET("/events", middleware.StreamAuthRequired(svc.identity, svc.auth), sseHandler.Stream)

		// Protected routes
		protected := api.Group("")
		protected.Use(authRequired, middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)
			protected.GET("/dashboard/recent", dashboardHandler.Recent)

			// Projects
			projectHandler := handlers.NewProjectHandler(svc.projects)
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Tasks
			taskHandler := handlers.NewTaskHandler(svc.tasks)
			protected.GET("/tasks", taskHandler.List)
			protected.POST("/projects/:id/tasks", taskHandler.Create)
			protected.GET("/projects/:id/tasks/:taskId", taskHandler.GetByID)
			protected.PUT("/projects/:id/tasks/:taskId", taskHandler.Update)
			protected.DELETE("/projects/:id/tasks/:taskId", taskHandler.Delete)

			// Team
			teamHandler := handlers.NewTeamHandler(svc.team)
			protected.GET("/team", teamHandler.List)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(authRequired, middleware.RequirePermission(domain.PermAccessAdminPanel), middleware.AuditLog())
		{
			userHandler := handlers.NewUserHandler(svc.users)
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id/role", userHandler.UpdateRole)
			admin.DELETE("/users/:id", userHandler.Delete)

			activityHandler := handlers.NewActivityHandler(svc.activity)
			logs := admin.Group("/activity", middleware.RequirePermission(domain.PermViewSystemLogs))
			logs.GET("", activityHandler.List)
			logs.GET("/events", activityHandler.Events)

			admin.GET("/health", healthHandler.CheckHealth)
		}
	}
}
