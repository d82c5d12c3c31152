package main

import (
	"github.com/gin-gonic/gin"
	"github.com/panelbridge/surveylink/internal/config"
	"github.com/panelbridge/surveylink/internal/handlers"
	"github.com/panelbridge/surveylink/internal/middleware"
	"github.com/panelbridge/surveylink/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for respondent-facing routes
	publicLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Health check
	r.GET("/health", handlers.Health)

	// Respondent-facing routes (public, rate limited)
	public := r.Group("", publicLimiter.Middleware())
	{
		public.GET("/s/:projectId/:uid", svc.presurveyHandler.Redirect)
		public.GET("/survey/:projectId/:uid", svc.presurveyHandler.Entry)
	}

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Respondent API (public, rate limited)
		apiPublic := api.Group("", publicLimiter.Middleware())
		{
			apiPublic.POST("/presurvey/submit", svc.presurveyHandler.Submit)
			apiPublic.GET("/links/complete", svc.presurveyHandler.Complete)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Dashboard
			protected.GET("/dashboard/stats", svc.dashboardHandler.Stats)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)

			// Project vendor associations
			protected.POST("/projects/:id/vendors/:vendorId", svc.vendorHandler.Attach)
			protected.DELETE("/projects/:id/vendors/:vendorId", svc.vendorHandler.Detach)

			// Presurvey questions
			protected.GET("/projects/:id/questions", svc.questionHandler.ListByProject)
			protected.POST("/projects/:id/questions", svc.questionHandler.Create)
			protected.PUT("/questions/:id", svc.questionHandler.Update)
			protected.DELETE("/questions/:id", svc.questionHandler.Delete)

			// Vendors
			protected.GET("/vendors", svc.vendorHandler.List)
			protected.GET("/vendors/:id", svc.vendorHandler.GetByID)
			protected.POST("/vendors", svc.vendorHandler.Create)
			protected.PUT("/vendors/:id", svc.vendorHandler.Update)
			protected.DELETE("/vendors/:id", svc.vendorHandler.Delete)

			// Links
			protected.POST("/links/generate", svc.linkHandler.Generate)
			protected.POST("/links/generate-async", svc.linkHandler.GenerateAsync)
			protected.POST("/links/save-batch", svc.linkHandler.SaveBatch)
			protected.POST("/links/flag", svc.linkHandler.Flag)
			protected.GET("/links", svc.linkHandler.List)
			protected.GET("/links/:id", svc.linkHandler.GetByID)

			// Quality control
			protected.POST("/qc/update-flag-status", svc.qcHandler.UpdateFlagStatus)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.GET("/audit-logs", svc.auditLogHandler.List)
			admin.POST("/audit-logs/cleanup", svc.auditLogHandler.Cleanup)
		}
	}
}
