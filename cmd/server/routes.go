package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(svc.cfg.CORS.AllowedOrigins))

	r.GET("/health", svc.healthHandler.CheckHealth)

	authenticate := middleware.Authenticate(svc.authService)

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth")
		{
			limited := auth.Group("", svc.authLimiter.Middleware())
			limited.POST("/register", svc.authHandler.Register)
			limited.POST("/login", svc.authHandler.Login)
			limited.POST("/refresh-token", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)

			auth.GET("/me", authenticate, svc.authHandler.GetCurrentUser)
			auth.POST("/change-password", authenticate, svc.authHandler.ChangePassword)
		}

		// Tasks (owner scoped)
		tasks := api.Group("/tasks", authenticate)
		{
			tasks.GET("", svc.taskHandler.List)
			tasks.GET("/metadata", svc.taskHandler.Metadata)
			tasks.GET("/:id", svc.taskHandler.GetByID)
			tasks.POST("", svc.taskHandler.Create)
			tasks.PATCH("/:id", svc.taskHandler.Update)
			tasks.DELETE("/:id", svc.taskHandler.Delete)
		}

		// Comments
		comments := api.Group("/comments", authenticate)
		{
			comments.GET("/task/:taskId", svc.commentHandler.ListByTask)
			comments.GET("/:id", svc.commentHandler.GetByID)
			comments.POST("", svc.commentHandler.Create)
			comments.PATCH("/:id", svc.commentHandler.Update)
			comments.DELETE("/:id", svc.commentHandler.Delete)
		}

		protected := api.Group("/protected", authenticate)
		{
			protected.GET("/user", svc.protected.User)
			protected.GET("/admin", middleware.RequireRoles(models.RoleAdmin), svc.protected.Admin)
		}

		// Admin routes, write operations are audited
		admin := api.Group("/admin", authenticate, middleware.RequireAdmin(), middleware.AuditLog(svc.auditService))
		{
			admin.GET("/users", svc.adminHandler.ListUsers)
			admin.GET("/users/:id", svc.adminHandler.GetUser)
			admin.POST("/users", svc.adminHandler.CreateUser)
			admin.PATCH("/users/:id", svc.adminHandler.UpdateUser)
			admin.DELETE("/users/:id", svc.adminHandler.DeleteUser)
			admin.GET("/roles", svc.adminHandler.ListRoles)
			admin.GET("/audit-logs", svc.adminHandler.ListAuditLogs)
		}
	}
}
