package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/controllers"
	"github.com/safetyfirst/backend/internal/handlers"
	"github.com/safetyfirst/backend/internal/middleware"
	"github.com/safetyfirst/backend/internal/services"
)

// Deps is everything the router needs.
type Deps struct {
	Tokens    *auth.TokenManager
	Incidents *services.IncidentService
	Reports   *services.ReportService
	Users     *services.UserService
	Locations *services.LocationService
	Health    map[string]handlers.Pinger
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, d Deps) {
	authController := controllers.NewAuthController(d.Users, d.Tokens)
	userController := controllers.NewUserController(d.Users)
	incidentController := controllers.NewIncidentController(d.Incidents, d.Reports)
	locationController := controllers.NewLocationController(d.Locations)

	r.GET("/health", handlers.Health(d.Health))

	api := r.Group("/api/v1")
	{
		// Public routes: the report form needs no login
		api.POST("/auth/login", authController.Login)
		api.GET("/locations", locationController.List)

		public := api.Group("/incidents")
		public.Use(middleware.OptionalAuth(d.Tokens, d.Users))
		{
			public.POST("", incidentController.Submit)
			public.POST("/photos", incidentController.UploadPhoto)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Tokens, d.Users))
		{
			protected.GET("/auth/me", authController.Me)

			incidents := protected.Group("/incidents")
			{
				incidents.GET("", incidentController.List)
				incidents.GET("/mine", incidentController.Mine)
				incidents.GET("/archived", middleware.RequireAdmin(), incidentController.Archived)
				incidents.GET("/:id", incidentController.Get)
				incidents.GET("/:id/events", incidentController.Events)
				incidents.POST("/:id/assign", incidentController.Assign())
				incidents.POST("/:id/resolve", incidentController.Resolve())
				incidents.POST("/:id/reopen", incidentController.Reopen())
				incidents.POST("/:id/archive", incidentController.Archive())
				incidents.POST("/:id/restore", incidentController.Restore())
			}

			users := protected.Group("/users")
			{
				users.GET("/managers", userController.Managers)

				admin := users.Group("")
				admin.Use(middleware.RequireAdmin())
				{
					admin.GET("", userController.GetUsers)
					admin.POST("", userController.AddUser)
					admin.PUT("/:id/role", userController.UpdateUserRole)
					admin.POST("/:id/reset-password", userController.ResetPassword)
					admin.DELETE("/:id", userController.RemoveUser)
				}
			}
		}
	}
}
