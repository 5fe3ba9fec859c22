package routes

import (
	"species-encyclopedia-api/controllers"
	"species-encyclopedia-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/register", controllers.Register)
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Species Encyclopedia API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Species lifecycle
			species := protected.Group("/species")
			{
				species.POST("", controllers.CreateSpecies)
				species.GET("", controllers.ListSpecies)
				species.GET("/slug/:slug", controllers.GetSpeciesBySlug)
				species.GET("/:id", controllers.GetSpecies)
				species.PUT("/:id", controllers.UpdateSpecies)
				species.DELETE("/:id", controllers.DeleteSpecies)
				species.POST("/:id/submit", controllers.SubmitSpecies)
				species.POST("/:id/resubmit", controllers.ResubmitSpecies)
				species.POST("/:id/request-revision", controllers.RequestSpeciesRevision)
				species.PUT("/:id/reviewer-edit", middleware.RequireReviewer(), controllers.ReviewerEditSpecies)

				// Reviews
				species.POST("/:id/reviews", middleware.RequireReviewer(), controllers.SubmitReview)
				species.GET("/:id/reviews", controllers.GetReviewStatus)

				// Photos
				species.POST("/:id/photos", controllers.UploadSpeciesPhoto)
				species.GET("/:id/photos", controllers.ListSpeciesPhotos)
				species.POST("/:id/photos/:photo_id/approve", middleware.RequireReviewer(), controllers.ApproveSpeciesPhoto)
				species.POST("/:id/photos/:photo_id/reject", middleware.RequireReviewer(), controllers.RejectSpeciesPhoto)
				species.PUT("/:id/photos/:photo_id/primary", controllers.SetPrimaryPhoto)

				// Activity trail
				species.GET("/:id/activity", controllers.GetSpeciesActivity)
			}

			// Review queue
			protected.GET("/reviews/queue", middleware.RequireReviewer(), controllers.GetReviewQueue)

			// Gamification
			gamification := protected.Group("/gamification")
			{
				gamification.GET("/leaderboard", controllers.GetLeaderboard)
				gamification.GET("/profile", controllers.GetMyGamificationProfile)
				gamification.GET("/profile/:user_id", controllers.GetGamificationProfile)
				gamification.GET("/badges", controllers.GetBadgeCatalog)
			}

			// Activity feed
			protected.GET("/activity", controllers.GetGlobalActivity)

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/counter", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
