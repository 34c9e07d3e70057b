package controllers

import (
	"ClinicHub/handlers"
	"ClinicHub/middlewares"
	"ClinicHub/models"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
	auth    gin.HandlerFunc
}

// NewAuthController creates a new AuthController; auth is the session middleware.
func NewAuthController(authHandler *handlers.AuthHandler, auth gin.HandlerFunc) *AuthController {
	return &AuthController{
		Handler: authHandler,
		auth:    auth,
	}
}

// RegisterRoutes initializes all authentication and team routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/send-reset-code", ac.Handler.SendResetCode)
	router.POST("/auth/reset-password", ac.Handler.ResetPassword)

	// Protected routes: Requires a valid token
	authGroup := router.Group("/auth").Use(ac.auth)
	{
		authGroup.GET("/session", ac.Handler.Session)
		authGroup.GET("/user/profile", ac.Handler.GetUserProfile)
		authGroup.PUT("/user/update-profile", ac.Handler.UpdateUserProfile)
		authGroup.POST("/change-password", ac.Handler.ChangePassword)
	}

	// Team routes: Requires a valid token and the Admin role
	teamGroup := router.Group("/team").Use(
		ac.auth,
		middlewares.RoleAuthMiddleware(models.RoleAdmin),
	)
	{
		teamGroup.GET("", ac.Handler.ListTeam)
		teamGroup.PUT("/:id/role", ac.Handler.UpdateRole)
		teamGroup.DELETE("/:id", ac.Handler.DeleteMember)
	}
}
