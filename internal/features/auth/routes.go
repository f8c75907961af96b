package auth

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the auth and user routes. authMiddleware guards the
// user routes; searchLimit throttles the mention search.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authMiddleware, searchLimit gin.HandlerFunc) {
	auth := router.Group("/auth")
	{
		auth.POST("/google", handler.GoogleLogin)
		auth.POST("/dev-login", handler.DevLogin)
	}

	users := router.Group("/users")
	users.Use(authMiddleware)
	{
		users.GET("/me", handler.GetMe)
		users.GET("/search", searchLimit, handler.SearchUsers)
	}
}
