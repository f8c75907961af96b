package comments

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authMiddleware gin.HandlerFunc) {
	elements := router.Group("/feed/elements")
	elements.Use(authMiddleware)
	{
		elements.GET("/:id/comments", handler.ListComments)
		elements.POST("/:id/comments", handler.AddComment)
	}

	comments := router.Group("/comments")
	comments.Use(authMiddleware)
	{
		comments.PATCH("/:id", handler.EditComment)
		comments.DELETE("/:id", handler.DeleteComment)
	}
}
