package feed

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authMiddleware gin.HandlerFunc) {
	feed := router.Group("/feed")
	feed.Use(authMiddleware)
	{
		feed.GET("/news", handler.GetNewsFeed)
		feed.GET("/records/:recordId", handler.GetRecordFeed)

		feed.POST("/elements", handler.CreatePost)
		feed.GET("/elements/:id", handler.GetElement)
		feed.PATCH("/elements/:id", handler.UpdatePost)
		feed.DELETE("/elements/:id", handler.DeletePost)

		feed.POST("/elements/:id/like", handler.Like)
		feed.DELETE("/elements/:id/like", handler.Unlike)
		feed.POST("/elements/:id/bookmark", handler.Bookmark)
		feed.DELETE("/elements/:id/bookmark", handler.RemoveBookmark)
		feed.POST("/elements/:id/mute", handler.Mute)
		feed.DELETE("/elements/:id/mute", handler.Unmute)
	}
}
