package files

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authMiddleware gin.HandlerFunc) {
	files := router.Group("/files")
	files.Use(authMiddleware)
	{
		files.POST("/versions", handler.CreateVersion)
		files.GET("/versions/:id/document", handler.GetVersionDocument)
		files.DELETE("/documents/:id", handler.DeleteDocument)
	}
}
