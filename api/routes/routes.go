package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pdf2zh/pdf2zh/api/handlers"
	"github.com/pdf2zh/pdf2zh/api/middleware"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	v1.GET("/health", h.Translate.Health)
	v1.GET("/services", h.Translate.Services)

	translate := v1.Group("/translate")
	{
		translate.POST("", h.Translate.Translate)
		translate.POST("/batch", h.Translate.TranslateBatch)
		translate.GET("/status/:taskId", h.Translate.GetStatus)
		translate.GET("/download/:taskId", h.Translate.Download)
		translate.DELETE("/task/:taskId", h.Translate.Cancel)
	}
}
