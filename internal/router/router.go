package router

import (
	"github.com/ashwinyue/docvault/internal/handler"
	"github.com/ashwinyue/docvault/internal/middleware"
	"github.com/ashwinyue/docvault/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查，不要求认证
	r.GET("/health", h.System.Health)

	// API v1，全部接口按组织隔离
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(svc.Config.Auth.JWTSecret))
	{
		// File 文件
		files := v1.Group("/files")
		{
			files.POST("", h.File.UploadFile)
			files.GET("", h.File.ListFiles)
			files.GET("/:id", h.File.GetFile)
			files.GET("/:id/download", h.File.DownloadFile)
			files.GET("/:id/content", h.File.GetFileContent)
			files.GET("/:id/status", h.Pipeline.GetStatus)
			files.POST("/:id/reprocess", h.Pipeline.Reprocess)
			files.DELETE("/:id", h.File.DeleteFile)
		}

		// Search 搜索
		v1.POST("/search", h.Search.Search)

		// Pipeline 管道管理
		pipeline := v1.Group("/pipeline")
		{
			pipeline.GET("/queues", h.Pipeline.GetQueues)
			pipeline.POST("/reconcile", h.Pipeline.Reconcile)
		}
	}

	return r
}
