package handler

import (
	"context"
	"log"
	"time"

	"github.com/ashwinyue/docvault/internal/service"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health 健康检查
// GET /health
// 每个探测独立兜底，任何依赖故障都不能让这个接口本身失败
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{
		"database":      probe(func() error { return h.pingDatabase(ctx) }),
		"redis":         probe(func() error { return h.svc.Redis.Ping(ctx).Err() }),
		"elasticsearch": probe(func() error { return h.svc.Indexer.Health(ctx) }),
	}

	storageStatus := map[string]string{"primary": "unknown"}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Health probe panic (storage): %v", r)
			}
		}()
		storageStatus = h.svc.Storage.Health(ctx)
	}()
	checks["storage"] = storageStatus

	status := "ok"
	for _, v := range checks {
		if s, ok := v.(string); ok && s != "healthy" {
			status = "degraded"
		}
	}
	if storageStatus["primary"] != "healthy" {
		status = "degraded"
	}

	c.JSON(200, gin.H{
		"status":  status,
		"version": h.svc.Config.App.Version,
		"checks":  checks,
	})
}

// pingDatabase 探测数据库连接
func (h *SystemHandler) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.svc.Repos.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// probe 执行单个探测，panic 与错误都归一为状态字符串
func probe(fn func() error) (status string) {
	status = "unhealthy"
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Health probe panic: %v", r)
		}
	}()
	if err := fn(); err == nil {
		status = "healthy"
	}
	return status
}
