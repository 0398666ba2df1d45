package handler

import (
	"strconv"

	"github.com/ashwinyue/docvault/internal/middleware"
	"github.com/ashwinyue/docvault/internal/service"
	"github.com/gin-gonic/gin"
)

// PipelineHandler 管道处理器
type PipelineHandler struct {
	svc *service.Services
}

// NewPipelineHandler 创建管道处理器
func NewPipelineHandler(svc *service.Services) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

// GetStatus 获取文件的管道状态汇总
// GET /api/v1/files/:id/status
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	status, err := h.svc.Pipeline.Status(c.Request.Context(), id, orgID)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, status)
}

// Reprocess 重新处理文件
// POST /api/v1/files/:id/reprocess
// 以低优先级入队，不挤占新上传文件
func (h *PipelineHandler) Reprocess(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	job, err := h.svc.Pipeline.Reprocess(c.Request.Context(), id, orgID)
	if err != nil {
		Error(c, err)
		return
	}

	Accepted(c, gin.H{"job_id": job.ID, "status": job.Status})
}

// GetQueues 获取处理器运行状态与各队列长度
// GET /api/v1/pipeline/queues
func (h *PipelineHandler) GetQueues(c *gin.Context) {
	Success(c, gin.H{
		"is_running": h.svc.Pipeline.Running(),
		"queues":     h.svc.Pipeline.QueueStats(c.Request.Context()),
	})
}

// Reconcile 手工触发对账扫描
// POST /api/v1/pipeline/reconcile
func (h *PipelineHandler) Reconcile(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if err := h.svc.Pipeline.Reconcile(c.Request.Context(), h.svc.Storage, limit); err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{"message": "Reconcile completed"})
}
