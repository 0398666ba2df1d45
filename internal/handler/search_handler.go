package handler

import (
	"github.com/ashwinyue/docvault/internal/middleware"
	"github.com/ashwinyue/docvault/internal/service"
	"github.com/ashwinyue/docvault/internal/service/search"
	"github.com/gin-gonic/gin"
)

// SearchHandler 搜索处理器
type SearchHandler struct {
	svc *service.Services
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(svc *service.Services) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search 组织内全文搜索
// POST /api/v1/search
// 组织过滤取自认证上下文，请求体里的 organization_id 被忽略
func (h *SearchHandler) Search(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	if orgID == "" {
		Unauthorized(c, "organization not resolved")
		return
	}

	var req search.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.OrganizationID = orgID

	hits, err := h.svc.Searcher.Search(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{
		"hits":  hits,
		"total": len(hits),
		"query": req.Query,
	})
}
