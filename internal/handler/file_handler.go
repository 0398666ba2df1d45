package handler

import (
	"io"
	"log"
	"strconv"

	"github.com/ashwinyue/docvault/internal/middleware"
	"github.com/ashwinyue/docvault/internal/model"
	"github.com/ashwinyue/docvault/internal/service"
	"github.com/ashwinyue/docvault/internal/service/extract"
	"github.com/ashwinyue/docvault/internal/service/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 单次上传大小上限
const maxUploadSize = 100 << 20 // 100MB

// FileHandler 文件处理器
type FileHandler struct {
	svc *service.Services
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.Services) *FileHandler {
	return &FileHandler{svc: svc}
}

// UploadFile 上传文件
// POST /api/v1/files
// 上传成功即返回 201，提取与索引异步进行
func (h *FileHandler) UploadFile(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	if orgID == "" {
		Unauthorized(c, "organization not resolved")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required: "+err.Error())
		return
	}
	if fileHeader.Size > maxUploadSize {
		BadRequest(c, "file exceeds size limit")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		Error(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		Error(c, err)
		return
	}
	if len(data) == 0 {
		BadRequest(c, "file is empty")
		return
	}

	visibility := model.Visibility(c.PostForm("visibility"))
	switch visibility {
	case model.VisibilityPublic, model.VisibilityOrg, model.VisibilityPrivate:
	case "":
		visibility = model.VisibilityOrg
	default:
		BadRequest(c, "invalid visibility: "+string(visibility))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	file := &model.File{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		FileName:       fileHeader.Filename,
		ContentType:    contentType,
		DeclaredType:   extract.DetectType(contentType, fileHeader.Filename),
		FileSize:       int64(len(data)),
		Checksum:       storage.Checksum(data),
		UploadedBy:     middleware.GetUserID(c),
		Visibility:     visibility,
		DocTitle:       c.PostForm("title"),
		DocAuthor:      c.PostForm("author"),
		DocSubject:     c.PostForm("subject"),
		DocKeywords:    c.PostForm("keywords"),
	}

	if err := h.svc.Repos.File.Create(c.Request.Context(), file); err != nil {
		Error(c, err)
		return
	}

	if _, err := h.svc.Storage.Store(c.Request.Context(), &storage.StoreRequest{
		FileID:      file.ID,
		OrgID:       orgID,
		FileName:    file.FileName,
		ContentType: contentType,
		Data:        data,
	}); err != nil {
		// 内容没落盘，回滚元数据
		_ = h.svc.Repos.File.Delete(c.Request.Context(), file.ID, orgID)
		Error(c, err)
		return
	}

	job, err := h.svc.Pipeline.CreateExtractionJob(c.Request.Context(), file, 0)
	if err != nil {
		log.Printf("Warning: failed to create extraction job for file %s: %v", file.ID, err)
	}

	resp := gin.H{"file": file}
	if job != nil {
		resp["extraction_job_id"] = job.ID
	}
	Created(c, resp)
}

// GetFile 获取文件元数据
// GET /api/v1/files/:id
func (h *FileHandler) GetFile(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	file, err := h.svc.Repos.File.GetByID(c.Request.Context(), id, orgID)
	if err != nil {
		NotFound(c, "file not found")
		return
	}

	Success(c, file)
}

// ListFiles 列出组织下的文件
// GET /api/v1/files
func (h *FileHandler) ListFiles(c *gin.Context) {
	orgID := middleware.GetOrgID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	files, total, err := h.svc.Repos.File.ListByOrganization(c.Request.Context(), orgID, (page-1)*pageSize, pageSize)
	if err != nil {
		Error(c, err)
		return
	}

	SuccessWithPagination(c, files, total, page, pageSize)
}

// DownloadFile 下载文件内容
// GET /api/v1/files/:id/download
// 读取按校验和验证，主副本损坏时自动回退到备份
func (h *FileHandler) DownloadFile(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	file, err := h.svc.Repos.File.GetByID(c.Request.Context(), id, orgID)
	if err != nil {
		NotFound(c, "file not found")
		return
	}

	data, err := h.svc.Storage.Retrieve(c.Request.Context(), id, orgID, c.Query("backend"))
	if err != nil {
		Error(c, err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", "attachment; filename="+file.FileName)
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(200, file.ContentType, data)
}

// DeleteFile 删除文件
// DELETE /api/v1/files/:id
// 先软删权威记录，再清理索引与副本；副本清理失败由重试任务兜底
func (h *FileHandler) DeleteFile(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	if _, err := h.svc.Repos.File.GetByID(c.Request.Context(), id, orgID); err != nil {
		NotFound(c, "file not found")
		return
	}

	if err := h.svc.Repos.File.Delete(c.Request.Context(), id, orgID); err != nil {
		Error(c, err)
		return
	}

	if err := h.svc.Indexer.Delete(c.Request.Context(), id, orgID); err != nil {
		log.Printf("Warning: failed to remove file %s from index: %v", id, err)
	}
	if err := h.svc.Storage.Delete(c.Request.Context(), id, orgID); err != nil {
		log.Printf("Warning: failed to delete blobs for file %s: %v", id, err)
	}

	Success(c, gin.H{"message": "File deleted successfully"})
}

// GetFileContent 获取提取的文本内容
// GET /api/v1/files/:id/content
func (h *FileHandler) GetFileContent(c *gin.Context) {
	orgID := middleware.GetOrgID(c)
	id := c.Param("id")

	if _, err := h.svc.Repos.File.GetByID(c.Request.Context(), id, orgID); err != nil {
		NotFound(c, "file not found")
		return
	}

	kind := c.DefaultQuery("kind", model.ContentKindFullText)
	content, err := h.svc.Repos.Extraction.GetContent(c.Request.Context(), id, kind)
	if err != nil {
		Error(c, err)
		return
	}
	if content == nil {
		NotFound(c, "content not extracted yet")
		return
	}

	Success(c, content)
}
