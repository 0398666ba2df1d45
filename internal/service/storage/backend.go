package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Backend 存储后端接口
// 以不透明存储键定位字节内容
type Backend interface {
	// Kind 返回后端类型（local, minio）
	Kind() string
	// Put 写入对象
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get 读取对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象
	Delete(ctx context.Context, key string) error
	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Health 检查后端可用性
	Health(ctx context.Context) error
}

// NewKey 生成存储键: {orgID}/{uuid}.{ext}
func NewKey(orgID, fileName, contentType string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = extensionByContentType(contentType)
	}
	return fmt.Sprintf("%s/%s%s", orgID, uuid.New().String(), ext)
}

// extensionByContentType 根据内容类型返回扩展名
func extensionByContentType(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "text/csv":
		return ".csv"
	case "text/plain":
		return ".txt"
	case "text/markdown":
		return ".md"
	case "application/json":
		return ".json"
	case "text/html":
		return ".html"
	default:
		return ".bin"
	}
}
