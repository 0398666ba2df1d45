package model

import (
	"time"
)

// 搜索索引状态
// 状态只向前推进，failed -> queued 仅在重试时发生
const (
	IndexStatusNotIndexed = "not_indexed"
	IndexStatusQueued     = "queued"
	IndexStatusIndexed    = "indexed"
	IndexStatusFailed     = "failed"
)

// IndexStatus 文件的搜索索引状态
// indexed 表示搜索引擎已确认对应的 upsert
type IndexStatus struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	FileID         string     `json:"file_id" gorm:"uniqueIndex:idx_file_org;not null"`
	OrganizationID string     `json:"organization_id" gorm:"uniqueIndex:idx_file_org;not null"`
	Status         string     `json:"status" gorm:"default:not_indexed;index"`
	LastIndexedAt  *time.Time `json:"last_indexed_at"`
	LastError      string     `json:"last_error"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (IndexStatus) TableName() string {
	return "search_index_status"
}
