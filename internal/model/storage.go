package model

import (
	"time"
)

// 存储后端类型
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// StorageLocation 文件存储位置
// 每个 (文件, 后端) 一行；活跃文件恰好有一个主位置，至多一个备份位置
type StorageLocation struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	FileID         string     `json:"file_id" gorm:"index;not null"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	BackendKind    string     `json:"backend_kind" gorm:"not null"` // local, minio
	LocationKey    string     `json:"location_key" gorm:"not null"` // 后端内的不透明存储键
	FileSize       int64      `json:"file_size"`
	IsPrimary      bool       `json:"is_primary"`
	IsBackup       bool       `json:"is_backup"`
	LastVerifiedAt *time.Time `json:"last_verified_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (StorageLocation) TableName() string {
	return "file_storage_locations"
}

// 存储同步任务类型
const (
	SyncJobBackupRepair = "backup_repair" // 备份写失败，需从主副本修复
	SyncJobDeleteRetry  = "delete_retry"  // 后端删除失败，需重试
)

// 存储同步任务状态
const (
	SyncJobPending   = "pending"
	SyncJobCompleted = "completed"
	SyncJobFailed    = "failed"
)

// StorageSyncJob 存储同步任务
// 记录冗余降级与清理残留，由修复扫描处理
type StorageSyncJob struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	FileID         string    `json:"file_id" gorm:"index;not null"`
	OrganizationID string    `json:"organization_id" gorm:"index"`
	Kind           string    `json:"kind" gorm:"not null"` // backup_repair, delete_retry
	BackendKind    string    `json:"backend_kind"`
	LocationKey    string    `json:"location_key"`
	Status         string    `json:"status" gorm:"default:pending;index"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (StorageSyncJob) TableName() string {
	return "storage_sync_jobs"
}
