package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/docvault/internal/model"
	"gorm.io/gorm"
)

// StorageRepository 存储位置与同步任务仓库
// 实现 storage.Store 接口
type StorageRepository struct {
	db *gorm.DB
}

// NewStorageRepository 创建存储仓库
func NewStorageRepository(db *gorm.DB) *StorageRepository {
	return &StorageRepository{db: db}
}

// GetFile 获取文件记录（供校验和比对）
func (r *StorageRepository) GetFile(ctx context.Context, fileID, orgID string) (*model.File, error) {
	var file model.File
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", fileID, orgID).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateLocation 创建存储位置记录
func (r *StorageRepository) CreateLocation(ctx context.Context, loc *model.StorageLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

// LocationsForFile 获取文件的全部存储位置
func (r *StorageRepository) LocationsForFile(ctx context.Context, fileID string) ([]*model.StorageLocation, error) {
	var locs []*model.StorageLocation
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("is_primary DESC").
		Find(&locs).Error
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// DeleteLocation 删除存储位置记录
func (r *StorageRepository) DeleteLocation(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.StorageLocation{}, id).Error
}

// TouchVerified 更新位置的最后校验时间
func (r *StorageRepository) TouchVerified(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.StorageLocation{}).
		Where("id = ?", id).
		Update("last_verified_at", &now).Error
}

// CreateSyncJob 创建存储同步任务
func (r *StorageRepository) CreateSyncJob(ctx context.Context, job *model.StorageSyncJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// PendingSyncJobs 获取待处理的同步任务
func (r *StorageRepository) PendingSyncJobs(ctx context.Context, limit int) ([]*model.StorageSyncJob, error) {
	var jobs []*model.StorageSyncJob
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SyncJobPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateSyncJob 更新同步任务
func (r *StorageRepository) UpdateSyncJob(ctx context.Context, job *model.StorageSyncJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}
