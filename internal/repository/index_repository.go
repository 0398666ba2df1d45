package repository

import (
	"context"
	"errors"

	"github.com/ashwinyue/docvault/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndexRepository 搜索索引状态仓库
type IndexRepository struct {
	db *gorm.DB
}

// NewIndexRepository 创建索引状态仓库
func NewIndexRepository(db *gorm.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

// Upsert 写入索引状态，同一 (文件, 组织) 冲突时替换
func (r *IndexRepository) Upsert(ctx context.Context, st *model.IndexStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_id"}, {Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "last_indexed_at", "last_error", "updated_at",
		}),
	}).Create(st).Error
}

// Get 获取索引状态，不存在返回 nil
func (r *IndexRepository) Get(ctx context.Context, fileID, orgID string) (*model.IndexStatus, error) {
	var st model.IndexStatus
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND organization_id = ?", fileID, orgID).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// QueuedStatuses 获取排队中的索引状态（用于对账扫描）
func (r *IndexRepository) QueuedStatuses(ctx context.Context, limit int) ([]*model.IndexStatus, error) {
	var sts []*model.IndexStatus
	err := r.db.WithContext(ctx).
		Where("status = ?", model.IndexStatusQueued).
		Order("updated_at ASC").
		Limit(limit).
		Find(&sts).Error
	if err != nil {
		return nil, err
	}
	return sts, nil
}
