package repository

import (
	"context"

	"github.com/ashwinyue/docvault/internal/model"
	"gorm.io/gorm"
)

// FileRepository 文件仓库
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建文件仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create 创建文件记录
func (r *FileRepository) Create(ctx context.Context, file *model.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID 根据 (ID, 组织) 获取文件，软删除的文件不可见
func (r *FileRepository) GetByID(ctx context.Context, id, orgID string) (*model.File, error) {
	var file model.File
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Update 更新文件记录
func (r *FileRepository) Update(ctx context.Context, file *model.File) error {
	return r.db.WithContext(ctx).Save(file).Error
}

// Delete 软删除文件记录
func (r *FileRepository) Delete(ctx context.Context, id, orgID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&model.File{}).Error
}

// ListByOrganization 列出组织下的文件
func (r *FileRepository) ListByOrganization(ctx context.Context, orgID string, offset, limit int) ([]*model.File, int64, error) {
	var files []*model.File
	var total int64

	q := r.db.WithContext(ctx).Model(&model.File{}).Where("organization_id = ?", orgID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}
