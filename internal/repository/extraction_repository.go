package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ashwinyue/docvault/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExtractionRepository 提取任务与提取内容仓库
type ExtractionRepository struct {
	db *gorm.DB
}

// NewExtractionRepository 创建提取仓库
func NewExtractionRepository(db *gorm.DB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// CreateJob 创建提取任务
func (r *ExtractionRepository) CreateJob(ctx context.Context, job *model.ExtractionJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetJob 根据 ID 获取提取任务
func (r *ExtractionRepository) GetJob(ctx context.Context, id string) (*model.ExtractionJob, error) {
	var job model.ExtractionJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob 更新提取任务
func (r *ExtractionRepository) UpdateJob(ctx context.Context, job *model.ExtractionJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// ActiveJobForFile 获取文件的非终态提取任务，不存在返回 nil
func (r *ExtractionRepository) ActiveJobForFile(ctx context.Context, fileID string) (*model.ExtractionJob, error) {
	var job model.ExtractionJob
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND status IN ?", fileID,
			[]string{model.JobStatusPending, model.JobStatusProcessing}).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// PendingJobs 获取待重新派发的任务（用于队列丢失后的对账扫描）
// pending 任务之外还包括停留过久的 processing 任务：工作进程崩溃后
// 在途任务既不在队列里也不会自行回到 pending，只能靠这里捞回
func (r *ExtractionRepository) PendingJobs(ctx context.Context, processingCutoff time.Time, limit int) ([]*model.ExtractionJob, error) {
	var jobs []*model.ExtractionJob
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND updated_at < ?)",
			model.JobStatusPending, model.JobStatusProcessing, processingCutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// JobHistory 获取文件的提取任务历史
func (r *ExtractionRepository) JobHistory(ctx context.Context, fileID string) ([]*model.ExtractionJob, error) {
	var jobs []*model.ExtractionJob
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpsertContent 写入提取内容，同一 (文件, 类型) 冲突时替换
func (r *ExtractionRepository) UpsertContent(ctx context.Context, content *model.ExtractedContent) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "word_count", "char_count", "method", "metadata", "updated_at",
		}),
	}).Create(content).Error
}

// GetContent 获取文件的提取内容，不存在返回 nil
func (r *ExtractionRepository) GetContent(ctx context.Context, fileID, kind string) (*model.ExtractedContent, error) {
	var content model.ExtractedContent
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND kind = ?", fileID, kind).
		First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// ShortContentFiles 提取结果低于阈值的文件（"需要改进"清单）
func (r *ExtractionRepository) ShortContentFiles(ctx context.Context, orgID string, threshold, limit int) ([]*model.ExtractedContent, error) {
	var contents []*model.ExtractedContent
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND kind = ? AND char_count < ?",
			orgID, model.ContentKindFullText, threshold).
		Limit(limit).
		Find(&contents).Error
	if err != nil {
		return nil, err
	}
	return contents, nil
}
