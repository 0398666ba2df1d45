package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/docvault/internal/model"
)

// PipelineStore 管道所需的数据访问聚合
// 把分散在各仓库的读写收拢成一个窄接口的实现
type PipelineStore struct {
	files      *FileRepository
	extraction *ExtractionRepository
	index      *IndexRepository
}

// NewPipelineStore 创建管道数据访问聚合
func NewPipelineStore(repos *Repositories) *PipelineStore {
	return &PipelineStore{
		files:      repos.File,
		extraction: repos.Extraction,
		index:      repos.Index,
	}
}

func (s *PipelineStore) GetFile(ctx context.Context, fileID, orgID string) (*model.File, error) {
	return s.files.GetByID(ctx, fileID, orgID)
}

func (s *PipelineStore) CreateExtractionJob(ctx context.Context, job *model.ExtractionJob) error {
	return s.extraction.CreateJob(ctx, job)
}

func (s *PipelineStore) GetExtractionJob(ctx context.Context, id string) (*model.ExtractionJob, error) {
	return s.extraction.GetJob(ctx, id)
}

func (s *PipelineStore) UpdateExtractionJob(ctx context.Context, job *model.ExtractionJob) error {
	return s.extraction.UpdateJob(ctx, job)
}

func (s *PipelineStore) ActiveExtractionJob(ctx context.Context, fileID string) (*model.ExtractionJob, error) {
	return s.extraction.ActiveJobForFile(ctx, fileID)
}

func (s *PipelineStore) PendingExtractionJobs(ctx context.Context, processingCutoff time.Time, limit int) ([]*model.ExtractionJob, error) {
	return s.extraction.PendingJobs(ctx, processingCutoff, limit)
}

func (s *PipelineStore) ExtractionHistory(ctx context.Context, fileID string) ([]*model.ExtractionJob, error) {
	return s.extraction.JobHistory(ctx, fileID)
}

func (s *PipelineStore) UpsertContent(ctx context.Context, content *model.ExtractedContent) error {
	return s.extraction.UpsertContent(ctx, content)
}

func (s *PipelineStore) GetContent(ctx context.Context, fileID, kind string) (*model.ExtractedContent, error) {
	return s.extraction.GetContent(ctx, fileID, kind)
}

func (s *PipelineStore) UpsertIndexStatus(ctx context.Context, st *model.IndexStatus) error {
	return s.index.Upsert(ctx, st)
}

func (s *PipelineStore) GetIndexStatus(ctx context.Context, fileID, orgID string) (*model.IndexStatus, error) {
	return s.index.Get(ctx, fileID, orgID)
}

func (s *PipelineStore) QueuedIndexStatuses(ctx context.Context, limit int) ([]*model.IndexStatus, error) {
	return s.index.QueuedStatuses(ctx, limit)
}
