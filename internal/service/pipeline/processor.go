// Package pipeline 提供异步处理管道的编排
// 提取 -> （可选）AI 分析 -> 索引，每个阶段幂等，失败按退避重试
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
	"github.com/ashwinyue/docvault/internal/service/ai"
	"github.com/ashwinyue/docvault/internal/service/extract"
	"github.com/ashwinyue/docvault/internal/service/queue"
	"github.com/ashwinyue/docvault/internal/service/search"
	"github.com/google/uuid"
)

// Store 管道所需的数据访问接口
type Store interface {
	GetFile(ctx context.Context, fileID, orgID string) (*model.File, error)
	CreateExtractionJob(ctx context.Context, job *model.ExtractionJob) error
	GetExtractionJob(ctx context.Context, id string) (*model.ExtractionJob, error)
	UpdateExtractionJob(ctx context.Context, job *model.ExtractionJob) error
	ActiveExtractionJob(ctx context.Context, fileID string) (*model.ExtractionJob, error)
	PendingExtractionJobs(ctx context.Context, processingCutoff time.Time, limit int) ([]*model.ExtractionJob, error)
	ExtractionHistory(ctx context.Context, fileID string) ([]*model.ExtractionJob, error)
	UpsertContent(ctx context.Context, content *model.ExtractedContent) error
	GetContent(ctx context.Context, fileID, kind string) (*model.ExtractedContent, error)
	UpsertIndexStatus(ctx context.Context, st *model.IndexStatus) error
	GetIndexStatus(ctx context.Context, fileID, orgID string) (*model.IndexStatus, error)
	QueuedIndexStatuses(ctx context.Context, limit int) ([]*model.IndexStatus, error)
}

// BlobReader 文件内容读取接口
type BlobReader interface {
	Retrieve(ctx context.Context, fileID, orgID, preferred string) ([]byte, error)
}

// DocIndexer 文档索引接口
type DocIndexer interface {
	BuildDocument(file *model.File, content *model.ExtractedContent) *search.Document
	Index(ctx context.Context, doc *search.Document) error
}

// Processor 管道处理器
// 工作协程从队列拉取任务执行，任务状态以数据库为准
type Processor struct {
	store     Store
	queue     queue.Queue
	blobs     BlobReader
	extractor *extract.Extractor
	indexer   DocIndexer
	analyzer  ai.Analyzer // 可为 nil
	cfg       config.PipelineConfig
	poll      time.Duration

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// 工作协程轮询的队列，高优先级阶段在前
var stageQueues = []string{queue.QueueExtraction, queue.QueueIndexing, queue.QueueAnalysis}

// NewProcessor 创建管道处理器
func NewProcessor(store Store, q queue.Queue, blobs BlobReader, extractor *extract.Extractor,
	indexer DocIndexer, analyzer ai.Analyzer, cfg config.PipelineConfig, pollIntervalMS int) *Processor {
	if pollIntervalMS <= 0 {
		pollIntervalMS = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Processor{
		store:     store,
		queue:     q,
		blobs:     blobs,
		extractor: extractor,
		indexer:   indexer,
		analyzer:  analyzer,
		cfg:       cfg,
		poll:      time.Duration(pollIntervalMS) * time.Millisecond,
	}
}

// CreateExtractionJob 为文件创建提取任务并入队
// 同一文件已有未完成任务时直接返回该任务，不重复创建
func (p *Processor) CreateExtractionJob(ctx context.Context, file *model.File, priority int) (*model.ExtractionJob, error) {
	if file == nil || file.ID == "" {
		return nil, errs.NewValidation("file", "must not be empty")
	}

	active, err := p.store.ActiveExtractionJob(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active job: %w", err)
	}
	if active != nil {
		return active, nil
	}

	if priority <= 0 {
		priority = p.cfg.ExtractionPriority
	}

	job := &model.ExtractionJob{
		ID:             uuid.New().String(),
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		Status:         model.JobStatusPending,
		Priority:       priority,
		MaxAttempts:    p.cfg.MaxAttempts,
	}
	if err := p.store.CreateExtractionJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create extraction job: %w", err)
	}

	if err := p.enqueue(ctx, queue.StageExtraction, file.ID, file.OrganizationID, job.ID, priority, 1); err != nil {
		// 任务行已落库，队列失败由对账扫描补投
		log.Printf("Warning: failed to enqueue extraction for file %s: %v", file.ID, err)
	}

	return job, nil
}

// CreateIndexJob 为文件创建索引任务并入队
func (p *Processor) CreateIndexJob(ctx context.Context, fileID, orgID string, priority int) error {
	if priority <= 0 {
		priority = p.cfg.IndexPriority
	}

	if err := p.store.UpsertIndexStatus(ctx, &model.IndexStatus{
		FileID:         fileID,
		OrganizationID: orgID,
		Status:         model.IndexStatusQueued,
	}); err != nil {
		return fmt.Errorf("failed to mark index status queued: %w", err)
	}

	return p.enqueue(ctx, queue.StageIndexing, fileID, orgID, "", priority, 1)
}

// enqueue 组装任务并写入对应队列
func (p *Processor) enqueue(ctx context.Context, stage queue.Stage, fileID, orgID, jobID string, priority, attempt int) error {
	task := &queue.Task{
		ID:         uuid.New().String(),
		Stage:      stage,
		FileID:     fileID,
		OrgID:      orgID,
		JobID:      jobID,
		Priority:   priority,
		Attempt:    attempt,
		EnqueuedAt: time.Now(),
	}
	return p.queue.Enqueue(ctx, queue.QueueNameFor(stage), task)
}

// Start 启动工作协程
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()
	log.Printf("Pipeline started with %d workers", p.cfg.Workers)
}

// Stop 停止工作协程并等待在途任务完成
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	log.Printf("Pipeline stopped")
}

// Running 返回工作协程是否在运行
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// worker 拉取循环：按队列顺序取任务，全部为空时休眠一个轮询间隔
func (p *Processor) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task := p.nextTask(ctx)
		if task == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.poll):
			}
			continue
		}

		p.runTask(ctx, task)
	}
}

// nextTask 取下一个任务，高优先级阶段的队列先查
func (p *Processor) nextTask(ctx context.Context) *queue.Task {
	for _, name := range stageQueues {
		task, err := p.queue.Dequeue(ctx, name)
		if err != nil {
			log.Printf("Warning: dequeue from %s failed: %v", name, err)
			continue
		}
		if task != nil {
			return task
		}
	}
	return nil
}

// runTask 执行单个任务，带超时与 panic 恢复
func (p *Processor) runTask(ctx context.Context, task *queue.Task) {
	timeout := time.Duration(p.cfg.JobTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic processing %s task for file %s: %v", task.Stage, task.FileID, r)
			p.retryOrFail(ctx, task, fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	switch task.Stage {
	case queue.StageExtraction:
		err = p.processExtraction(taskCtx, task)
	case queue.StageIndexing:
		err = p.processIndexing(taskCtx, task)
	case queue.StageAnalysis:
		err = p.processAnalysis(taskCtx, task)
	default:
		log.Printf("Warning: unknown stage %q for task %s, dropping", task.Stage, task.ID)
		return
	}

	if err != nil {
		log.Printf("Stage %s failed for file %s (attempt %d): %v", task.Stage, task.FileID, task.Attempt, err)
		p.retryOrFail(ctx, task, err)
	}
}

// processExtraction 提取阶段
// 成功后写入全文内容并触发索引任务（以及可选的分析任务）
func (p *Processor) processExtraction(ctx context.Context, task *queue.Task) error {
	job, err := p.store.GetExtractionJob(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("failed to load extraction job: %w", err)
	}
	if job.Terminal() {
		// 至少一次投递：重复出队直接跳过
		return nil
	}

	now := time.Now()
	job.Status = model.JobStatusProcessing
	job.Attempts = task.Attempt
	job.StartedAt = &now
	if err := p.store.UpdateExtractionJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	file, err := p.store.GetFile(ctx, task.FileID, task.OrgID)
	if err != nil {
		return p.failJob(ctx, job, errs.NewNotFound("file", task.FileID))
	}

	data, err := p.blobs.Retrieve(ctx, file.ID, file.OrganizationID, "")
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	result, err := p.extractor.Extract(ctx, data, file.DeclaredType, file.FileName)
	if err != nil {
		return err
	}

	meta := result.Metadata
	if meta == nil {
		meta = model.JSON{}
	}
	meta["extraction_trace"] = extract.TraceMetadata(result.Trace)

	if err := p.store.UpsertContent(ctx, &model.ExtractedContent{
		ID:             uuid.New().String(),
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		Kind:           model.ContentKindFullText,
		Content:        result.Text,
		WordCount:      result.WordCount,
		CharCount:      result.CharCount,
		Method:         result.Method,
		Metadata:       meta,
	}); err != nil {
		return fmt.Errorf("failed to save extracted content: %w", err)
	}

	finished := time.Now()
	job.Status = model.JobStatusCompleted
	job.Method = result.Method
	job.ErrorMessage = ""
	job.FinishedAt = &finished
	if err := p.store.UpdateExtractionJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	// 提取完成后接续下游阶段
	if err := p.CreateIndexJob(ctx, file.ID, file.OrganizationID, p.cfg.IndexPriority); err != nil {
		log.Printf("Warning: failed to enqueue indexing for file %s: %v", file.ID, err)
	}
	if p.analyzer != nil {
		if err := p.enqueue(ctx, queue.StageAnalysis, file.ID, file.OrganizationID, "", p.cfg.AnalysisPriority, 1); err != nil {
			log.Printf("Warning: failed to enqueue analysis for file %s: %v", file.ID, err)
		}
	}

	return nil
}

// processIndexing 索引阶段
// upsert 语义保证重复执行安全
func (p *Processor) processIndexing(ctx context.Context, task *queue.Task) error {
	file, err := p.store.GetFile(ctx, task.FileID, task.OrgID)
	if err != nil {
		return p.failIndex(ctx, task, errs.NewNotFound("file", task.FileID))
	}

	content, err := p.store.GetContent(ctx, file.ID, model.ContentKindFullText)
	if err != nil {
		return fmt.Errorf("failed to load extracted content: %w", err)
	}

	doc := p.indexer.BuildDocument(file, content)
	if err := p.indexer.Index(ctx, doc); err != nil {
		if !errs.Retryable(err) {
			return p.failIndex(ctx, task, err)
		}
		return err
	}

	now := time.Now()
	return p.store.UpsertIndexStatus(ctx, &model.IndexStatus{
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		Status:         model.IndexStatusIndexed,
		LastIndexedAt:  &now,
		LastError:      "",
	})
}

// processAnalysis 分析阶段
// 分析是增强功能，文件在无分析结果时依然完整可用
func (p *Processor) processAnalysis(ctx context.Context, task *queue.Task) error {
	if p.analyzer == nil {
		return nil
	}

	content, err := p.store.GetContent(ctx, task.FileID, model.ContentKindFullText)
	if err != nil {
		return fmt.Errorf("failed to load extracted content: %w", err)
	}
	if content == nil || content.Content == "" {
		return nil
	}

	analysis, err := p.analyzer.Analyze(ctx, content.Content)
	if err != nil {
		return errs.NewTransient("ai analysis", err)
	}

	summary, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	return p.store.UpsertContent(ctx, &model.ExtractedContent{
		ID:             uuid.New().String(),
		FileID:         task.FileID,
		OrganizationID: task.OrgID,
		Kind:           model.ContentKindAIAnalysis,
		Content:        string(summary),
		CharCount:      len(summary),
		Method:         "chat_model",
		Metadata: model.JSON{
			"quality_score": analysis.QualityScore,
			"topic_count":   len(analysis.KeyTopics),
		},
	})
}

// retryOrFail 失败处理：可重试且未达上限则退避后重新入队，否则标记终态失败
func (p *Processor) retryOrFail(ctx context.Context, task *queue.Task, cause error) {
	retryable := errs.Retryable(cause)
	if retryable && task.Attempt < p.cfg.MaxAttempts {
		// 先把任务行拨回 pending 并记录错误，再安排重投：
		// 进程在重投触发前退出时，对账扫描仍能从任务表重新派发
		if task.Stage == queue.StageExtraction && task.JobID != "" {
			if job, err := p.store.GetExtractionJob(ctx, task.JobID); err == nil && !job.Terminal() {
				job.Status = model.JobStatusPending
				job.Attempts = task.Attempt
				job.ErrorMessage = cause.Error()
				if err := p.store.UpdateExtractionJob(ctx, job); err != nil {
					log.Printf("Warning: failed to reset job %s to pending: %v", job.ID, err)
				}
			}
		}
		next := *task
		next.Attempt = task.Attempt + 1
		delay := p.backoffDelay(task.Attempt)
		name := queue.QueueNameFor(task.Stage)
		time.AfterFunc(delay, func() {
			if err := p.queue.Enqueue(context.Background(), name, &next); err != nil {
				log.Printf("Warning: failed to re-enqueue %s task for file %s: %v", task.Stage, task.FileID, err)
			}
		})
		return
	}

	// 终态失败落库
	switch task.Stage {
	case queue.StageExtraction:
		if job, err := p.store.GetExtractionJob(ctx, task.JobID); err == nil && !job.Terminal() {
			job.Attempts = task.Attempt
			_ = p.failJob(ctx, job, cause)
		}
	case queue.StageIndexing:
		_ = p.failIndex(ctx, task, cause)
	case queue.StageAnalysis:
		log.Printf("Analysis abandoned for file %s: %v", task.FileID, cause)
	}
}

// failJob 将提取任务标记为终态失败
func (p *Processor) failJob(ctx context.Context, job *model.ExtractionJob, cause error) error {
	now := time.Now()
	job.Status = model.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.FinishedAt = &now
	if err := p.store.UpdateExtractionJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return cause
}

// failIndex 将索引状态标记为失败
func (p *Processor) failIndex(ctx context.Context, task *queue.Task, cause error) error {
	if err := p.store.UpsertIndexStatus(ctx, &model.IndexStatus{
		FileID:         task.FileID,
		OrganizationID: task.OrgID,
		Status:         model.IndexStatusFailed,
		LastError:      cause.Error(),
	}); err != nil {
		log.Printf("Warning: failed to mark index status failed for file %s: %v", task.FileID, err)
	}
	return cause
}

// backoffDelay 指数退避：base * 2^(attempt-1)，封顶 max
func (p *Processor) backoffDelay(attempt int) time.Duration {
	base := p.cfg.BackoffBase
	if base < 0 {
		base = 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.cfg.BackoffMax > 0 && delay >= p.cfg.BackoffMax {
			delay = p.cfg.BackoffMax
			break
		}
	}
	if p.cfg.BackoffMax > 0 && delay > p.cfg.BackoffMax {
		delay = p.cfg.BackoffMax
	}
	return time.Duration(delay) * time.Second
}

// FileStatus 文件的管道状态汇总
type FileStatus struct {
	File        *model.File            `json:"file"`
	LatestJob   *model.ExtractionJob   `json:"latest_job,omitempty"`
	JobHistory  []*model.ExtractionJob `json:"job_history,omitempty"`
	HasContent  bool                   `json:"has_content"`
	HasAnalysis bool                   `json:"has_analysis"`
	IndexStatus string                 `json:"index_status"`
	LastError   string                 `json:"last_error,omitempty"`
}

// Status 返回文件的管道状态汇总
func (p *Processor) Status(ctx context.Context, fileID, orgID string) (*FileStatus, error) {
	file, err := p.store.GetFile(ctx, fileID, orgID)
	if err != nil {
		return nil, errs.NewNotFound("file", fileID)
	}

	st := &FileStatus{File: file, IndexStatus: model.IndexStatusNotIndexed}

	history, err := p.store.ExtractionHistory(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job history: %w", err)
	}
	st.JobHistory = history
	if len(history) > 0 {
		st.LatestJob = history[0]
	}

	if content, err := p.store.GetContent(ctx, fileID, model.ContentKindFullText); err == nil && content != nil {
		st.HasContent = true
	}
	if analysis, err := p.store.GetContent(ctx, fileID, model.ContentKindAIAnalysis); err == nil && analysis != nil {
		st.HasAnalysis = true
	}

	if idx, err := p.store.GetIndexStatus(ctx, fileID, orgID); err == nil && idx != nil {
		st.IndexStatus = idx.Status
		st.LastError = idx.LastError
	}

	return st, nil
}

// QueueStats 返回各队列长度
func (p *Processor) QueueStats(ctx context.Context) map[string]int64 {
	stats := make(map[string]int64, len(stageQueues))
	for _, name := range stageQueues {
		n, err := p.queue.Len(ctx, name)
		if err != nil {
			n = -1
		}
		stats[name] = n
	}
	return stats
}
