package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
	"github.com/ashwinyue/docvault/internal/service/queue"
)

// 入队后超过该时长仍未离开 pending/queued 视为队列丢失
const staleAfter = 5 * time.Minute

// Repairer 存储修复扫描接口
type Repairer interface {
	RepairSweep(ctx context.Context, limit, maxAttempts int) error
}

// Reconcile 对账扫描
// 队列只是分发机制，任务表才是权威状态：把滞留的 pending 提取任务、
// 崩溃遗留的 processing 任务与 queued 索引状态重新投递，并触发存储修复扫描
func (p *Processor) Reconcile(ctx context.Context, repairer Repairer, limit int) error {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().Add(-staleAfter)

	jobs, err := p.store.PendingExtractionJobs(ctx, cutoff, limit)
	if err != nil {
		return fmt.Errorf("failed to load pending extraction jobs: %w", err)
	}
	requeued := 0
	for _, job := range jobs {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		if err := p.enqueue(ctx, queue.StageExtraction, job.FileID, job.OrganizationID,
			job.ID, job.Priority, job.Attempts+1); err != nil {
			log.Printf("Warning: failed to re-enqueue extraction job %s: %v", job.ID, err)
			continue
		}
		// 重投后拨回 pending 并刷新更新时间，下一轮扫描不再重复投递
		job.Status = model.JobStatusPending
		if err := p.store.UpdateExtractionJob(ctx, job); err != nil {
			log.Printf("Warning: failed to reset job %s after requeue: %v", job.ID, err)
		}
		requeued++
	}

	statuses, err := p.store.QueuedIndexStatuses(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load queued index statuses: %w", err)
	}
	for _, st := range statuses {
		if st.UpdatedAt.After(cutoff) {
			continue
		}
		if err := p.enqueue(ctx, queue.StageIndexing, st.FileID, st.OrganizationID,
			"", p.cfg.IndexPriority, 1); err != nil {
			log.Printf("Warning: failed to re-enqueue indexing for file %s: %v", st.FileID, err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		log.Printf("Reconcile requeued %d stale tasks", requeued)
	}

	if repairer != nil {
		if err := repairer.RepairSweep(ctx, limit, p.cfg.MaxAttempts); err != nil {
			log.Printf("Warning: storage repair sweep failed: %v", err)
		}
	}

	return nil
}

// StartReconciler 周期性对账，Stop 或 ctx 取消时退出
func (p *Processor) StartReconciler(ctx context.Context, repairer Repairer, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Reconcile(ctx, repairer, 100); err != nil {
					log.Printf("Warning: reconcile failed: %v", err)
				}
			}
		}
	}()
}

// Reprocess 重新处理文件：创建低优先级提取任务
// 文件已有未完成任务时返回该任务
func (p *Processor) Reprocess(ctx context.Context, fileID, orgID string) (*model.ExtractionJob, error) {
	file, err := p.store.GetFile(ctx, fileID, orgID)
	if err != nil {
		return nil, errs.NewNotFound("file", fileID)
	}
	return p.CreateExtractionJob(ctx, file, p.cfg.ReprocessPriority)
}
