package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
)

// Store 存储元数据访问接口，便于测试
type Store interface {
	GetFile(ctx context.Context, fileID, orgID string) (*model.File, error)
	CreateLocation(ctx context.Context, loc *model.StorageLocation) error
	LocationsForFile(ctx context.Context, fileID string) ([]*model.StorageLocation, error)
	DeleteLocation(ctx context.Context, id uint) error
	TouchVerified(ctx context.Context, id uint) error
	CreateSyncJob(ctx context.Context, job *model.StorageSyncJob) error
	PendingSyncJobs(ctx context.Context, limit int) ([]*model.StorageSyncJob, error)
	UpdateSyncJob(ctx context.Context, job *model.StorageSyncJob) error
}

// Hybrid 混合存储协调器
// 主后端写入为权威路径，备份写入尽力而为；读取按校验和验证并逐后端回退
type Hybrid struct {
	primary  Backend
	backup   Backend // 可为 nil
	backends map[string]Backend
	store    Store
}

// NewHybrid 创建混合存储协调器
func NewHybrid(primary, backup Backend, store Store) *Hybrid {
	backends := map[string]Backend{primary.Kind(): primary}
	if backup != nil {
		backends[backup.Kind()] = backup
	}
	return &Hybrid{
		primary:  primary,
		backup:   backup,
		backends: backends,
		store:    store,
	}
}

// NewHybridFromConfig 从配置创建混合存储协调器
func NewHybridFromConfig(cfg *config.Config, store Store) (*Hybrid, error) {
	newBackend := func(kind string) (Backend, error) {
		switch kind {
		case model.BackendLocal:
			return NewLocalBackend(cfg.Storage.Local.BasePath)
		case model.BackendMinIO:
			return NewMinIOBackend(&cfg.Storage.MinIO)
		default:
			return nil, fmt.Errorf("unsupported storage backend: %s", kind)
		}
	}

	primary, err := newBackend(cfg.Storage.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary backend: %w", err)
	}

	var backup Backend
	if cfg.Storage.Backup != "" {
		backup, err = newBackend(cfg.Storage.Backup)
		if err != nil {
			// 备份后端不可用只降级冗余，不阻止启动
			log.Printf("Warning: backup backend unavailable: %v", err)
			backup = nil
		}
	}

	return NewHybrid(primary, backup, store), nil
}

// StoreRequest 存储请求
type StoreRequest struct {
	FileID      string
	OrgID       string
	FileName    string
	ContentType string
	Data        []byte
}

// StoreResult 存储结果
type StoreResult struct {
	PrimaryLocation *model.StorageLocation
	BackupLocation  *model.StorageLocation // 备份写失败时为 nil
	Checksum        string
}

// Checksum 计算内容 SHA-256
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store 写入文件：主后端必须成功，备份后端尽力而为
func (h *Hybrid) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	// 写入前先计算校验和
	checksum := Checksum(req.Data)
	size := int64(len(req.Data))

	// 主写入，失败即整体失败
	primaryKey := NewKey(req.OrgID, req.FileName, req.ContentType)
	if err := h.primary.Put(ctx, primaryKey, bytes.NewReader(req.Data), size, req.ContentType); err != nil {
		return nil, errs.NewTransient("primary write", err)
	}

	primaryLoc := &model.StorageLocation{
		FileID:         req.FileID,
		OrganizationID: req.OrgID,
		BackendKind:    h.primary.Kind(),
		LocationKey:    primaryKey,
		FileSize:       size,
		IsPrimary:      true,
	}
	if err := h.store.CreateLocation(ctx, primaryLoc); err != nil {
		// 元数据写失败时回滚主副本
		_ = h.primary.Delete(ctx, primaryKey)
		return nil, fmt.Errorf("failed to record primary location: %w", err)
	}

	result := &StoreResult{PrimaryLocation: primaryLoc, Checksum: checksum}

	// 备份写入，失败只记录降级，由修复扫描补齐
	if h.backup != nil {
		backupKey := NewKey(req.OrgID, req.FileName, req.ContentType)
		if err := h.backup.Put(ctx, backupKey, bytes.NewReader(req.Data), size, req.ContentType); err != nil {
			log.Printf("Warning: backup write failed for file %s: %v", req.FileID, err)
			h.recordSyncJob(ctx, req.FileID, req.OrgID, model.SyncJobBackupRepair, h.backup.Kind(), "")
		} else {
			backupLoc := &model.StorageLocation{
				FileID:         req.FileID,
				OrganizationID: req.OrgID,
				BackendKind:    h.backup.Kind(),
				LocationKey:    backupKey,
				FileSize:       size,
				IsBackup:       true,
			}
			if err := h.store.CreateLocation(ctx, backupLoc); err != nil {
				log.Printf("Warning: failed to record backup location for file %s: %v", req.FileID, err)
			} else {
				result.BackupLocation = backupLoc
			}
		}
	}

	return result, nil
}

// Retrieve 读取文件内容
// 按 preferred -> primary -> backup 的顺序尝试，返回第一个校验和匹配的副本
func (h *Hybrid) Retrieve(ctx context.Context, fileID, orgID, preferred string) ([]byte, error) {
	file, err := h.store.GetFile(ctx, fileID, orgID)
	if err != nil {
		return nil, errs.NewNotFound("file", fileID)
	}

	locs, err := h.store.LocationsForFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage locations: %w", err)
	}
	if len(locs) == 0 {
		return nil, errs.NewNotFound("storage location", fileID)
	}

	for _, loc := range orderLocations(locs, preferred) {
		backend, ok := h.backends[loc.BackendKind]
		if !ok {
			continue
		}

		data, err := h.readAndVerify(ctx, backend, loc, file.Checksum, fileID)
		if err != nil {
			log.Printf("Warning: read from %s failed for file %s: %v", loc.BackendKind, fileID, err)
			continue
		}
		return data, nil
	}

	return nil, errs.NewNotFound("file content", fileID)
}

// readAndVerify 读取并校验单个位置
func (h *Hybrid) readAndVerify(ctx context.Context, backend Backend, loc *model.StorageLocation, expected, fileID string) ([]byte, error) {
	rc, err := backend.Get(ctx, loc.LocationKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	// 校验和不匹配上报为完整性错误，由调用方回退到下一副本
	if expected != "" {
		if actual := Checksum(data); actual != expected {
			return nil, &errs.IntegrityError{
				FileID:   fileID,
				Backend:  loc.BackendKind,
				Expected: expected,
				Actual:   actual,
			}
		}
	}

	if err := h.store.TouchVerified(ctx, loc.ID); err != nil {
		log.Printf("Warning: failed to touch last_verified for location %d: %v", loc.ID, err)
	}

	return data, nil
}

// orderLocations 排序：preferred 后端优先，其次主位置，最后其余
func orderLocations(locs []*model.StorageLocation, preferred string) []*model.StorageLocation {
	ordered := make([]*model.StorageLocation, 0, len(locs))
	for _, loc := range locs {
		if preferred != "" && loc.BackendKind == preferred {
			ordered = append(ordered, loc)
		}
	}
	for _, loc := range locs {
		if loc.IsPrimary && (preferred == "" || loc.BackendKind != preferred) {
			ordered = append(ordered, loc)
		}
	}
	for _, loc := range locs {
		if !loc.IsPrimary && (preferred == "" || loc.BackendKind != preferred) {
			ordered = append(ordered, loc)
		}
	}
	return ordered
}

// Delete 删除文件的全部副本
// 单个后端删除失败只记录重试任务，权威记录已软删，残留只是清理问题
func (h *Hybrid) Delete(ctx context.Context, fileID, orgID string) error {
	locs, err := h.store.LocationsForFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to load storage locations: %w", err)
	}

	for _, loc := range locs {
		backend, ok := h.backends[loc.BackendKind]
		if !ok {
			continue
		}

		if err := backend.Delete(ctx, loc.LocationKey); err != nil {
			log.Printf("Warning: delete from %s failed for file %s: %v", loc.BackendKind, fileID, err)
			h.recordSyncJob(ctx, fileID, orgID, model.SyncJobDeleteRetry, loc.BackendKind, loc.LocationKey)
			continue
		}

		if err := h.store.DeleteLocation(ctx, loc.ID); err != nil {
			log.Printf("Warning: failed to delete location record %d: %v", loc.ID, err)
		}
	}

	return nil
}

// Health 返回每个后端的健康状态
// 探测不修改任何状态，可与正常流量并发调用
func (h *Hybrid) Health(ctx context.Context) map[string]string {
	status := map[string]string{
		"primary": backendStatus(ctx, h.primary),
	}
	if h.backup != nil {
		status["backup"] = backendStatus(ctx, h.backup)
	} else {
		status["backup"] = "not_configured"
	}
	return status
}

func backendStatus(ctx context.Context, b Backend) string {
	if err := b.Health(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// recordSyncJob 记录存储同步任务
func (h *Hybrid) recordSyncJob(ctx context.Context, fileID, orgID, kind, backendKind, key string) {
	job := &model.StorageSyncJob{
		FileID:         fileID,
		OrganizationID: orgID,
		Kind:           kind,
		BackendKind:    backendKind,
		LocationKey:    key,
		Status:         model.SyncJobPending,
	}
	if err := h.store.CreateSyncJob(ctx, job); err != nil {
		log.Printf("Warning: failed to record sync job for file %s: %v", fileID, err)
	}
}

// RepairSweep 修复扫描：补齐缺失备份，重试失败的删除
func (h *Hybrid) RepairSweep(ctx context.Context, limit, maxAttempts int) error {
	jobs, err := h.store.PendingSyncJobs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load sync jobs: %w", err)
	}

	for _, job := range jobs {
		var repairErr error
		switch job.Kind {
		case model.SyncJobBackupRepair:
			repairErr = h.repairBackup(ctx, job)
		case model.SyncJobDeleteRetry:
			repairErr = h.retryDelete(ctx, job)
		default:
			repairErr = fmt.Errorf("unknown sync job kind: %s", job.Kind)
		}

		job.Attempts++
		if repairErr != nil {
			job.LastError = repairErr.Error()
			if job.Attempts >= maxAttempts {
				job.Status = model.SyncJobFailed
			}
			log.Printf("Warning: sync job %d failed (attempt %d): %v", job.ID, job.Attempts, repairErr)
		} else {
			job.Status = model.SyncJobCompleted
		}

		if err := h.store.UpdateSyncJob(ctx, job); err != nil {
			log.Printf("Warning: failed to update sync job %d: %v", job.ID, err)
		}
	}

	return nil
}

// repairBackup 从主副本修复缺失的备份
func (h *Hybrid) repairBackup(ctx context.Context, job *model.StorageSyncJob) error {
	if h.backup == nil {
		return fmt.Errorf("backup backend not configured")
	}

	locs, err := h.store.LocationsForFile(ctx, job.FileID)
	if err != nil {
		return err
	}

	var primaryLoc *model.StorageLocation
	for _, loc := range locs {
		if loc.IsPrimary {
			primaryLoc = loc
		}
		if loc.IsBackup {
			// 备份已存在，无需修复
			return nil
		}
	}
	if primaryLoc == nil {
		return fmt.Errorf("no primary location for file %s", job.FileID)
	}

	rc, err := h.primary.Get(ctx, primaryLoc.LocationKey)
	if err != nil {
		return fmt.Errorf("failed to read primary copy: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	backupKey := primaryLoc.LocationKey
	if err := h.backup.Put(ctx, backupKey, bytes.NewReader(data), int64(len(data)), ""); err != nil {
		return fmt.Errorf("failed to write backup copy: %w", err)
	}

	now := time.Now()
	return h.store.CreateLocation(ctx, &model.StorageLocation{
		FileID:         job.FileID,
		OrganizationID: job.OrganizationID,
		BackendKind:    h.backup.Kind(),
		LocationKey:    backupKey,
		FileSize:       int64(len(data)),
		IsBackup:       true,
		LastVerifiedAt: &now,
	})
}

// retryDelete 重试删除残留副本
func (h *Hybrid) retryDelete(ctx context.Context, job *model.StorageSyncJob) error {
	backend, ok := h.backends[job.BackendKind]
	if !ok {
		return fmt.Errorf("unknown backend: %s", job.BackendKind)
	}
	return backend.Delete(ctx, job.LocationKey)
}
