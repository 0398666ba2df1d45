// Package storage 混合存储协调器单元测试
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ashwinyue/docvault/internal/errs"
	"github.com/ashwinyue/docvault/internal/model"
)

// fakeBackend 进程内后端，可注入读写故障
type fakeBackend struct {
	kind     string
	objects  map[string][]byte
	putErr   error
	getErr   error
	delErr   error
	corrupt  bool // 返回篡改后的内容
	putCalls int
}

func newFakeBackend(kind string) *fakeBackend {
	return &fakeBackend{kind: kind, objects: make(map[string][]byte)}
}

func (b *fakeBackend) Kind() string { return b.kind }

func (b *fakeBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b.putCalls++
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	if b.corrupt {
		tampered := append([]byte("X"), data...)
		return io.NopCloser(bytes.NewReader(tampered)), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBackend) Delete(ctx context.Context, key string) error {
	if b.delErr != nil {
		return b.delErr
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := b.objects[key]
	return ok, nil
}

func (b *fakeBackend) Health(ctx context.Context) error { return nil }

// fakeStore 进程内元数据存储
type fakeStore struct {
	files     map[string]*model.File
	locations []*model.StorageLocation
	syncJobs  []*model.StorageSyncJob
	nextID    uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string]*model.File)}
}

func (s *fakeStore) GetFile(ctx context.Context, fileID, orgID string) (*model.File, error) {
	f, ok := s.files[fileID]
	if !ok {
		return nil, errors.New("record not found")
	}
	return f, nil
}

func (s *fakeStore) CreateLocation(ctx context.Context, loc *model.StorageLocation) error {
	s.nextID++
	loc.ID = s.nextID
	s.locations = append(s.locations, loc)
	return nil
}

func (s *fakeStore) LocationsForFile(ctx context.Context, fileID string) ([]*model.StorageLocation, error) {
	var out []*model.StorageLocation
	// 主位置排前，与仓库查询的排序一致
	for _, loc := range s.locations {
		if loc.FileID == fileID && loc.IsPrimary {
			out = append(out, loc)
		}
	}
	for _, loc := range s.locations {
		if loc.FileID == fileID && !loc.IsPrimary {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteLocation(ctx context.Context, id uint) error {
	for i, loc := range s.locations {
		if loc.ID == id {
			s.locations = append(s.locations[:i], s.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) TouchVerified(ctx context.Context, id uint) error { return nil }

func (s *fakeStore) CreateSyncJob(ctx context.Context, job *model.StorageSyncJob) error {
	s.syncJobs = append(s.syncJobs, job)
	return nil
}

func (s *fakeStore) PendingSyncJobs(ctx context.Context, limit int) ([]*model.StorageSyncJob, error) {
	var out []*model.StorageSyncJob
	for _, j := range s.syncJobs {
		if j.Status == model.SyncJobPending {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateSyncJob(ctx context.Context, job *model.StorageSyncJob) error { return nil }

func (s *fakeStore) addFile(id, orgID, checksum string) {
	s.files[id] = &model.File{ID: id, OrganizationID: orgID, Checksum: checksum}
}

// ========== Checksum 测试 ==========

func TestChecksum(t *testing.T) {
	data := []byte("hello docvault")

	c1 := Checksum(data)
	c2 := Checksum(data)
	if c1 != c2 {
		t.Error("Checksum not deterministic")
	}
	if len(c1) != 64 {
		t.Errorf("Checksum length = %d, want 64 hex chars", len(c1))
	}
	if Checksum([]byte("other")) == c1 {
		t.Error("different content must not collide")
	}
}

// ========== 写入路径测试 ==========

func TestStore_PrimaryAndBackup(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	data := []byte("file content for both replicas")
	result, err := h.Store(context.Background(), &StoreRequest{
		FileID:      "f1",
		OrgID:       "org1",
		FileName:    "a.txt",
		ContentType: "text/plain",
		Data:        data,
	})
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	if result.Checksum != Checksum(data) {
		t.Errorf("Checksum = %q, want content hash", result.Checksum)
	}
	if result.PrimaryLocation == nil || !result.PrimaryLocation.IsPrimary {
		t.Fatal("primary location missing")
	}
	if result.BackupLocation == nil || !result.BackupLocation.IsBackup {
		t.Fatal("backup location missing")
	}
	if len(primary.objects) != 1 || len(backup.objects) != 1 {
		t.Errorf("replica counts: primary=%d backup=%d, want 1/1", len(primary.objects), len(backup.objects))
	}
}

func TestStore_PrimaryFailureIsFatal(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	primary.putErr = errors.New("disk full")
	store := newFakeStore()
	h := NewHybrid(primary, newFakeBackend(model.BackendMinIO), store)

	_, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: []byte("x"),
	})
	if err == nil {
		t.Fatal("Store() should fail when primary write fails")
	}
	if !errs.IsTransient(err) {
		t.Errorf("primary failure should be transient, got %T", err)
	}
	if len(store.locations) != 0 {
		t.Error("no location should be recorded on primary failure")
	}
}

func TestStore_BackupFailureDegrades(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	backup.putErr = errors.New("minio unreachable")
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	result, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: []byte("important"),
	})
	if err != nil {
		t.Fatalf("Store() error: %v (backup failure must not fail the write)", err)
	}
	if result.BackupLocation != nil {
		t.Error("backup location should be nil on backup failure")
	}

	// 降级记录到同步任务，由修复扫描补齐
	if len(store.syncJobs) != 1 {
		t.Fatalf("sync jobs = %d, want 1", len(store.syncJobs))
	}
	if store.syncJobs[0].Kind != model.SyncJobBackupRepair {
		t.Errorf("sync job kind = %q, want backup_repair", store.syncJobs[0].Kind)
	}
}

// ========== 读取路径测试 ==========

func TestRetrieve_FallbackToBackup(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	data := []byte("replicated content")
	if _, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: data,
	}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	store.addFile("f1", "org1", Checksum(data))

	// 主后端故障，读取回退到备份
	primary.getErr = errors.New("io error")

	got, err := h.Retrieve(context.Background(), "f1", "org1", "")
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Retrieve() = %q, want %q", got, data)
	}
}

func TestRetrieve_IntegrityFallback(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	data := []byte("content that must verify")
	if _, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: data,
	}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	store.addFile("f1", "org1", Checksum(data))

	// 主副本被篡改，校验失败后回退到备份
	primary.corrupt = true

	got, err := h.Retrieve(context.Background(), "f1", "org1", "")
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Retrieve() returned tampered content")
	}
}

func TestRetrieve_NotFound(t *testing.T) {
	h := NewHybrid(newFakeBackend(model.BackendLocal), nil, newFakeStore())

	_, err := h.Retrieve(context.Background(), "missing", "org1", "")
	if !errs.IsNotFound(err) {
		t.Errorf("Retrieve() error = %v, want not found", err)
	}
}

// ========== 删除路径测试 ==========

func TestDelete_FailureRecordsRetry(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	store := newFakeStore()
	h := NewHybrid(primary, nil, store)

	if _, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: []byte("x"),
	}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	primary.delErr = errors.New("backend down")

	// 删除失败不报错：权威记录已软删，残留只是清理问题
	if err := h.Delete(context.Background(), "f1", "org1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if len(store.syncJobs) != 1 || store.syncJobs[0].Kind != model.SyncJobDeleteRetry {
		t.Errorf("expected a delete_retry sync job, got %+v", store.syncJobs)
	}
}

// ========== 修复扫描测试 ==========

func TestRepairSweep_BackupRepair(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	backup.putErr = errors.New("minio unreachable")
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	data := []byte("needs a backup copy")
	if _, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: data,
	}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// 备份恢复后扫描补齐
	backup.putErr = nil
	if err := h.RepairSweep(context.Background(), 10, 3); err != nil {
		t.Fatalf("RepairSweep() error: %v", err)
	}

	if len(backup.objects) != 1 {
		t.Fatalf("backup objects = %d, want 1 after repair", len(backup.objects))
	}
	if store.syncJobs[0].Status != model.SyncJobCompleted {
		t.Errorf("sync job status = %q, want completed", store.syncJobs[0].Status)
	}

	// 备份位置记录补齐
	locs, _ := store.LocationsForFile(context.Background(), "f1")
	backupSeen := false
	for _, loc := range locs {
		if loc.IsBackup {
			backupSeen = true
		}
	}
	if !backupSeen {
		t.Error("backup location record missing after repair")
	}
}

func TestRepairSweep_ExhaustsAttempts(t *testing.T) {
	primary := newFakeBackend(model.BackendLocal)
	backup := newFakeBackend(model.BackendMinIO)
	backup.putErr = errors.New("still down")
	store := newFakeStore()
	h := NewHybrid(primary, backup, store)

	if _, err := h.Store(context.Background(), &StoreRequest{
		FileID: "f1", OrgID: "org1", FileName: "a.txt", Data: []byte("x"),
	}); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// 连续失败到达上限后任务标记为 failed
	for i := 0; i < 3; i++ {
		if err := h.RepairSweep(context.Background(), 10, 3); err != nil {
			t.Fatalf("RepairSweep() error: %v", err)
		}
	}

	if store.syncJobs[0].Status != model.SyncJobFailed {
		t.Errorf("sync job status = %q, want failed after max attempts", store.syncJobs[0].Status)
	}
	if store.syncJobs[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", store.syncJobs[0].Attempts)
	}
}
