// Package storage 本地后端单元测试
package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

// ========== 本地后端读写测试 ==========

func TestLocalBackend_RoundTrip(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend() error: %v", err)
	}
	ctx := context.Background()

	data := []byte("local backend payload")
	key := "org1/abc.txt"

	if err := b.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/plain"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	exists, err := b.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !exists {
		t.Fatal("Exists() = false after Put()")
	}

	rc, err := b.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	if err := b.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	exists, _ = b.Exists(ctx, key)
	if exists {
		t.Error("Exists() = true after Delete()")
	}

	// 重复删除不报错
	if err := b.Delete(ctx, key); err != nil {
		t.Errorf("Delete() on missing key error: %v", err)
	}

	if err := b.Health(ctx); err != nil {
		t.Errorf("Health() error: %v", err)
	}
}

// ========== 存储键生成测试 ==========

func TestNewKey(t *testing.T) {
	// 键以组织为前缀，实现租户间的物理隔离
	key := NewKey("org1", "report.pdf", "application/pdf")
	if !strings.HasPrefix(key, "org1/") {
		t.Errorf("key %q should be prefixed with org id", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key %q should keep the file extension", key)
	}

	// 同名文件生成不同键，上传互不覆盖
	if NewKey("org1", "report.pdf", "") == NewKey("org1", "report.pdf", "") {
		t.Error("keys must be unique per upload")
	}

	// 无扩展名时按内容类型推断
	key = NewKey("org1", "notes", "text/plain")
	if !strings.HasSuffix(key, ".txt") {
		t.Errorf("key %q should infer extension from content type", key)
	}

	key = NewKey("org1", "blob", "application/x-unknown")
	if !strings.HasSuffix(key, ".bin") {
		t.Errorf("key %q should fall back to .bin", key)
	}
}
