package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ashwinyue/docvault/internal/model"
)

// LocalBackend 本地文件存储后端
type LocalBackend struct {
	basePath string
}

// NewLocalBackend 创建本地存储后端
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	// 确保基础路径存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalBackend{basePath: basePath}, nil
}

// Kind 返回后端类型
func (b *LocalBackend) Kind() string {
	return model.BackendLocal
}

// Put 写入文件到本地
func (b *LocalBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	fullPath := filepath.Join(b.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get 读取文件内容
func (b *LocalBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath := filepath.Join(b.basePath, key)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete 删除文件
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(b.basePath, key)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists 检查文件是否存在
func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	fullPath := filepath.Join(b.basePath, key)
	_, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Health 检查基础路径可写
func (b *LocalBackend) Health(ctx context.Context) error {
	info, err := os.Stat(b.basePath)
	if err != nil {
		return fmt.Errorf("base path unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base path is not a directory: %s", b.basePath)
	}
	return nil
}
