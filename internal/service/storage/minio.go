package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOBackend MinIO 对象存储后端
type MinIOBackend struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOBackend 创建 MinIO 存储后端
func NewMinIOBackend(cfg *config.MinIOStorageConfig) (*MinIOBackend, error) {
	// 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	// 检查 bucket 是否存在，不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOBackend{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Kind 返回后端类型
func (b *MinIOBackend) Kind() string {
	return model.BackendMinIO
}

// Put 上传对象到 MinIO
func (b *MinIOBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to MinIO: %w", err)
	}
	return nil
}

// Get 获取对象内容
func (b *MinIOBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := b.client.GetObject(ctx, b.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from MinIO: %w", err)
	}
	return object, nil
}

// Delete 删除对象
func (b *MinIOBackend) Delete(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (b *MinIOBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		var errResp minio.ErrorResponse
		if errors.As(err, &errResp) && errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Health 检查 bucket 可访问
func (b *MinIOBackend) Health(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucketName)
	if err != nil {
		return fmt.Errorf("minio unavailable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket does not exist: %s", b.bucketName)
	}
	return nil
}
