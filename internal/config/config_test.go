// Package config 配置加载单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ========== 默认值测试 ==========

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Primary != "local" {
		t.Errorf("Storage.Primary = %q, want local", cfg.Storage.Primary)
	}
	if cfg.Storage.Backup != "" {
		t.Errorf("Storage.Backup = %q, want empty (no redundancy by default)", cfg.Storage.Backup)
	}
	if cfg.Queue.Mode != "redis" {
		t.Errorf("Queue.Mode = %q, want redis", cfg.Queue.Mode)
	}

	// 管道默认值
	p := cfg.Pipeline
	if p.Workers != 2 {
		t.Errorf("Pipeline.Workers = %d, want 2", p.Workers)
	}
	if p.MaxAttempts != 3 {
		t.Errorf("Pipeline.MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.MinTextLength != 100 {
		t.Errorf("Pipeline.MinTextLength = %d, want 100", p.MinTextLength)
	}
	if p.MaxContentLength != 50000 {
		t.Errorf("Pipeline.MaxContentLength = %d, want 50000", p.MaxContentLength)
	}

	// 阶段优先级：提取 > 索引 > 分析 > 重处理
	if !(p.ExtractionPriority > p.IndexPriority &&
		p.IndexPriority > p.AnalysisPriority &&
		p.AnalysisPriority > p.ReprocessPriority) {
		t.Errorf("priority ordering broken: %d/%d/%d/%d",
			p.ExtractionPriority, p.IndexPriority, p.AnalysisPriority, p.ReprocessPriority)
	}

	// AI 默认关闭
	if cfg.AI.Enabled {
		t.Error("AI.Enabled should default to false")
	}
}

// ========== 配置文件覆盖测试 ==========

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
storage:
  primary: minio
  backup: local
queue:
  mode: memory
pipeline:
  workers: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Primary != "minio" || cfg.Storage.Backup != "local" {
		t.Errorf("storage = %q/%q, want minio/local", cfg.Storage.Primary, cfg.Storage.Backup)
	}
	if cfg.Queue.Mode != "memory" {
		t.Errorf("Queue.Mode = %q, want memory", cfg.Queue.Mode)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("Pipeline.Workers = %d, want 8", cfg.Pipeline.Workers)
	}
	// 未覆盖的键保留默认值
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("Pipeline.MaxAttempts = %d, want default 3", cfg.Pipeline.MaxAttempts)
	}
}

// ========== DSN 与地址拼接测试 ==========

func TestConnectionStrings(t *testing.T) {
	db := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "svc",
		Password: "pw", DBName: "docvault", SSLMode: "require",
	}
	want := "host=db.internal port=5433 user=svc password=pw dbname=docvault sslmode=require"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}

	srv := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := srv.GetAddr(); got != "0.0.0.0:8080" {
		t.Errorf("ServerConfig.GetAddr() = %q", got)
	}

	r := RedisConfig{Host: "cache.internal", Port: 6380}
	if got := r.GetAddr(); got != "cache.internal:6380" {
		t.Errorf("RedisConfig.GetAddr() = %q", got)
	}
}
