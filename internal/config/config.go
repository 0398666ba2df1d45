package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Elastic  ElasticConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Pipeline PipelineConfig
	AI       AIConfig
	Auth     AuthConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ElasticConfig Elasticsearch配置
type ElasticConfig struct {
	Host        string
	Username    string
	Password    string
	IndexPrefix string
}

// StorageConfig 混合存储配置
// Primary/Backup 指定 local 或 minio；Backup 为空表示无冗余
type StorageConfig struct {
	Primary string
	Backup  string
	Local   LocalStorageConfig
	MinIO   MinIOStorageConfig
}

// LocalStorageConfig 本地存储配置
type LocalStorageConfig struct {
	BasePath  string
	URLPrefix string
}

// MinIOStorageConfig MinIO 存储配置
type MinIOStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLPrefix string
}

// QueueConfig 任务队列配置
// Mode: redis（默认）、rest（Redis 被防火墙阻断时的 REST 回退）、memory
type QueueConfig struct {
	Mode         string
	RESTURL      string
	RESTToken    string
	PollInterval int // 毫秒
}

// PipelineConfig 管道配置
type PipelineConfig struct {
	Workers            int
	MaxAttempts        int
	BackoffBase        int // 秒
	BackoffMax         int // 秒
	JobTimeout         int // 秒
	MinTextLength      int // 提取结果最小有效长度
	MaxContentLength   int // 索引内容截断上限（字符）
	ExtractionPriority int
	IndexPriority      int
	AnalysisPriority   int
	ReprocessPriority  int
	CacheTTL           int // 搜索缓存 TTL（秒）
	CacheCapacity      int // 搜索缓存容量上限
}

// AIConfig AI配置
type AIConfig struct {
	Enabled  bool
	Provider string
	OpenAI   OpenAIConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// AuthConfig 认证配置
// 只做令牌校验，签发在外部系统
type AuthConfig struct {
	JWTSecret string
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("DOCVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "docvault")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "docvault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Elastic
	v.SetDefault("elastic.host", "http://localhost:9200")
	v.SetDefault("elastic.indexPrefix", "docvault")

	// Storage
	v.SetDefault("storage.primary", "local")
	v.SetDefault("storage.backup", "")
	v.SetDefault("storage.local.basePath", "./data/files")
	v.SetDefault("storage.local.urlPrefix", "/files")

	// Queue
	v.SetDefault("queue.mode", "redis")
	v.SetDefault("queue.pollInterval", 500)

	// Pipeline
	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.maxAttempts", 3)
	v.SetDefault("pipeline.backoffBase", 2)
	v.SetDefault("pipeline.backoffMax", 60)
	v.SetDefault("pipeline.jobTimeout", 120)
	v.SetDefault("pipeline.minTextLength", 100)
	v.SetDefault("pipeline.maxContentLength", 50000)
	v.SetDefault("pipeline.extractionPriority", 7)
	v.SetDefault("pipeline.indexPriority", 5)
	v.SetDefault("pipeline.analysisPriority", 3)
	v.SetDefault("pipeline.reprocessPriority", 2)
	v.SetDefault("pipeline.cacheTTL", 60)
	v.SetDefault("pipeline.cacheCapacity", 1000)

	// AI
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
}
