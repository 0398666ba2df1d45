// Package service 组装各业务服务
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/repository"
	"github.com/ashwinyue/docvault/internal/service/ai"
	"github.com/ashwinyue/docvault/internal/service/extract"
	"github.com/ashwinyue/docvault/internal/service/pipeline"
	"github.com/ashwinyue/docvault/internal/service/queue"
	"github.com/ashwinyue/docvault/internal/service/search"
	"github.com/ashwinyue/docvault/internal/service/storage"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Storage   *storage.Hybrid
	Queue     queue.Queue
	Extractor *extract.Extractor
	Indexer   *search.Indexer
	Searcher  *search.Searcher
	Pipeline  *pipeline.Processor

	Config *config.Config
	Redis  *redis.Client
	Repos  *repository.Repositories
}

// NewServices 创建所有服务
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 混合存储
	hybrid, err := storage.NewHybridFromConfig(cfg, repos.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 任务队列，按配置选择实现
	q, err := newQueue(cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to init queue: %w", err)
	}

	// 文本提取器
	extractor := extract.NewExtractor(cfg.Pipeline.MinTextLength)

	// 搜索索引与查询
	esClient, err := search.NewESClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	indexer := search.NewIndexer(esClient, cfg.Elastic.IndexPrefix, cfg.Pipeline.MaxContentLength)
	cache := search.NewCache(
		time.Duration(cfg.Pipeline.CacheTTL)*time.Second,
		cfg.Pipeline.CacheCapacity,
		redisClient,
	)
	searcher := search.NewSearcher(search.NewESSearcher(esClient), indexer.IndexName(), cache)

	// AI 分析器，未启用时为 nil
	var analyzer ai.Analyzer
	chatAnalyzer, err := ai.NewAnalyzer(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create analyzer: %v", err)
	} else if chatAnalyzer != nil {
		analyzer = chatAnalyzer
	}

	// 管道处理器
	processor := pipeline.NewProcessor(
		repository.NewPipelineStore(repos),
		q,
		hybrid,
		extractor,
		indexer,
		analyzer,
		cfg.Pipeline,
		cfg.Queue.PollInterval,
	)

	return &Services{
		Storage:   hybrid,
		Queue:     q,
		Extractor: extractor,
		Indexer:   indexer,
		Searcher:  searcher,
		Pipeline:  processor,
		Config:    cfg,
		Redis:     redisClient,
		Repos:     repos,
	}, nil
}

// newQueue 按配置选择队列实现
// redis 为默认；rest 用于 Redis 协议被阻断的环境；memory 仅限单实例
func newQueue(cfg *config.Config, redisClient *redis.Client) (queue.Queue, error) {
	switch cfg.Queue.Mode {
	case "", "redis":
		return queue.NewRedisQueue(redisClient), nil
	case "rest":
		if cfg.Queue.RESTURL == "" {
			return nil, fmt.Errorf("queue.restUrl is required in rest mode")
		}
		return queue.NewRESTQueue(cfg.Queue.RESTURL, cfg.Queue.RESTToken), nil
	case "memory":
		log.Printf("Warning: memory queue does not survive restarts, use for development only")
		return queue.NewMemoryQueue(), nil
	default:
		return nil, fmt.Errorf("unsupported queue mode: %s", cfg.Queue.Mode)
	}
}
