package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwinyue/docvault/internal/config"
	"github.com/ashwinyue/docvault/internal/database"
	"github.com/ashwinyue/docvault/internal/handler"
	"github.com/ashwinyue/docvault/internal/repository"
	"github.com/ashwinyue/docvault/internal/router"
	"github.com/ashwinyue/docvault/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.DBName)

	// 初始化 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(repos, cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to init services: %v", err)
	}
	handlers := handler.NewHandlers(services)

	// 确保搜索索引存在
	if err := services.Indexer.EnsureIndex(context.Background()); err != nil {
		log.Printf("Warning: failed to ensure search index: %v", err)
	}

	// 启动管道工作协程与对账循环
	pipelineCtx, pipelineCancel := context.WithCancel(context.Background())
	services.Pipeline.Start(pipelineCtx)
	services.Pipeline.StartReconciler(pipelineCtx, services.Storage, time.Minute)

	// 初始化路由
	r := router.SetupRouter(handlers, services)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭：先停收新请求，再等在途管道任务
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pipelineCancel()
	services.Pipeline.Stop()

	log.Println("Server exited")
}
