// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/internal/handler"
	"adjunct-search-go/internal/middleware"
	"adjunct-search-go/internal/model"
	"adjunct-search-go/internal/pipeline"
	"adjunct-search-go/internal/repository"
	"adjunct-search-go/internal/service"
	"adjunct-search-go/pkg/database"
	"adjunct-search-go/pkg/embedding"
	"adjunct-search-go/pkg/es"
	"adjunct-search-go/pkg/kafka"
	"adjunct-search-go/pkg/llm"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/storage"
	"adjunct-search-go/pkg/tika"
	"adjunct-search-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitPostgres(cfg.Database.Postgres.DSN)
	if err := database.DB.AutoMigrate(&model.Applicant{}, &model.Resume{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化向量模型，预热失败时由首次调用重试
	generator := embedding.NewGenerator(
		embedding.NewClient(cfg.Embedding),
		cfg.Embedding,
		embedding.NewRedisCache(database.RDB, cfg.Embedding.CacheTTL),
	)
	defer generator.Close()
	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.Embedding.Timeout+5*time.Second)
	if err := generator.Init(initCtx); err != nil {
		log.Warnf("向量模型预热失败, 将在首次调用时重试: %v", err)
	}
	cancelInit()

	// 5. 初始化对象存储
	storage.InitMinIO(cfg.MinIO)
	store := storage.NewStore(storage.MinioClient, cfg.MinIO)
	links := service.NewLinkResolver(storage.MinioClient, cfg.MinIO)

	// 6. 初始化 Repository
	applicantRepo := repository.NewApplicantRepository(database.DB)
	resumeRepo := repository.NewResumeRepository(database.DB)

	// 7. 选择检索后端
	var (
		retriever     service.Retriever
		resumeIndex   service.ResumeIndex
		pipelineIndex pipeline.Indexer
	)
	if cfg.Search.Retriever == "elasticsearch" {
		if err := es.InitES(cfg.Elasticsearch, generator.Dimensions()); err != nil {
			log.Fatal("Elasticsearch 初始化失败", err)
		}
		retriever = service.NewESRetriever(service.NewESKnnSearcher(cfg.Elasticsearch.IndexName), resumeRepo, generator.Model())
		resumeIndex = service.NewESResumeIndex(cfg.Elasticsearch.IndexName)
		pipelineIndex = resumeIndex
	} else {
		retriever = service.NewPgvectorRetriever(resumeRepo, generator.Model())
	}
	log.Infof("检索后端: %s", cfg.Search.Retriever)

	// 8. 启动向量重试队列
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	var queue service.EmbeddingQueue
	if cfg.Kafka.Brokers != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		queue = producer

		processor := pipeline.NewProcessor(resumeRepo, generator, pipelineIndex)
		consumer := kafka.NewConsumer(cfg.Kafka, processor, kafka.NewAttemptCounter(database.RDB))
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("Kafka 消费者异常退出", err)
			}
		}()
	} else {
		log.Warnf("未配置 Kafka, 向量生成失败的简历需要通过回填工具处理")
	}

	// 9. 初始化 Service
	var tikaClient service.TikaClient
	if cfg.Tika.ServerURL != "" {
		tikaClient = tika.NewClient(cfg.Tika)
	}
	applicationService := service.NewApplicationService(
		applicantRepo,
		service.NewTextExtractor(tikaClient),
		generator,
		store,
		links,
		queue,
		resumeIndex,
	)
	scoringService := service.NewScoringService(llm.NewClient(cfg.LLM), cfg.Search)
	searchService := service.NewSearchService(generator, retriever, scoringService, links, cfg.Search)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)

	// 10. 注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	applicationHandler := handler.NewApplicationHandler(applicationService, cfg.Upload.MaxFileBytes)
	r.GET("/health", handler.NewHealthHandler(func() error { return database.Ping(database.DB) }).Check)

	api := r.Group("/api")
	{
		api.POST("/applications", applicationHandler.Submit)

		coordinator := api.Group("/")
		coordinator.Use(middleware.AuthMiddleware(jwtManager), middleware.CoordinatorAuthMiddleware())
		{
			coordinator.GET("/applications", applicationHandler.List)
			coordinator.GET("/applications/:id", applicationHandler.Get)
			coordinator.POST("/ai-search", handler.NewSearchHandler(searchService).AISearch)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	stopConsumer()
	log.Info("服务已优雅关闭")
}
