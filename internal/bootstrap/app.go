package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"coursechat/internal/ai"
	"coursechat/internal/app"
	"coursechat/internal/chunker"
	"coursechat/internal/config"
	"coursechat/internal/index"
	"coursechat/internal/model"
	mysqlClient "coursechat/internal/platform/mysql"
	rabbitmqClient "coursechat/internal/platform/rabbitmq"
	redisClient "coursechat/internal/platform/redis"
	"coursechat/internal/repository"
	"coursechat/internal/session"
	"coursechat/internal/tool"
	"coursechat/internal/vectorstore"
	"coursechat/internal/vectorstore/memory"
	"coursechat/internal/vectorstore/qdrant"
	"coursechat/internal/worker"
)

// App owns every long-lived dependency of the service: clients, the index,
// the services behind the HTTP handlers and the persist worker.
type App struct {
	Config         *config.Config
	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	Index          *index.Index
	QueryService   *app.QueryService
	IngestService  *app.IngestService
	ExchangeWorker *worker.ExchangePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Course{}, &model.Lesson{}, &model.Exchange{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	var redisCli *redis.Client
	if cfg.Sessions.Backend == "redis" {
		redisCli, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbeddingClient(ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	})

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "qdrant":
		store = qdrant.New(qdrant.Config{
			URL:    cfg.VectorStore.QdrantURL,
			APIKey: cfg.VectorStore.QdrantKey,
		})
	default:
		store = memory.New()
	}

	ix := index.New(store, embedder, cfg.Embedding.Dimension, cfg.Retrieval.MaxResults)
	ix.SetResolveThreshold(float32(cfg.Retrieval.ResolveThreshold))
	if err := ix.Init(ctx); err != nil {
		return nil, fmt.Errorf("init index failed: %w", err)
	}

	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewSearchTool(ix)); err != nil {
		return nil, err
	}
	if err := registry.Register(tool.NewOutlineTool(ix)); err != nil {
		return nil, err
	}

	generator := ai.NewAnthropicClient(ai.ChatConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	orchestrator := app.NewOrchestrator(generator, registry)

	var sessions session.Store
	if cfg.Sessions.Backend == "redis" {
		sessions = session.NewRedisStore(redisCli, cfg.Retrieval.MaxHistory)
	} else {
		sessions = session.NewMemoryStore(cfg.Retrieval.MaxHistory)
	}

	courseRepo := repository.NewCourseRepository(mysqlDB)
	exchangeRepo := repository.NewExchangeRepository(mysqlDB)
	publisher := rabbitmqClient.NewExchangePublisher(mqConn, cfg.RabbitMQ.ExchangePersistQueue)

	exchangeWorker := worker.NewExchangePersistWorker(mqConn, exchangeRepo, cfg.RabbitMQ.ExchangePersistQueue)
	if err := exchangeWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start exchange worker failed: %w", err)
	}

	queryService := app.NewQueryService(sessions, orchestrator, ix, publisher)
	ingestService := app.NewIngestService(
		chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		ix,
		courseRepo,
	)

	loadStartupDocs(ctx, ingestService, cfg.Docs.Dir)

	return &App{
		Config:         cfg,
		MySQL:          mysqlDB,
		Redis:          redisCli,
		MQConn:         mqConn,
		Index:          ix,
		QueryService:   queryService,
		IngestService:  ingestService,
		ExchangeWorker: exchangeWorker,
		StartedAt:      time.Now(),
	}, nil
}

// loadStartupDocs indexes the transcripts folder if one is configured and
// present. A missing folder is normal for API-only deployments.
func loadStartupDocs(ctx context.Context, svc *app.IngestService, dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		log.Printf("docs dir %s not found, skipping startup ingestion", dir)
		return
	}
	result, err := svc.IngestFolder(ctx, dir)
	if err != nil {
		log.Printf("startup ingestion failed: %v", err)
		return
	}
	log.Printf("loaded %d courses (%d chunks) from %s", result.CoursesAdded, result.ChunksAdded, dir)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ExchangeWorker != nil {
		a.ExchangeWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
