package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/calls"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/llm/bedrock"
	"compliance-backend/internal/llm/gateway"
	openai "compliance-backend/internal/llm/openai"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/services/health"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	s3store "compliance-backend/internal/shared/storage/object/s3"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/transcribe"
)

// App holds shared dependencies.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Queue        queue.Client
	LLM          llm.Client
	Transcriber  transcribe.Transcriber
	CallsRepo    calls.Repo
	CallsService *calls.Service
	CallsHandler *calls.Handler
	Health       *health.Service
	// Processor runs queued jobs; tests may replace it.
	Processor JobProcessor
}

// JobProcessor runs the transcription and analysis jobs carried by queue messages.
type JobProcessor interface {
	ProcessTranscription(ctx context.Context, contactID string) error
	ProcessAnalysis(ctx context.Context, contactID string) error
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	transcriber, err := buildTranscriber(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Queue:       queueClient,
		LLM:         llmClient,
		Transcriber: transcriber,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		CallsHandler: app.CallsHandler,
		Health:       app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.WithOverrides(db.DefaultLambdaOptions(), poolOverrides(cfg))
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.WithOverrides(db.DefaultServerOptions(), poolOverrides(cfg))
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

// poolOverrides maps the DB_* settings onto database pool options.
func poolOverrides(cfg config.Config) db.Options {
	return db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		PingTimeout:     cfg.DBPingTimeout,
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAITimeout)
	case "gateway":
		return gateway.NewClient(cfg.LLMGatewayURL)
	case "none":
		return llm.PlaceholderClient{}, nil
	default:
		if strings.TrimSpace(cfg.BedrockKnowledgeBaseID) == "" {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"reason": "BEDROCK_KNOWLEDGE_BASE_ID empty"})
				return llm.PlaceholderClient{}, nil
			}
			return nil, fmt.Errorf("BEDROCK_KNOWLEDGE_BASE_ID is required for the bedrock provider")
		}
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.BedrockKnowledgeBaseID, cfg.BedrockModelARN)
	}
}

// buildTranscriber needs the recordings in S3; with a local store transcription
// stays unavailable and transcripts must be posted directly.
func buildTranscriber(ctx context.Context, cfg config.Config, store object.ObjectStore) (transcribe.Transcriber, error) {
	media, ok := store.(*s3store.Store)
	if !ok {
		telemetry.Info("bootstrap.transcribe.disabled", map[string]any{"object_store": cfg.ObjectStoreType})
		return nil, nil
	}
	return transcribe.NewAWSTranscriber(ctx, cfg.AWSRegion, media, cfg.TranscribeLanguage)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var repo calls.Repo
	if app.DB != nil {
		repo = &calls.PGRepo{DB: app.DB}
	} else {
		repo = calls.NewMemoryRepo()
	}

	svc := &calls.Service{
		Repo:     repo,
		Store:    app.Store,
		Queue:    app.Queue,
		LLM:      app.LLM,
		Provider: app.Config.LLMProvider,
	}
	if app.Transcriber != nil {
		svc.Transcriber = app.Transcriber
	}

	app.CallsRepo = repo
	app.CallsService = svc
	app.Processor = svc
	app.CallsHandler = calls.NewHandler(svc)
	app.Health = health.NewService(app.DB, app.Config.LLMProvider)

	if app.CallsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
