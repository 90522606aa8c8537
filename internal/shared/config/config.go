package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"compliance-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port                   string
	CORSAllowOrigin        []string
	APIKeys                []string
	ObjectStoreType        string
	LocalStoreDir          string
	AWSRegion              string
	S3Bucket               string
	S3Prefix               string
	SSEKMSKeyID            string
	LLMProvider            string
	LLMModel               string
	OpenAIAPIKey           string
	LLMGatewayURL          string
	BedrockKnowledgeBaseID string
	BedrockModelARN        string
	TranscribeLanguage     string
	DatabaseURL            string
	QueueURL               string
	RateLimitRPS           float64
	RateLimitBurst         int
	Env                    string

	// Pool overrides; zero keeps the runtime default.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration

	OpenAITimeout time.Duration

	WorkerVisibilitySeconds int
	WorkerConcurrency       int
	ShutdownTimeout         time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := v.GetString("DATABASE_URL")
	if env == "production" && dbURL == "" {
		telemetry.Error("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:                   v.GetString("PORT"),
		CORSAllowOrigin:        splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		APIKeys:                splitAndTrim(v.GetString("API_KEYS")),
		ObjectStoreType:        normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:          v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:              v.GetString("AWS_REGION"),
		S3Bucket:               v.GetString("S3_BUCKET"),
		S3Prefix:               v.GetString("S3_PREFIX"),
		SSEKMSKeyID:            v.GetString("SSE_KMS_KEY_ID"),
		LLMProvider:            normalizeProvider(v.GetString("LLM_PROVIDER")),
		LLMModel:               v.GetString("LLM_MODEL"),
		OpenAIAPIKey:           v.GetString("OPENAI_API_KEY"),
		LLMGatewayURL:          v.GetString("LLM_GATEWAY_URL"),
		BedrockKnowledgeBaseID: v.GetString("BEDROCK_KNOWLEDGE_BASE_ID"),
		BedrockModelARN:        v.GetString("BEDROCK_MODEL_ARN"),
		TranscribeLanguage:     v.GetString("TRANSCRIBE_LANGUAGE"),
		DatabaseURL:            dbURL,
		QueueURL:               v.GetString("CA_SQS_QUEUE_URL"),
		RateLimitRPS:           v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:         v.GetInt("RATE_LIMIT_BURST"),
		Env:                    env,

		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		DBPingTimeout:     v.GetDuration("DB_PING_TIMEOUT"),

		OpenAITimeout: seconds(v.GetInt("OPENAI_TIMEOUT_SECONDS")),

		WorkerVisibilitySeconds: v.GetInt("CA_SQS_VISIBILITY_TIMEOUT_SECONDS"),
		WorkerConcurrency:       v.GetInt("CA_WORKER_CONCURRENCY"),
		ShutdownTimeout:         seconds(v.GetInt("CA_SHUTDOWN_TIMEOUT_SECONDS")),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("LLM_PROVIDER", "bedrock")
	v.SetDefault("TRANSCRIBE_LANGUAGE", "vi-VN")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("OPENAI_TIMEOUT_SECONDS", 120)
	v.SetDefault("CA_SQS_VISIBILITY_TIMEOUT_SECONDS", 900)
	v.SetDefault("CA_WORKER_CONCURRENCY", 4)
	v.SetDefault("CA_SHUTDOWN_TIMEOUT_SECONDS", 30)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gateway", "api-gateway":
		return "gateway"
	case "none", "off", "disabled":
		return "none"
	default:
		return "bedrock"
	}
}
