package config

import "time"

// Role identifies which binary is loading the configuration. Sections that
// only one binary needs are required only for that role.
type Role string

const (
	RoleOrchestrator     Role = "orchestrator"
	RoleGenerationWorker Role = "generation-worker"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Role     Role           `mapstructure:"-" validate:"required,oneof=orchestrator generation-worker"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq" validate:"required"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ServiceName string `mapstructure:"service_name"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0,lt=44640"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	ModelName      string        `mapstructure:"model_name" validate:"required"`
	MaxTry         int           `mapstructure:"max_try" validate:"gte=1,lte=10"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gt=0"`
	// Optional overrides for the embedded prompt templates.
	QuizPromptPath   string `mapstructure:"quiz_prompt_path"`
	SafetyPromptPath string `mapstructure:"safety_prompt_path"`
}

// RabbitMQConfig contains the broker address and queue names.
type RabbitMQConfig struct {
	URL                     string `mapstructure:"url" validate:"required,url"`
	ParseRequestQueue       string `mapstructure:"parse_request_queue" validate:"required"`
	FileParsedQueue         string `mapstructure:"file_parsed_queue" validate:"required"`
	GenerationRequestQueue  string `mapstructure:"generation_request_queue" validate:"required"`
	GenerationCompleteQueue string `mapstructure:"generation_complete_queue" validate:"required"`
}

// MinIOConfig contains object storage settings for uploaded files.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// CacheConfig selects and tunes the parsed content cache.
type CacheConfig struct {
	Backend       string `mapstructure:"backend" validate:"required,oneof=postgres redis"`
	LRUSize       int    `mapstructure:"lru_size" validate:"gte=0"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
}

// WorkerConfig contains settings for the generation worker pool.
type WorkerConfig struct {
	Count int `mapstructure:"count" validate:"gte=1,lte=64"`
}
