package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Experiment ExperimentConfig `mapstructure:"experiment"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DataConfig struct {
	RestaurantsPath string `mapstructure:"restaurants_path"`
	EmbeddingsPath  string `mapstructure:"embeddings_path"`
}

type RetrievalConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	PoolSize      int           `mapstructure:"pool_size"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	SemanticBlend float64       `mapstructure:"semantic_blend"`
}

type ExperimentConfig struct {
	VariantA WeightsConfig `mapstructure:"variant_a"`
	VariantB WeightsConfig `mapstructure:"variant_b"`
	// WinnerThreshold is the absolute satisfaction-rate gap, in
	// percentage points, required before a winner is declared.
	WinnerThreshold float64 `mapstructure:"winner_threshold"`
}

type WeightsConfig struct {
	Rating  float64 `mapstructure:"rating"`
	Cuisine float64 `mapstructure:"cuisine"`
	Price   float64 `mapstructure:"price"`
}

type LLMConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

type EmbeddingConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Default int           `mapstructure:"default"`
	Window  time.Duration `mapstructure:"window"`
}

type DatabaseConfig struct {
	// URL is optional; when empty the durable feedback log is disabled
	// and feedback lives only in process memory.
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	AnalyticsTopic string   `mapstructure:"analytics_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Data defaults
	viper.SetDefault("data.restaurants_path", "./data/processed/restaurants.csv")
	viper.SetDefault("data.embeddings_path", "./data/processed/embeddings.jsonl")

	// Retrieval defaults
	viper.SetDefault("retrieval.cache_ttl", "300s")
	viper.SetDefault("retrieval.pool_size", 30)
	viper.SetDefault("retrieval.default_limit", 10)
	viper.SetDefault("retrieval.semantic_blend", 0.5)

	// Experiment defaults: A is rating-heavy control, B shifts weight
	// from rating to price alignment.
	viper.SetDefault("experiment.variant_a.rating", 0.6)
	viper.SetDefault("experiment.variant_a.cuisine", 0.3)
	viper.SetDefault("experiment.variant_a.price", 0.1)
	viper.SetDefault("experiment.variant_b.rating", 0.4)
	viper.SetDefault("experiment.variant_b.cuisine", 0.3)
	viper.SetDefault("experiment.variant_b.price", 0.3)
	viper.SetDefault("experiment.winner_threshold", 5.0)

	// LLM defaults
	viper.SetDefault("llm.enabled", true)
	viper.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "llama-3.3-70b-versatile")
	viper.SetDefault("llm.timeout", "10s")
	viper.SetDefault("llm.max_tokens", 1024)

	// Embedding defaults
	viper.SetDefault("embedding.base_url", "http://localhost:11434")
	viper.SetDefault("embedding.model", "all-minilm")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.timeout", "5s")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "dev-secret-change-in-production")
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.enabled", false)
	viper.SetDefault("auth.rate_limit.default", 120)
	viper.SetDefault("auth.rate_limit.window", "1m")

	// Database defaults
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.analytics_topic", "search-analytics")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
