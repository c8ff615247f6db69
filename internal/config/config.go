// Package config loads the service configuration from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every configuration section.
type Config struct {
	Server       ServerConfig
	Webhook      WebhookConfig
	AI           AIConfig
	Session      SessionConfig
	Ledger       LedgerConfig
	Catalog      CatalogConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Subscription SubscriptionConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	webhook, err := loadWebhookConfig()
	if err != nil {
		return nil, err
	}
	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}
	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}
	ledger, err := loadLedgerConfig()
	if err != nil {
		return nil, err
	}
	authCfg, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}
	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}
	subscription, err := loadSubscriptionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:       server,
		Webhook:      webhook,
		AI:           ai,
		Session:      session,
		Ledger:       ledger,
		Catalog:      CatalogConfig{Path: strings.TrimSpace(os.Getenv("CATALOG_PATH"))},
		Auth:         authCfg,
		RateLimit:    rateLimit,
		Subscription: subscription,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// accept ":8080" or "127.0.0.1:8080" as is
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// WebhookConfig describes the remote reply service.
type WebhookConfig struct {
	URL           string
	LocalFallback bool
	Timeout       time.Duration
}

func loadWebhookConfig() (WebhookConfig, error) {
	fallback, err := parseBoolEnv("USE_LOCAL_FALLBACK", true)
	if err != nil {
		return WebhookConfig{}, err
	}
	timeout, err := parseDurationEnv("WEBHOOK_TIMEOUT", 20*time.Second)
	if err != nil {
		return WebhookConfig{}, err
	}
	return WebhookConfig{
		URL:           strings.TrimSpace(os.Getenv("N8N_WEBHOOK_URL")),
		LocalFallback: fallback,
		Timeout:       timeout,
	}, nil
}

// AIConfig describes the Ark chat model used when no webhook is configured.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SessionConfig holds chat session timing and limits. Sessions with no
// subscriber and no activity for IdleTTL are closed by the reaper.
type SessionConfig struct {
	CardDropInterval time.Duration
	CardDropDwell    time.Duration
	GreetingDelay    time.Duration
	QueueSize        int
	IdleTTL          time.Duration
	ReapInterval     time.Duration
	MaxPerUser       int
}

func loadSessionConfig() (SessionConfig, error) {
	interval, err := parseDurationEnv("CARD_DROP_INTERVAL", 5*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	dwell, err := parseDurationEnv("CARD_DROP_DWELL", 5*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	greeting, err := parseDurationEnv("GREETING_DELAY", time.Second)
	if err != nil {
		return SessionConfig{}, err
	}
	queue, err := parseOptionalIntEnv("SESSION_QUEUE_SIZE")
	if err != nil {
		return SessionConfig{}, err
	}
	idle, err := parseDurationEnv("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	reap, err := parseDurationEnv("SESSION_REAP_INTERVAL", time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	maxPerUser, err := parseOptionalIntEnv("SESSION_MAX_PER_USER")
	if err != nil {
		return SessionConfig{}, err
	}

	cfg := SessionConfig{
		CardDropInterval: interval,
		CardDropDwell:    dwell,
		GreetingDelay:    greeting,
		QueueSize:        32,
		IdleTTL:          idle,
		ReapInterval:     reap,
		MaxPerUser:       5,
	}
	if queue != nil {
		if *queue < 1 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_QUEUE_SIZE value %d: must be positive", *queue)
		}
		cfg.QueueSize = *queue
	}
	if maxPerUser != nil {
		if *maxPerUser < 1 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_MAX_PER_USER value %d: must be positive", *maxPerUser)
		}
		cfg.MaxPerUser = *maxPerUser
	}
	return cfg, nil
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// LedgerConfig selects where saved cards (and, for SQL backends,
// subscriptions) are persisted.
type LedgerConfig struct {
	Backend    string
	DataDir    string
	RedisAddr  string
	DSN        string
	SQLitePath string
}

// UsesSQL reports whether the backend is a database/sql driver.
func (c LedgerConfig) UsesSQL() bool {
	return c.Backend == BackendPostgres || c.Backend == BackendSQLite
}

func loadLedgerConfig() (LedgerConfig, error) {
	cfg := LedgerConfig{
		Backend:    strings.ToLower(getEnvOrDefault("LEDGER_BACKEND", BackendMemory)),
		DataDir:    getEnvOrDefault("LEDGER_DATA_DIR", "data"),
		RedisAddr:  getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		DSN:        strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", "onlynex.db"),
	}

	switch cfg.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	case BackendPostgres:
		if cfg.DSN == "" {
			return LedgerConfig{}, fmt.Errorf("DB_DSN is required for LEDGER_BACKEND=postgres")
		}
	default:
		return LedgerConfig{}, fmt.Errorf("invalid LEDGER_BACKEND value %q", cfg.Backend)
	}
	return cfg, nil
}

// CatalogConfig points at an optional YAML catalog file.
type CatalogConfig struct {
	Path string
}

// AuthConfig controls identity tokens. An empty secret enables development
// mode, where callers identify themselves with X-User-Id.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func (c AuthConfig) Enabled() bool {
	return c.JWTSecret != ""
}

func loadAuthConfig() (AuthConfig, error) {
	ttl, err := parseDurationEnv("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	return AuthConfig{JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")), TokenTTL: ttl}, nil
}

// RateLimitConfig bounds how fast one identity may send messages.
type RateLimitConfig struct {
	MessagesPerSecond float64
	Burst             int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	perSecond, err := parseOptionalFloatEnv("MESSAGE_RATE")
	if err != nil {
		return RateLimitConfig{}, err
	}
	burst, err := parseOptionalIntEnv("MESSAGE_BURST")
	if err != nil {
		return RateLimitConfig{}, err
	}

	cfg := RateLimitConfig{MessagesPerSecond: 2, Burst: 5}
	if perSecond != nil {
		cfg.MessagesPerSecond = *perSecond
	}
	if burst != nil {
		cfg.Burst = *burst
	}
	return cfg, nil
}

// SubscriptionConfig controls payment provisioning and expiry.
type SubscriptionConfig struct {
	Period          time.Duration
	SweepInterval   time.Duration
	DefaultPassword string
}

func loadSubscriptionConfig() (SubscriptionConfig, error) {
	period, err := parseDurationEnv("SUBSCRIPTION_PERIOD", 30*24*time.Hour)
	if err != nil {
		return SubscriptionConfig{}, err
	}
	sweep, err := parseDurationEnv("SUBSCRIPTION_SWEEP_INTERVAL", 24*time.Hour)
	if err != nil {
		return SubscriptionConfig{}, err
	}
	return SubscriptionConfig{
		Period:          period,
		SweepInterval:   sweep,
		DefaultPassword: getEnvOrDefault("DEFAULT_PASSWORD", "onlynex"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
