package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// Provider mode constants
const (
	ProviderHelius  = "helius"
	ProviderSolscan = "solscan"
	ProviderRPC     = "rpc"
	ProviderDex     = "dexwatch"
)

// validProviders contains all supported provider names
var validProviders = map[string]bool{
	ProviderHelius:  true,
	ProviderSolscan: true,
	ProviderRPC:     true,
	ProviderDex:     true,
}

// Config holds all application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Wallets   []string        `yaml:"wallets"`
	Providers ProvidersConfig `yaml:"providers"`
	Poller    PollerConfig    `yaml:"poller"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Alert     AlertConfig     `yaml:"alert"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// ProvidersConfig selects and configures the activity providers. Order is
// the failover priority: the first provider returning activity wins.
type ProvidersConfig struct {
	Order    []string       `yaml:"order"`
	Helius   HeliusConfig   `yaml:"helius"`
	Solscan  SolscanConfig  `yaml:"solscan"`
	RPC      RPCConfig      `yaml:"rpc"`
	DexWatch DexWatchConfig `yaml:"dexwatch"`
}

// HeliusConfig holds Helius enhanced-API settings
type HeliusConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Limit   int           `yaml:"limit"`
	Timeout time.Duration `yaml:"timeout"`
}

// SolscanConfig holds Solscan API settings
type SolscanConfig struct {
	APIToken string        `yaml:"api_token"`
	BaseURL  string        `yaml:"base_url"`
	Limit    int           `yaml:"limit"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RPCConfig holds chain JSON-RPC settings
type RPCConfig struct {
	Endpoints      []string      `yaml:"endpoints"`
	SignatureLimit int           `yaml:"signature_limit"`
	Timeout        time.Duration `yaml:"timeout"`
}

// DexWatchConfig holds swap-detection settings
type DexWatchConfig struct {
	Programs  map[string]string `yaml:"programs"` // program id -> display label
	MinAmount float64           `yaml:"min_amount"`
}

// PollerConfig holds polling loop settings
type PollerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	BatchPause time.Duration `yaml:"batch_pause"`
}

// RateLimitConfig holds the outbound request budget
type RateLimitConfig struct {
	Capacity int           `yaml:"capacity"`
	Window   time.Duration `yaml:"window"`
}

// RetryConfig holds retry and backoff settings
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffCap  time.Duration `yaml:"backoff_cap"`
}

// DedupConfig holds dedup cache settings
type DedupConfig struct {
	Expiry time.Duration `yaml:"expiry"`
}

// AlertConfig holds alert formatting settings
type AlertConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string        `yaml:"bot_token"`
	BaseURL  string        `yaml:"base_url"`
	AdminIDs []int64       `yaml:"admin_ids"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig holds optional Redis connection configuration. When Host is
// empty the subscriber store stays in memory.
type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether a Redis subscriber store is configured
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// WebConfig holds the status server settings
type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or text
	TimeFormat string `yaml:"time_format"`
}

// Load loads configuration from file and environment variables
// Load order (later overrides earlier):
// 1. Default values
// 2. .env file (if exists) - loaded into process environment
// 3. YAML config file with ${VAR} expansion
// 4. Environment variable overrides (explicit mappings)
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	loadDotEnv(configPath)

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env files without overriding existing env vars
func loadDotEnv(configPath string) {
	envPaths := []string{
		".env",
		".env.local",
	}

	if configPath != "" {
		configDir := filepath.Dir(configPath)
		envPaths = append(envPaths,
			filepath.Join(configDir, ".env"),
			filepath.Join(configDir, "..", ".env"),
		)
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}
}

// defaultConfig returns configuration with default values
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "solana-wallet-tracker-bot",
			Environment: "development",
		},
		Providers: ProvidersConfig{
			Order: []string{ProviderHelius, ProviderSolscan},
			Helius: HeliusConfig{
				BaseURL: "https://api.helius.xyz",
				Limit:   10,
				Timeout: 15 * time.Second,
			},
			Solscan: SolscanConfig{
				BaseURL: "https://public-api.solscan.io",
				Limit:   10,
				Timeout: 15 * time.Second,
			},
			RPC: RPCConfig{
				Endpoints:      []string{"https://api.mainnet-beta.solana.com"},
				SignatureLimit: 10,
				Timeout:        20 * time.Second,
			},
			DexWatch: DexWatchConfig{
				MinAmount: 0,
			},
		},
		Poller: PollerConfig{
			Interval:   time.Minute,
			BatchSize:  5,
			BatchPause: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Capacity: 10,
			Window:   time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BackoffBase: time.Second,
			BackoffCap:  30 * time.Second,
		},
		Dedup: DedupConfig{
			Expiry: time.Hour,
		},
		Alert: AlertConfig{
			Threshold: 1000,
		},
		Telegram: TelegramConfig{
			Timeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Port:         6379,
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "text",
			TimeFormat: time.RFC3339,
		},
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	expanded := expandEnvVars(string(data))

	return yaml.Unmarshal([]byte(expanded), cfg)
}

// expandEnvVars replaces ${VAR} or $VAR with environment variable values
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return ""
	})
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(cfg *Config) {
	// App
	if v := os.Getenv("APP_NAME"); v != "" {
		cfg.App.Name = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Environment = v
	}

	// Wallets: comma-separated addresses
	if v := os.Getenv("WALLETS"); v != "" {
		cfg.Wallets = splitTrimmed(v)
	}

	// Providers
	if v := os.Getenv("PROVIDER_ORDER"); v != "" {
		cfg.Providers.Order = splitTrimmed(v)
	}
	if v := os.Getenv("HELIUS_API_KEY"); v != "" {
		cfg.Providers.Helius.APIKey = v
	}
	if v := os.Getenv("SOLSCAN_API_TOKEN"); v != "" {
		cfg.Providers.Solscan.APIToken = v
	}
	if v := os.Getenv("RPC_ENDPOINTS"); v != "" {
		cfg.Providers.RPC.Endpoints = splitTrimmed(v)
	}
	if v := os.Getenv("DEX_MIN_AMOUNT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Providers.DexWatch.MinAmount = f
		}
	}

	// Poller
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Poller.Interval = d
		}
	}
	if v := os.Getenv("POLL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poller.BatchSize = n
		}
	}

	// Rate limit
	if v := os.Getenv("RATE_LIMIT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Capacity = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}

	// Retry
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}

	// Dedup
	if v := os.Getenv("DEDUP_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dedup.Expiry = d
		}
	}

	// Alert
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alert.Threshold = f
		}
	}

	// Telegram
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_IDS"); v != "" {
		cfg.Telegram.AdminIDs = parseChatIDs(v)
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = n
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}

	// Web
	if v := os.Getenv("WEB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = n
		}
	}

	// Logger
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
}

// splitTrimmed splits a comma-separated value, dropping empty entries
func splitTrimmed(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseChatIDs parses comma-separated Telegram chat ids
func parseChatIDs(value string) []int64 {
	var ids []int64
	for _, p := range splitTrimmed(value) {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if len(c.Wallets) == 0 {
		return fmt.Errorf("at least one watched wallet is required")
	}
	for i, w := range c.Wallets {
		if err := validateWallet(w); err != nil {
			return fmt.Errorf("wallet[%d] %q: %w", i, w, err)
		}
	}

	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for i, name := range c.Providers.Order {
		if !validProviders[name] {
			return fmt.Errorf("provider[%d]: unknown provider %q, supported: helius, solscan, rpc, dexwatch", i, name)
		}
	}
	if c.providerEnabled(ProviderHelius) && c.Providers.Helius.APIKey == "" {
		return fmt.Errorf("helius provider requires an api key")
	}
	if (c.providerEnabled(ProviderRPC) || c.providerEnabled(ProviderDex)) && len(c.Providers.RPC.Endpoints) == 0 {
		return fmt.Errorf("rpc provider requires at least one endpoint")
	}

	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate limit capacity must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Dedup.Expiry <= 0 {
		return fmt.Errorf("dedup expiry must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}

	return nil
}

func (c *Config) providerEnabled(name string) bool {
	for _, p := range c.Providers.Order {
		if p == name {
			return true
		}
	}
	return false
}

// validateWallet checks that an address is valid base58-encoded 32-byte data
func validateWallet(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded length %d, want 32", len(raw))
	}
	return nil
}
