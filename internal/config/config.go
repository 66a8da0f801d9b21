// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // status cache ttl
}

type AuthConfig struct {
	// DispatchSecret authorizes the dispatch trigger (Bearer <secret>).
	DispatchSecret string `yaml:"dispatch_secret"`
	// DevSecret is accepted in place of DispatchSecret only in dev mode.
	DevSecret string `yaml:"dev_secret"`
	// JWTSecret signs collaborator tokens (HS256).
	JWTSecret string `yaml:"jwt_secret"`
}

type AIConfig struct {
	Provider         string            `yaml:"provider"` // gemini | openai
	GeminiKey        string            `yaml:"gemini_key"`
	GeminiURL        string            `yaml:"gemini_url"`
	OpenAIKey        string            `yaml:"openai_key"`
	OpenAIURL        string            `yaml:"openai_url"`
	ReconstructModel string            `yaml:"reconstruct_model"`
	TranslateModel   string            `yaml:"translate_model"`
	TranscribeModel  string            `yaml:"transcribe_model"`
	MaxOutputTokens  int               `yaml:"max_output_tokens"`
	MaxInputTokens   int               `yaml:"max_input_tokens"` // 0 disables the pre-flight count
	ConcurrentLimit  int               `yaml:"concurrent_limit"` // max concurrent AI calls
	RequestTimeout   time.Duration     `yaml:"request_timeout"`
	ModelProviders   map[string]string `yaml:"model_providers"` // model -> provider override
}

type OCRConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Parallelism    int           `yaml:"parallelism"`
}

type MediaConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBytes     int64         `yaml:"max_bytes"`
}

type VideoConfig struct {
	Enabled         bool          `yaml:"enabled"`
	CredentialsFile string        `yaml:"credentials_file"`
	LanguageCode    string        `yaml:"language_code"`
	AltLanguages    []string      `yaml:"alt_languages"`
	Timeout         time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BackoffUnit  time.Duration `yaml:"backoff_unit"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	StuckAge     time.Duration `yaml:"stuck_age"`
}

type PipelineConfig struct {
	InvocationTimeout time.Duration `yaml:"invocation_timeout"`
}

type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PoolSize     int           `yaml:"pool_size"`
}

type TranslationConfig struct {
	RateLimit  int           `yaml:"rate_limit"` // requests per window per target
	RateWindow time.Duration `yaml:"rate_window"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	AI          AIConfig          `yaml:"ai"`
	OCR         OCRConfig         `yaml:"ocr"`
	Media       MediaConfig       `yaml:"media"`
	Video       VideoConfig       `yaml:"video"`
	Queue       QueueConfig       `yaml:"queue"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Worker      WorkerConfig      `yaml:"worker"`
	Translation TranslationConfig `yaml:"translation"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, expands ${ENV} references and
// applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw yaml, applies defaults and validates required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	switch cfg.AI.Provider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("ai.provider %q is not supported", cfg.AI.Provider)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 330 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.ReconstructModel == "" {
		cfg.AI.ReconstructModel = "gemini-2.5-flash"
	}
	if cfg.AI.TranslateModel == "" {
		cfg.AI.TranslateModel = cfg.AI.ReconstructModel
	}
	if cfg.AI.TranscribeModel == "" {
		cfg.AI.TranscribeModel = "gemini-2.5-flash"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 8192
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 120 * time.Second
	}

	if cfg.OCR.BaseURL == "" {
		cfg.OCR.BaseURL = "http://localhost:8001"
	}
	cfg.OCR.BaseURL = strings.TrimRight(cfg.OCR.BaseURL, "/")
	if cfg.OCR.RequestTimeout <= 0 {
		cfg.OCR.RequestTimeout = 120 * time.Second
	}
	if cfg.OCR.Parallelism <= 0 {
		cfg.OCR.Parallelism = 3
	}

	if cfg.Media.FetchTimeout <= 0 {
		cfg.Media.FetchTimeout = 45 * time.Second
	}
	if cfg.Media.MaxBytes <= 0 {
		cfg.Media.MaxBytes = 100 << 20
	}

	if cfg.Video.LanguageCode == "" {
		cfg.Video.LanguageCode = "hi-IN"
	}
	if len(cfg.Video.AltLanguages) == 0 {
		cfg.Video.AltLanguages = []string{"en-IN", "sa"}
	}
	if cfg.Video.Timeout <= 0 {
		cfg.Video.Timeout = 280 * time.Second
	}

	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BackoffUnit <= 0 {
		cfg.Queue.BackoffUnit = 30 * time.Second
	}
	if cfg.Queue.ReapInterval <= 0 {
		cfg.Queue.ReapInterval = time.Minute
	}
	if cfg.Queue.StuckAge <= 0 {
		cfg.Queue.StuckAge = 10 * time.Minute
	}

	if cfg.Pipeline.InvocationTimeout <= 0 {
		cfg.Pipeline.InvocationTimeout = 300 * time.Second
	}

	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 5 * time.Second
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 2
	}

	if cfg.Translation.RateLimit <= 0 {
		cfg.Translation.RateLimit = 5
	}
	if cfg.Translation.RateWindow <= 0 {
		cfg.Translation.RateWindow = time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}
