package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr            = ":8000"
	DefaultRegion          = "us-en"
	DefaultMaxResults      = 10
	DefaultMaxPages        = 3
	DefaultResultsDir      = "static/results"
	DefaultLogDir          = "./logs"
	DefaultMainTextLimit   = 5000
	DefaultLinkTextLimit   = 100
	DefaultMaxPageBytes    = 5 << 20
	DefaultRetryAttempts   = 10
	DefaultRetryDelayMs    = 2000
	DefaultRetryMaxDelayS  = 60
	DefaultRetryJitter     = 0.1
	DefaultPolitenessMs    = 1000
	DefaultPageTimeoutSecs = 10
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Retry    RetryConfig    `yaml:"retry"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr               string `yaml:"addr"`
	RequestTimeoutSecs int    `yaml:"request_timeout_seconds"`
}

type ProviderConfig struct {
	BaseURL       string `yaml:"base_url"`
	HTMLURL       string `yaml:"html_url"`
	UserAgent     string `yaml:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_seconds"`
	DefaultRegion string `yaml:"default_region"`
}

type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	InitialDelayMs int `yaml:"initial_delay_ms"`
	MaxDelaySecs   int `yaml:"max_delay_seconds"`

	// JitterFactor is a pointer so an explicit 0 turns jitter off.
	JitterFactor *float64 `yaml:"jitter_factor"`
}

type EnrichConfig struct {
	DefaultMaxPages   int   `yaml:"default_max_pages"`
	Concurrency       int   `yaml:"concurrency"`
	PolitenessDelayMs int   `yaml:"politeness_delay_ms"`
	PageTimeoutSecs   int   `yaml:"page_timeout_seconds"`
	MaxPageBytes      int64 `yaml:"max_page_bytes"`
	MainTextLimit     int   `yaml:"main_text_limit"`
	LinkTextLimit     int   `yaml:"link_text_limit"`
}

type StorageConfig struct {
	ResultsDir string      `yaml:"results_dir"`
	MinIO      MinIOConfig `yaml:"minio"`
	DB         DBConfig    `yaml:"db"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an object store was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" && c.Bucket != "" }

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// Enabled reports whether a Postgres database was configured.
func (c DBConfig) Enabled() bool { return c.Host != "" && c.Name != "" }

type LogConfig struct {
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads .env, the optional YAML file named by DUCKSEARCH_CONFIG and
// then the environment, in that order of increasing precedence.
func LoadConfig() (Config, error) {
	// a missing .env is normal outside of local development
	_ = godotenv.Load()

	var cfg Config
	if path := getEnv("DUCKSEARCH_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return *cfg.WithDefaults(), nil
}

// Parse decodes a YAML config document without applying defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("DUCKSEARCH_ADDR", c.Server.Addr)
	c.Provider.BaseURL = getEnv("DUCKSEARCH_BASE_URL", c.Provider.BaseURL)
	c.Provider.HTMLURL = getEnv("DUCKSEARCH_HTML_URL", c.Provider.HTMLURL)
	c.Provider.UserAgent = getEnv("DUCKSEARCH_USER_AGENT", c.Provider.UserAgent)
	c.Provider.DefaultRegion = getEnv("DUCKSEARCH_REGION", c.Provider.DefaultRegion)
	c.Retry.MaxAttempts = getEnvInt("DUCKSEARCH_RETRY_ATTEMPTS", c.Retry.MaxAttempts)
	c.Enrich.Concurrency = getEnvInt("DUCKSEARCH_ENRICH_CONCURRENCY", c.Enrich.Concurrency)
	c.Enrich.PolitenessDelayMs = getEnvInt("DUCKSEARCH_POLITENESS_MS", c.Enrich.PolitenessDelayMs)
	c.Storage.ResultsDir = getEnv("DUCKSEARCH_RESULTS_DIR", c.Storage.ResultsDir)
	c.Storage.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.MinIO.Endpoint)
	c.Storage.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.MinIO.AccessKey)
	c.Storage.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.MinIO.SecretKey)
	c.Storage.MinIO.Bucket = getEnv("MINIO_BUCKET", c.Storage.MinIO.Bucket)
	c.Storage.DB.User = getEnv("DB_USER", c.Storage.DB.User)
	c.Storage.DB.Password = getEnv("DB_PASSWORD", c.Storage.DB.Password)
	c.Storage.DB.Host = getEnv("DB_HOST", c.Storage.DB.Host)
	c.Storage.DB.Port = getEnv("DB_PORT", c.Storage.DB.Port)
	c.Storage.DB.Name = getEnv("DB_NAME", c.Storage.DB.Name)
	c.Log.Dir = getEnv("DUCKSEARCH_LOG_DIR", c.Log.Dir)
}

func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	c.Server = c.Server.withDefaults()
	c.Provider = c.Provider.withDefaults()
	c.Retry = c.Retry.withDefaults()
	c.Enrich = c.Enrich.withDefaults()
	if c.Storage.ResultsDir == "" {
		c.Storage.ResultsDir = DefaultResultsDir
	}
	if c.Storage.DB.Port == "" {
		c.Storage.DB.Port = "5432"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = DefaultLogDir
	}
	return c
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.RequestTimeoutSecs <= 0 {
		c.RequestTimeoutSecs = 60
	}
	return c
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://duckduckgo.com"
	}
	if c.HTMLURL == "" {
		c.HTMLURL = "https://html.duckduckgo.com/html/"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = 15
	}
	if c.DefaultRegion == "" {
		c.DefaultRegion = DefaultRegion
	}
	return c
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryAttempts
	}
	if c.InitialDelayMs <= 0 {
		c.InitialDelayMs = DefaultRetryDelayMs
	}
	if c.MaxDelaySecs <= 0 {
		c.MaxDelaySecs = DefaultRetryMaxDelayS
	}
	if c.JitterFactor == nil || *c.JitterFactor < 0 || *c.JitterFactor >= 1 {
		jitter := DefaultRetryJitter
		c.JitterFactor = &jitter
	}
	return c
}

func (c EnrichConfig) withDefaults() EnrichConfig {
	if c.DefaultMaxPages <= 0 {
		c.DefaultMaxPages = DefaultMaxPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.PolitenessDelayMs < 0 {
		c.PolitenessDelayMs = 0
	} else if c.PolitenessDelayMs == 0 {
		c.PolitenessDelayMs = DefaultPolitenessMs
	}
	if c.PageTimeoutSecs <= 0 {
		c.PageTimeoutSecs = DefaultPageTimeoutSecs
	}
	if c.MaxPageBytes <= 0 {
		c.MaxPageBytes = DefaultMaxPageBytes
	}
	if c.MainTextLimit <= 0 {
		c.MainTextLimit = DefaultMainTextLimit
	}
	if c.LinkTextLimit <= 0 {
		c.LinkTextLimit = DefaultLinkTextLimit
	}
	return c
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c RetryConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMs) * time.Millisecond
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySecs) * time.Second
}

// Jitter returns the configured jitter factor, or the default when unset.
func (c RetryConfig) Jitter() float64 {
	if c.JitterFactor == nil {
		return DefaultRetryJitter
	}
	return *c.JitterFactor
}

func (c EnrichConfig) PolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelayMs) * time.Millisecond
}

func (c EnrichConfig) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutSecs) * time.Second
}

// DSN builds the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
