package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Storage     StorageConfig     `yaml:"storage"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Notify      NotifyConfig      `yaml:"notify"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path" default:"/metrics"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job" default:"pricepulse"`
}

type StorageConfig struct {
	Snapshots string `yaml:"snapshots" default:"file" validate:"oneof=file clickhouse"`
	Ledgers   string `yaml:"ledgers" default:"file" validate:"oneof=file postgres"`
	DataDir   string `yaml:"data_dir" default:"data" validate:"required"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"pricepulse"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	QueryTimeout    time.Duration `yaml:"query_timeout" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"pricepulse"`
	LockTTL  time.Duration `yaml:"lock_ttl" default:"30m"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"pricepulse.digest"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
}

type TelegramConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BotToken    string        `yaml:"bot_token"`
	ChatID      string        `yaml:"chat_id"`
	APIURL      string        `yaml:"api_url" default:"https://api.telegram.org"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
	RatePerSec  float64       `yaml:"rate_per_sec" default:"1" validate:"gt=0"`
	MaxMessage  int           `yaml:"max_message" default:"4000" validate:"gte=100"`
	FailureTrip uint32        `yaml:"failure_trip" default:"3"`
}

type PipelineConfig struct {
	VelocityWindow int           `yaml:"velocity_window" default:"4" validate:"gte=1"`
	VelocityDecay  float64       `yaml:"velocity_decay" default:"0.5" validate:"gt=0,lte=1"`
	CooldownDays   int           `yaml:"cooldown_days" default:"8" validate:"gte=0"`
	SkipUnchanged  bool          `yaml:"skip_unchanged_outcomes"`
	RunTimeout     time.Duration `yaml:"run_timeout" default:"10m"`
}

type WeightsConfig struct {
	Pressure float64 `yaml:"pressure" default:"0.20" validate:"gte=0"`
	Velocity float64 `yaml:"velocity" default:"0.35" validate:"gte=0"`
	Trend    float64 `yaml:"trend" default:"0.45" validate:"gte=0"`
}

type RegimeConfig struct {
	WindowDays    int     `yaml:"window_days" default:"3" validate:"gte=1"`
	Majority      float64 `yaml:"majority" default:"0.65" validate:"gt=0.5,lte=1"`
	MinSamples    int     `yaml:"min_samples" default:"10" validate:"gte=1"`
	CounterDampen float64 `yaml:"counter_dampen" default:"0.6" validate:"gt=0,lte=1"`
	NeutralDampen float64 `yaml:"neutral_dampen" default:"0.9" validate:"gt=0,lte=1"`
}

type VolatilityConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MinSamples   int     `yaml:"min_samples" default:"3" validate:"gte=2"`
	NoisyRatio   float64 `yaml:"noisy_ratio" default:"1.2"`
	StableRatio  float64 `yaml:"stable_ratio" default:"0.6"`
	NoisyFactor  float64 `yaml:"noisy_factor" default:"0.75"`
	StableFactor float64 `yaml:"stable_factor" default:"1.15"`
}

type CrowdConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinOwnership  float64 `yaml:"min_ownership" default:"35"`
	VelocityRatio float64 `yaml:"velocity_ratio" default:"0.3"`
	Factor        float64 `yaml:"factor" default:"0.7"`
}

type ScoringConfig struct {
	PolicyVersion        string           `yaml:"policy_version" default:"v1" validate:"required"`
	Weights              WeightsConfig    `yaml:"weights"`
	MinOwnership         float64          `yaml:"min_ownership" default:"0.1" validate:"gt=0"`
	VelocityCap          float64          `yaml:"velocity_cap" default:"3" validate:"gt=0"`
	DeadZone             float64          `yaml:"dead_zone" default:"0.05" validate:"gte=0"`
	ConfidencePercentile float64          `yaml:"confidence_percentile" default:"0.95" validate:"gt=0,lte=1"`
	ConfidenceBound      float64          `yaml:"confidence_bound" default:"1" validate:"gt=0"`
	Regime               RegimeConfig     `yaml:"regime"`
	Volatility           VolatilityConfig `yaml:"volatility"`
	Crowd                CrowdConfig      `yaml:"crowd"`
}

// QuantilePair is one (rise, fall) candidate of the calibration grid.
type QuantilePair struct {
	Rise float64 `yaml:"rise" validate:"gt=0,lt=1"`
	Fall float64 `yaml:"fall" validate:"gt=0,lt=1"`
}

type CalibrationConfig struct {
	MinSamples       int            `yaml:"min_samples" default:"4" validate:"gte=1"`
	MinBucketSamples int            `yaml:"min_bucket_samples" default:"8" validate:"gte=1"`
	HorizonDays      int            `yaml:"horizon_days" default:"1" validate:"gte=1,lte=14"`
	Scope            string         `yaml:"scope" default:"imminent" validate:"oneof=imminent actionable"`
	ReportScope      string         `yaml:"report_scope" default:"directional" validate:"oneof=imminent actionable directional"`
	Grid             []QuantilePair `yaml:"grid" validate:"dive"`
}

type NotifyConfig struct {
	TopN          int           `yaml:"top_n" default:"15" validate:"gte=1"`
	WatchlistPath string        `yaml:"watchlist_path"`
	Watchlist     []string      `yaml:"watchlist"`
	Timeout       time.Duration `yaml:"timeout" default:"10s"`
}

// DefaultGrid is the calibration candidate grid used when none is configured.
func DefaultGrid() []QuantilePair {
	return []QuantilePair{
		{Rise: 0.90, Fall: 0.10},
		{Rise: 0.92, Fall: 0.08},
		{Rise: 0.94, Fall: 0.06},
		{Rise: 0.95, Fall: 0.05},
		{Rise: 0.96, Fall: 0.04},
		{Rise: 0.97, Fall: 0.03},
	}
}

// Default returns a configuration populated only from defaults.
func Default() *Config {
	var c Config
	_ = c.applyDefaults()
	return &c
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("SNAPSHOT_BACKEND"); v != "" {
		c.Storage.Snapshots = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Storage.Ledgers = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Calibration.Grid) == 0 {
		c.Calibration.Grid = DefaultGrid()
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Storage.Snapshots == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse snapshots")
	}
	if c.Storage.Ledgers == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required for postgres ledgers")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}
	w := c.Scoring.Weights
	if w.Pressure+w.Velocity+w.Trend <= 0 {
		return fmt.Errorf("scoring.weights must not all be zero")
	}
	for i, q := range c.Calibration.Grid {
		if q.Fall >= q.Rise {
			return fmt.Errorf("calibration.grid[%d]: fall quantile %.2f must be below rise quantile %.2f", i, q.Fall, q.Rise)
		}
	}
	return nil
}
