package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Allocation AllocationConfig `yaml:"allocation"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the vacancy notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// CacheTTL returns the GET cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// MaxBedsPerRoom is the largest bed count a room may declare.
const MaxBedsPerRoom = 10

// AllocationConfig bounds room input and drives the reconciliation loop.
type AllocationConfig struct {
	MaxBedsPerRoom           int           `yaml:"max_beds_per_room"`
	MinFloor                 int           `yaml:"min_floor"`
	MaxFloor                 int           `yaml:"max_floor"`
	ReconcileEnabled         bool          `yaml:"reconcile_enabled"`
	ReconcileIntervalSeconds int           `yaml:"reconcile_interval_seconds"`
	ReconcileInterval        time.Duration `yaml:"-"`
}

// EventsConfig configures the Redis stream that receives allocation events.
type EventsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Stream    string `yaml:"stream"`
	MaxLen    int64  `yaml:"max_len"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_DRIVER")); v != "" {
		cfg.Database.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("MYSQL_URL")); v != "" {
		cfg.Database.Driver = "mysql"
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid SERVER_PORT %q: %v", v, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Events.RedisAddr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Allocation.MaxBedsPerRoom <= 0 {
		cfg.Allocation.MaxBedsPerRoom = MaxBedsPerRoom
	} else if cfg.Allocation.MaxBedsPerRoom > MaxBedsPerRoom {
		log.Printf("allocation.max_beds_per_room %d exceeds %d; capping", cfg.Allocation.MaxBedsPerRoom, MaxBedsPerRoom)
		cfg.Allocation.MaxBedsPerRoom = MaxBedsPerRoom
	}
	if cfg.Allocation.MinFloor <= 0 {
		cfg.Allocation.MinFloor = 1
	}
	if cfg.Allocation.MaxFloor < cfg.Allocation.MinFloor {
		cfg.Allocation.MaxFloor = cfg.Allocation.MinFloor + 2
	}
	if cfg.Allocation.ReconcileIntervalSeconds <= 0 {
		cfg.Allocation.ReconcileIntervalSeconds = 900
	}
	cfg.Allocation.ReconcileInterval = time.Duration(cfg.Allocation.ReconcileIntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Stream == "" {
		cfg.Events.Stream = "allocation:events"
	}
	if cfg.Events.MaxLen <= 0 {
		cfg.Events.MaxLen = 10000
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
