// Package config 加载服务配置：默认值 -> recordbin.yaml -> .env -> RECORDBIN_ 环境变量
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	core "recordbin/data/db"
)

const (
	EnvPrefix      = "RECORDBIN_"
	DefaultFile    = "recordbin.yaml"
	defaultEnvFile = ".env"
)

// 事件传输方式
const (
	TransportSync  = "sync"
	TransportRedis = "redis"
	TransportNATS  = "nats"
)

// Config 服务配置
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
	Events   EventsConfig   `koanf:"events"`
	Cache    CacheConfig    `koanf:"cache"`
	Trash    TrashConfig    `koanf:"trash"`
	Activity ActivityConfig `koanf:"activity"`
}

type DatabaseConfig struct {
	Driver  string `koanf:"driver"`
	DSN     string `koanf:"dsn"`
	Migrate bool   `koanf:"migrate"`
	Pool    struct {
		Open     int           `koanf:"open"`
		Idle     int           `koanf:"idle"`
		Lifetime time.Duration `koanf:"lifetime"`
	} `koanf:"pool"`
}

// DB 转换为 data/db 的连接配置
func (c DatabaseConfig) DB() core.DBConfig {
	return core.DBConfig{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.Pool.Open,
		MaxIdleConns:    c.Pool.Idle,
		ConnMaxLifetime: c.Pool.Lifetime,
	}
}

func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database dsn is not configured")
	}
	switch c.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Pool.Open < 0 || c.Pool.Idle < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	return nil
}

type HTTPConfig struct {
	Addr    string `koanf:"addr"`
	Timeout struct {
		Read     time.Duration `koanf:"read"`
		Write    time.Duration `koanf:"write"`
		Idle     time.Duration `koanf:"idle"`
		Shutdown time.Duration `koanf:"shutdown"`
	} `koanf:"timeout"`
}

func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http addr is not configured")
	}
	if c.Timeout.Read <= 0 || c.Timeout.Write <= 0 || c.Timeout.Idle <= 0 {
		return fmt.Errorf("invalid http timeouts: read=%v write=%v idle=%v",
			c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle)
	}
	if c.Timeout.Shutdown <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

type EventsConfig struct {
	Transport string `koanf:"transport"`
	Retry     struct {
		Attempts int           `koanf:"attempts"`
		Delay    time.Duration `koanf:"delay"`
	} `koanf:"retry"`
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
		Prefix   string `koanf:"prefix"`
		Group    string `koanf:"group"`
		MaxLen   int64  `koanf:"maxlen"`
	} `koanf:"redis"`
	NATS struct {
		URL     string `koanf:"url"`
		Stream  string `koanf:"stream"`
		Subject string `koanf:"subject"`
	} `koanf:"nats"`
}

func (c EventsConfig) Validate() error {
	switch c.Transport {
	case TransportSync:
	case TransportRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("events.redis.addr is required for redis transport")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("events.nats.url is required for nats transport")
		}
	default:
		return fmt.Errorf("unsupported events transport %q", c.Transport)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("events.retry.attempts must be at least 1")
	}
	return nil
}

type CacheConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

func (c CacheConfig) Validate() error {
	if c.Size < 0 || c.TTL < 0 {
		return fmt.Errorf("cache size and ttl must not be negative")
	}
	return nil
}

type TrashConfig struct {
	PageSize int `koanf:"pagesize"`
	MaxBulk  int `koanf:"maxbulk"`
}

func (c TrashConfig) Validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("trash.pagesize must be within 1..100, got %d", c.PageSize)
	}
	if c.MaxBulk < 1 {
		return fmt.Errorf("trash.maxbulk must be positive")
	}
	return nil
}

// ActivityConfig 活动日志 ID 生成器的节点号
type ActivityConfig struct {
	Datacenter int64 `koanf:"datacenter"`
	Worker     int64 `koanf:"worker"`
}

func (c ActivityConfig) Validate() error {
	if c.Datacenter < 0 || c.Datacenter > 31 || c.Worker < 0 || c.Worker > 31 {
		return fmt.Errorf("activity datacenter/worker must be within 0..31")
	}
	return nil
}

// Validate 逐段校验
func (c *Config) Validate() error {
	for name, v := range map[string]interface{ Validate() error }{
		"database": c.Database,
		"http":     c.HTTP,
		"log":      c.Log,
		"events":   c.Events,
		"cache":    c.Cache,
		"trash":    c.Trash,
		"activity": c.Activity,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Defaults 默认配置，本地 sqlite 文件 + 进程内事件
func Defaults() map[string]any {
	return map[string]any{
		"database.driver":       "sqlite",
		"database.dsn":          "file:recordbin.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		"database.migrate":      true,
		"database.pool.open":    1,
		"database.pool.idle":    1,
		"http.addr":             ":8080",
		"http.timeout.read":     "10s",
		"http.timeout.write":    "15s",
		"http.timeout.idle":     "60s",
		"http.timeout.shutdown": "10s",
		"log.level":             "info",
		"log.format":            "json",
		"events.transport":      TransportSync,
		"events.retry.attempts": 3,
		"events.retry.delay":    "100ms",
		"events.redis.prefix":   "recordbin:",
		"events.redis.group":    "recordbin",
		"events.redis.maxlen":   10000,
		"events.nats.stream":    "RECORDBIN",
		"events.nats.subject":   "recordbin.",
		"cache.size":            512,
		"cache.ttl":             "5m",
		"trash.pagesize":        10,
		"trash.maxbulk":         500,
		"activity.datacenter":   0,
		"activity.worker":       1,
	}
}

// Load 读取配置，path 为空时使用 recordbin.yaml；文件不存在不算错误
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	k := koanf.New(".")

	// 1. 默认值
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. YAML 文件
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// 3. .env 文件
	if envFileMap, err := godotenv.Read(defaultEnvFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), EnvPrefix) {
				continue
			}
			envMap[keyTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 4. 进程环境变量，优先级最高
	if err := k.Load(env.Provider(EnvPrefix, ".", keyTransformer), nil); err != nil {
		log.Printf("WARN: error loading env vars: %v", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// keyTransformer RECORDBIN_HTTP_TIMEOUT_READ -> http.timeout.read
func keyTransformer(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(key, "_", ".")
}

func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "database.driver=%s, database.dsn=%s, http.addr=%s, log.level=%s, events.transport=%s, cache.size=%d",
		c.Database.Driver, maskDSN(c.Database.DSN), c.HTTP.Addr, c.Log.Level, c.Events.Transport, c.Cache.Size)
	return b.String()
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "<not configured>"
	}
	if i := strings.LastIndex(dsn, "@"); i >= 0 {
		return "****" + dsn[i:]
	}
	return dsn
}
