// config предоставляет структуру конфигурации report-board
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/scheduler"
)

// Драйверы хранилища отчётов.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Бэкенды кэша.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Хранилища снимков.
const (
	SnapshotNone = "none"
	SnapshotFile = "file"
	SnapshotS3   = "s3"
)

// Config - корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env      string        `yaml:"env"     env:"ENV"        env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Store    StoreConfig   `yaml:"store"`
	Cache    CacheConfig   `yaml:"cache"`
	Refresh  RefreshConfig `yaml:"refresh"`
	Admin    AdminConfig   `yaml:"admin"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig - таймауты сервиса.
type TimeoutConfig struct {
	// Service - предельное время обработки HTTP-запроса.
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"10s"`
}

// GRPCConfig - сетевые настройки gRPC-сервера (только health).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50060"`
}

// HTTPConfig - сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// StoreConfig - источник строк отчётов.
type StoreConfig struct {
	Driver      string `yaml:"driver"       env:"STORE_DRIVER" env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path"  env:"SQLITE_PATH"  env-default:"reports.db"`
	PostgresURL string `yaml:"postgres_url" env:"DATABASE_URL"`
	// Mirror - читать из копии окна дат в памяти (SQLite), синхронизируемой
	// с основным хранилищем перед каждым плановым обновлением.
	Mirror bool `yaml:"mirror" env:"STORE_MIRROR" env-default:"false"`
}

// CacheConfig - где живёт кэш группировок.
type CacheConfig struct {
	Backend     string        `yaml:"backend"      env:"CACHE_BACKEND" env-default:"memory"`
	RedisURL    string        `yaml:"redis_url"    env:"REDIS_URL"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REDIS_PREFIX"  env-default:"report-board:"`
	TTL         time.Duration `yaml:"ttl"          env:"CACHE_TTL"     env-default:"1h"`
	// SplitKeys - раздельные ключи data/fingerprint в Redis (совместимость).
	SplitKeys   bool     `yaml:"split_keys"   env:"CACHE_SPLIT_KEYS" env-default:"false"`
	Snapshot    string   `yaml:"snapshot"     env:"CACHE_SNAPSHOT"   env-default:"none"`
	SnapshotDir string   `yaml:"snapshot_dir" env:"SNAPSHOT_DIR"     env-default:"snapshots"`
	S3          S3Config `yaml:"s3"`
}

// S3Config - хранилище снимков в MinIO/S3.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"   env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket"     env:"S3_BUCKET"`
	Prefix    string `yaml:"prefix"     env:"S3_PREFIX" env-default:"report-board/"`
}

// RefreshConfig - расписание и политика обновления.
type RefreshConfig struct {
	Cron         string        `yaml:"cron"          env:"REFRESH_CRON"     env-default:"10,40 * * * *"`
	Timezone     string        `yaml:"timezone"      env:"REFRESH_TIMEZONE" env-default:"UTC"`
	Policy       string        `yaml:"policy"        env:"REFRESH_POLICY"   env-default:"eager"`
	StoreTimeout time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT"    env-default:"5s"`
	// ReferenceDate - фиксированное «сегодня» (YYYYMMDD) для воспроизводимых окон.
	ReferenceDate string `yaml:"reference_date" env:"REFERENCE_DATE"`
}

// RefDate возвращает ReferenceDate как время; пустое значение -> нулевое время.
func (r RefreshConfig) RefDate() (time.Time, error) {
	if r.ReferenceDate == "" {
		return time.Time{}, nil
	}

	return models.ParseRegDate(r.ReferenceDate)
}

// Location возвращает часовой пояс расписания.
func (r RefreshConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// AdminConfig - доступ к административным ручкам.
type AdminConfig struct {
	// JWTSecret - ключ HS256 для принудительного обновления; пустой -> ручка открыта.
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	switch {
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

	case fileExists("local.yaml"):
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// validate - базовая валидация значений.
func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for driver %q", DriverSQLite)
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Store.Driver)
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for backend %q", BackendRedis)
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0")
	}

	switch c.Cache.Snapshot {
	case SnapshotNone, "":
	case SnapshotFile:
		if c.Cache.SnapshotDir == "" {
			return fmt.Errorf("cache.snapshot_dir is required for snapshot %q", SnapshotFile)
		}
	case SnapshotS3:
		if c.Cache.S3.Endpoint == "" || c.Cache.S3.Bucket == "" {
			return fmt.Errorf("cache.s3.endpoint and cache.s3.bucket are required for snapshot %q", SnapshotS3)
		}
	default:
		return fmt.Errorf("cache.snapshot must be one of none|file|s3, got %q", c.Cache.Snapshot)
	}

	if err := scheduler.Validate(c.Refresh.Cron); err != nil {
		return fmt.Errorf("refresh.cron: %w", err)
	}
	if _, err := c.Refresh.Location(); err != nil {
		return fmt.Errorf("refresh.timezone: %w", err)
	}
	if c.Refresh.Policy != "eager" && c.Refresh.Policy != "background" {
		return fmt.Errorf("refresh.policy must be eager or background, got %q", c.Refresh.Policy)
	}
	if c.Refresh.StoreTimeout <= 0 {
		return fmt.Errorf("refresh.store_timeout must be > 0")
	}
	if _, err := c.Refresh.RefDate(); err != nil {
		return fmt.Errorf("refresh.reference_date must be YYYYMMDD: %w", err)
	}

	if c.Timeouts.Service <= 0 {
		return fmt.Errorf("timeouts.service must be > 0")
	}

	return nil
}
