package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	SiteName      string        `yaml:"site_name"`
	ListenAddr    string        `yaml:"listen_addr"`
	Port          string        `yaml:"port"`
	DatabasePath  string        `yaml:"database_path"`
	SessionSecret string        `yaml:"session_secret"`
	GinMode       string        `yaml:"gin_mode"`
	UploadDir     string        `yaml:"upload_dir"`
	UploadURLPath string        `yaml:"upload_url_path"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	Log           LogConfig     `yaml:"log"`
	Storage       StorageConfig `yaml:"storage"`
	Cache         CacheConfig   `yaml:"cache"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects where uploaded files are kept.
type StorageConfig struct {
	Driver string      `yaml:"driver"`
	Minio  MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// CacheConfig selects the backend of the image list cache.
type CacheConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when nothing is set.
func Default() AppConfig {
	return AppConfig{
		SiteName:      "Gallery",
		Port:          "8080",
		DatabasePath:  "gallery.db",
		SessionSecret: "gallery-dev-secret",
		GinMode:       "release",
		UploadDir:     "web/static/uploads",
		UploadURLPath: "/static/uploads",
		CORSOrigins:   []string{"*"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Driver: "local",
			Minio: MinioConfig{
				Endpoint: "localhost:9000",
				Bucket:   "gallery",
			},
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    5 * time.Minute,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
	}
}

// Load 读取可选的 YAML 配置文件，再用环境变量覆盖，并为缺失项提供默认值。
// path 为空时使用 CONFIG_FILE 环境变量。
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.loadFromEnv()

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *AppConfig) loadFromEnv() {
	setString(&c.SiteName, "SITE_NAME")
	setString(&c.Port, "PORT")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.UploadURLPath, "UPLOAD_URL_PATH")
	if v := env("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Minio.Bucket, "MINIO_BUCKET")
	setString(&c.Storage.Minio.PublicURL, "MINIO_PUBLIC_URL")
	if v := env("MINIO_USE_SSL"); v != "" {
		c.Storage.Minio.UseSSL = v == "true" || v == "1"
	}

	setString(&c.Cache.Driver, "CACHE_DRIVER")
	if v := env("CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = ttl
		}
	}
	setString(&c.Cache.Redis.Addr, "REDIS_ADDR")
	setString(&c.Cache.Redis.Password, "REDIS_PASSWORD")
	if v := env("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Redis.DB = n
		}
	}
}

// Validate checks driver names and the settings each driver needs.
func (c AppConfig) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		return errors.New("session secret is required")
	}

	switch c.Storage.Driver {
	case "local":
		if strings.TrimSpace(c.UploadDir) == "" {
			return errors.New("upload dir is required when storage driver is 'local'")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("minio endpoint and bucket are required when storage driver is 'minio'")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be 'local' or 'minio')", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return errors.New("redis addr is required when cache driver is 'redis'")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s (must be 'memory', 'redis' or 'none')", c.Cache.Driver)
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
