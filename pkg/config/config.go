package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers understood by StorageConfig.Driver.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageBolt     = "bolt"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Retention RetentionConfig
	Metrics   MetricsConfig
	Changes   ChangesConfig
}

// StorageConfig selects the key-value backend holding the persisted snapshots.
type StorageConfig struct {
	Driver    string
	Path      string
	Namespace string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RetentionConfig tunes the completed calendar event sweep.
type RetentionConfig struct {
	Window   time.Duration
	Interval time.Duration
	Retries  int
}

type MetricsConfig struct {
	Enabled bool
}

// ChangesConfig controls fan-out of store change notifications.
type ChangesConfig struct {
	RedisEnabled bool
	RedisChannel string
	BufferSize   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Storage = StorageConfig{
		Driver:    strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		Path:      v.GetString("STORAGE_PATH"),
		Namespace: v.GetString("STORAGE_NAMESPACE"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Retention = RetentionConfig{
		Window:   parseDuration(v.GetString("RETENTION_WINDOW"), 30*24*time.Hour),
		Interval: parseDuration(v.GetString("RETENTION_INTERVAL"), 24*time.Hour),
		Retries:  v.GetInt("RETENTION_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Changes = ChangesConfig{
		RedisEnabled: v.GetBool("ENABLE_REDIS_CHANGES"),
		RedisChannel: v.GetString("REDIS_CHANGES_CHANNEL"),
		BufferSize:   v.GetInt("CHANGES_BUFFER_SIZE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORAGE_DRIVER", StorageBolt)
	v.SetDefault("STORAGE_PATH", "./data/attendance.db")
	v.SetDefault("STORAGE_NAMESPACE", "attendance")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_tracker")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RETENTION_WINDOW", "720h")
	v.SetDefault("RETENTION_INTERVAL", "24h")
	v.SetDefault("RETENTION_RETRIES", 1)

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_REDIS_CHANGES", false)
	v.SetDefault("REDIS_CHANGES_CHANNEL", "attendance:changes")
	v.SetDefault("CHANGES_BUFFER_SIZE", 16)
}

// isMissingFile reports whether viper failed only because .env does not exist.
// SetConfigFile bypasses the search path, so viper returns a plain fs error there.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
