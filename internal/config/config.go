package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Store    RedisConfig    `yaml:"store"`
	Queue    QueueConfig    `yaml:"queue"`
	Log      LogConfig      `yaml:"log"`
	Activity ActivityConfig `yaml:"activity"`
	Admin    AdminConfig    `yaml:"admin"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test

	// browser origins allowed by CORS; empty allows any
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig points at the identity store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig locates the project/task document store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// QueueConfig for the optional asynq activity queue
type QueueConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ActivityConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	CleanupCron   string `yaml:"cleanup_cron"`
}

// AdminConfig is the account created by the seed step when no admin exists.
type AdminConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// fields absent from the file keep their defaults
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskboard.db",
		},
		JWT: JWTConfig{
			Secret:     "taskboard-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Store: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "taskboard",
		},
		Queue: QueueConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      1,
		},
		Log: LogConfig{
			Level: "info",
		},
		Activity: ActivityConfig{
			RetentionDays: 30,
			CleanupCron:   "0 3 * * *",
		},
		Admin: AdminConfig{
			Name:     "Administrator",
			Email:    "admin@taskboard.local",
			Password: "admin123",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if days := os.Getenv("ACTIVITY_RETENTION_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			c.Activity.RetentionDays = n
		}
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		c.Admin.Email = email
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Store.Addr, c.Store.Password, c.Store.DB = parseRedisURL(redisURL, c.Store.DB)
	}
	if queueURL := os.Getenv("QUEUE_REDIS_URL"); queueURL != "" {
		c.Queue.Enabled = true
		c.Queue.Addr, c.Queue.Password, c.Queue.DB = parseRedisURL(queueURL, c.Queue.DB)
	}
}

// parseRedisURL splits redis://:password@host:port/db. db keeps its
// previous value when the URL has no numeric path.
func parseRedisURL(redisURL string, db int) (addr, password string, outDB int) {
	url := strings.TrimPrefix(redisURL, "redis://")
	outDB = db

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if n, err := strconv.Atoi(dbStr); err == nil {
			outDB = n
		}
	}

	return url, password, outDB
}

// ListenAddr is host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
