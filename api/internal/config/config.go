package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type BotConfig struct {
	ID          string `yaml:"id"`
	AppID       string `yaml:"app_id"`
	AppPassword string `yaml:"app_password"`
}

type Config struct {
	Port string `yaml:"port"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Vision struct {
		Provider     string `yaml:"provider"`
		Endpoint     string `yaml:"endpoint"`
		Key          string `yaml:"key"`
		GeminiAPIKey string `yaml:"gemini_api_key"`
		GeminiModel  string `yaml:"gemini_model"`
	} `yaml:"vision"`

	Bots struct {
		Caption BotConfig `yaml:"caption"`
		OCR     BotConfig `yaml:"ocr"`
	} `yaml:"bots"`

	Telegram struct {
		Token       string `yaml:"token"`
		WebhookURL  string `yaml:"webhook_url"`
		DefaultMode string `yaml:"default_mode"`
	} `yaml:"telegram"`

	Store struct {
		Backend string        `yaml:"backend"`
		MaxAge  time.Duration `yaml:"max_age"`
		Redis   struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the optional YAML file (CONFIG_PATH, else ./config.yaml) and
// applies environment overrides on top of it.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := configPath(); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func configPath() string {
	if p := getEnv("CONFIG_PATH", ""); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Vision.Provider = getEnv("VISION_PROVIDER", c.Vision.Provider)
	c.Vision.Endpoint = getEnv("VISION_ENDPOINT", c.Vision.Endpoint)
	c.Vision.Key = getEnv("VISION_KEY", c.Vision.Key)
	c.Vision.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Vision.GeminiAPIKey)
	c.Vision.GeminiModel = getEnv("GEMINI_MODEL", c.Vision.GeminiModel)

	c.Bots.Caption.ID = getEnv("CAPTION_BOT_ID", c.Bots.Caption.ID)
	c.Bots.Caption.AppID = getEnv("CAPTION_MICROSOFT_APP_ID", c.Bots.Caption.AppID)
	c.Bots.Caption.AppPassword = getEnv("CAPTION_MICROSOFT_APP_PASSWORD", c.Bots.Caption.AppPassword)
	c.Bots.OCR.ID = getEnv("OCR_BOT_ID", c.Bots.OCR.ID)
	c.Bots.OCR.AppID = getEnv("OCR_MICROSOFT_APP_ID", c.Bots.OCR.AppID)
	c.Bots.OCR.AppPassword = getEnv("OCR_MICROSOFT_APP_PASSWORD", c.Bots.OCR.AppPassword)

	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.WebhookURL = getEnv("WEBHOOK_URL", c.Telegram.WebhookURL)
	c.Telegram.DefaultMode = getEnv("TELEGRAM_DEFAULT_MODE", c.Telegram.DefaultMode)

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.Redis.Address = getEnv("REDIS_ADDR", c.Store.Redis.Address)
	c.Store.Redis.Password = getEnv("REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)

	var errs []error
	if v := getEnv("RESULT_MAX_AGE", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RESULT_MAX_AGE: %w", err))
		}
		c.Store.MaxAge = d
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
		}
		c.Store.Redis.DB = n
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Vision.Provider == "" {
		c.Vision.Provider = ProviderAzure
	}
	if c.Vision.GeminiModel == "" {
		c.Vision.GeminiModel = "gemini-2.5-flash"
	}
	if c.Telegram.DefaultMode == "" {
		c.Telegram.DefaultMode = "caption"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Backend == BackendPostgres && c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = dsnFromPostgresEnv()
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Vision.Provider {
	case ProviderAzure:
		if c.Vision.Endpoint == "" {
			errs = append(errs, errors.New("vision.endpoint (VISION_ENDPOINT) is required"))
		}
		if c.Vision.Key == "" {
			errs = append(errs, errors.New("vision.key (VISION_KEY) is required"))
		}
	case ProviderGemini:
		if c.Vision.GeminiAPIKey == "" {
			errs = append(errs, errors.New("vision.gemini_api_key (GEMINI_API_KEY) is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("vision.provider %q: want azure or gemini", c.Vision.Provider))
	}

	if c.Bots.Caption.ID == "" && c.Bots.OCR.ID == "" && c.Telegram.Token == "" {
		errs = append(errs, errors.New("no channel configured: set bots.caption.id, bots.ocr.id or telegram.token"))
	}
	if c.Bots.Caption.ID != "" && c.Bots.Caption.ID == c.Bots.OCR.ID {
		errs = append(errs, errors.New("bots.caption.id and bots.ocr.id must differ"))
	}
	switch c.Telegram.DefaultMode {
	case "caption", "ocr":
	default:
		errs = append(errs, fmt.Errorf("telegram.default_mode %q: want caption or ocr", c.Telegram.DefaultMode))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Address == "" {
			errs = append(errs, errors.New("store.redis.address (REDIS_ADDR) is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url (DATABASE_URL) is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want memory, redis or postgres", c.Store.Backend))
	}
	if c.Store.MaxAge < 0 {
		errs = append(errs, errors.New("store.max_age must not be negative"))
	}
	return errors.Join(errs...)
}

// dsnFromPostgresEnv builds a DSN from POSTGRES_* / PG* variables.
func dsnFromPostgresEnv() string {
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" && os.Getenv("PGHOST") == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "visionbot"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "visionbot"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSN renders a DSN for logs, without the password.
func SafeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, u.User.Username())
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, u.User.Username())
}
