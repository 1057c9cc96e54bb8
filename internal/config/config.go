package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPAddr    string

	Storage       string
	DBDSN         string
	MigrationsDir string // пусто: встроенные миграции

	RedisURL  string
	JWTSecret string

	TelegramToken   string
	TelegramBotName string

	SMTP SMTPConfig

	GoogleCredentialsFile string
	GoogleCalendarID      string
	GoogleImpersonate     bool
	MeetLinkPrefix        string
	CalendarTimeout       time.Duration

	FrontendURL            string
	ReopenRejectedRequests bool

	SlotDuration time.Duration
	SlotStep     time.Duration
	SlotLimit    int

	DispatchQueueSize int
	DispatchWorkers   int
	NotifyTimeout     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled проверяет, настроена ли отправка почты
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),

		Storage:       strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBDSN:         os.Getenv("DB_DSN"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),

		RedisURL:  os.Getenv("REDIS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramBotName: strings.TrimPrefix(os.Getenv("TELEGRAM_BOT_NAME"), "@"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     p.int("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleImpersonate:     p.bool("GOOGLE_IMPERSONATE", false),
		MeetLinkPrefix:        os.Getenv("MEET_LINK_PREFIX"),
		CalendarTimeout:       p.duration("CALENDAR_TIMEOUT", 10*time.Second),

		FrontendURL:            getEnv("FRONTEND_URL", "http://localhost:5173"),
		ReopenRejectedRequests: p.bool("REOPEN_REJECTED_REQUESTS", true),

		SlotDuration: time.Duration(p.int("SLOT_DURATION_MINUTES", 60)) * time.Minute,
		SlotStep:     time.Duration(p.int("SLOT_STEP_MINUTES", 30)) * time.Minute,
		SlotLimit:    p.int("SLOT_LIMIT", 20),

		DispatchQueueSize: p.int("DISPATCH_QUEUE_SIZE", 256),
		DispatchWorkers:   p.int("DISPATCH_WORKERS", 2),
		NotifyTimeout:     p.duration("NOTIFY_TIMEOUT", 10*time.Second),
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBDSN == "" {
			errs = append(errs, "DB_DSN is required but not set")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE must be %s or %s, got %q", StoragePostgres, StorageMemory, cfg.Storage))
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, "JWT_SECRET is required but not set")
		} else {
			cfg.JWTSecret = devJWTSecret
		}
	}

	if cfg.SlotDuration <= 0 || cfg.SlotStep <= 0 {
		errs = append(errs, "SLOT_DURATION_MINUTES and SLOT_STEP_MINUTES must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}

	log.Printf("Config loaded (env=%s, storage=%s)\n", cfg.Environment, cfg.Storage)

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser собирает ошибки разбора вместо выхода на первой
type parser struct {
	errs *[]string
}

func (p parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

func (p parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return def
	}
	return v
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %q is not a duration", key, raw))
		return def
	}
	return v
}
