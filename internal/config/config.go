package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Automation   AutomationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN                string
	MaxConns           int32
	MinConns           int32
	RunMigrations      bool
	ConnMaxIdleSec     int32
	ConnMaxLifeSec     int32
	ApplicationName    string
	StatementTimeoutMS int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int

	// OperatorKeyHash is a bcrypt hash of the key operators exchange for a token.
	OperatorKeyHash string
}

// NotificationConfig holds pub/sub channel names for ticket events and audiences.
type NotificationConfig struct {
	Channel             string
	TicketEventsChannel string
}

// AutomationConfig holds the batch task settings.
type AutomationConfig struct {
	Enabled         bool
	LeaseTTLMinutes int    `validate:"gte=1"`
	FlagPrefix      string `validate:"required"`
	AutoClose       AutoCloseConfig
	AutoReopen      AutoReopenConfig
}

// AutoCloseConfig configures closing of completed tickets.
type AutoCloseConfig struct {
	Schedule          string `validate:"required"`
	ChunkSize         int    `validate:"gte=1,lte=1000"`
	CompletedAgeHours int    `validate:"gte=1"`
	LimitFlag         string `validate:"required"`
	DefaultLimit      int    `validate:"gte=1"`
}

// AutoReopenConfig configures reopening of deferred tickets.
type AutoReopenConfig struct {
	Schedule  string `validate:"required"`
	ChunkSize int    `validate:"gte=1,lte=1000"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-automation"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			MaxConns:           maxConns,
			MinConns:           minConns,
			RunMigrations:      runMigrations,
			ConnMaxIdleSec:     connMaxIdle,
			ConnMaxLifeSec:     connMaxLife,
			ApplicationName:    getEnv("APP_NAME", "ticket-automation"),
			StatementTimeoutMS: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 30000),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorKeyHash:       os.Getenv("AUTH_OPERATOR_KEY_HASH"),
		},
		Notification: NotificationConfig{
			Channel:             getEnv("NOTIFY_CHANNEL", "ticket-notifications"),
			TicketEventsChannel: getEnv("TICKET_EVENTS_CHANNEL", "ticket-events"),
		},
		Automation: AutomationConfig{
			Enabled:         getEnvAsBool("AUTOMATION_ENABLED", true),
			LeaseTTLMinutes: getEnvAsInt("AUTOMATION_LEASE_TTL_MINUTES", 60),
			FlagPrefix:      getEnv("FEATURE_FLAG_PREFIX", "featureflags"),
			AutoClose: AutoCloseConfig{
				Schedule:          getEnv("AUTO_CLOSE_SCHEDULE", "@daily"),
				ChunkSize:         getEnvAsInt("AUTO_CLOSE_CHUNK_SIZE", 50),
				CompletedAgeHours: getEnvAsInt("AUTO_CLOSE_COMPLETED_AGE_HOURS", 7*24),
				LimitFlag:         getEnv("AUTO_CLOSE_LIMIT_FLAG", "ticket-auto-close-organization-limit"),
				DefaultLimit:      getEnvAsInt("AUTO_CLOSE_DEFAULT_LIMIT", 100),
			},
			AutoReopen: AutoReopenConfig{
				Schedule:  getEnv("AUTO_REOPEN_SCHEDULE", "@hourly"),
				ChunkSize: getEnvAsInt("AUTO_REOPEN_CHUNK_SIZE", 50),
			},
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg.Automation); err != nil {
		return fmt.Errorf("invalid automation config: %w", err)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LeaseTTL returns how long a task run may hold its lease.
func (a AutomationConfig) LeaseTTL() time.Duration {
	return time.Duration(a.LeaseTTLMinutes) * time.Minute
}

// CompletedAge returns how long a ticket stays COMPLETED before auto-close.
func (c AutoCloseConfig) CompletedAge() time.Duration {
	return time.Duration(c.CompletedAgeHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
