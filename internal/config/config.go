package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Policy       PolicyConfig
	Audit        AuditConfig
	Notification NotificationConfig
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
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	AssignmentTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	SignInCodeTTLMinutes  int
	SignInMaxAttempts     int
	SignInRatePerMinute   int
	BcryptCost            int
}

// PolicyConfig tunes the access rules.
type PolicyConfig struct {
	// CalendarTimezone names the zone used to truncate instants to dates for the
	// same-day rule. "Local" keeps the server zone.
	CalendarTimezone string
}

// AuditConfig configures optional audit sinks.
type AuditConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
	// LogSignInCodes writes issued sign-in codes to the log. Development only.
	LogSignInCodes bool
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

	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "epcr-service"),
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:                 getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:             os.Getenv("REDIS_PASSWORD"),
			DB:                   redisDB,
			AssignmentTTLSeconds: getEnvAsInt("REDIS_ASSIGNMENT_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*12),
			SignInCodeTTLMinutes:  getEnvAsInt("AUTH_SIGNIN_CODE_TTL_MINUTES", 10),
			SignInMaxAttempts:     getEnvAsInt("AUTH_SIGNIN_MAX_ATTEMPTS", 5),
			SignInRatePerMinute:   getEnvAsInt("AUTH_SIGNIN_RATE_PER_MINUTE", 10),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Policy: PolicyConfig{
			CalendarTimezone: getEnv("POLICY_CALENDAR_TIMEZONE", "Local"),
		},
		Audit: AuditConfig{
			KafkaBrokers: getEnvAsList("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   getEnv("AUDIT_KAFKA_TOPIC", "epcr.audit"),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			LogSignInCodes: getEnvAsBool("NOTIFY_LOG_SIGNIN_CODES", appEnv == "development"),
		},
	}

	if _, err := cfg.Policy.Location(); err != nil {
		return nil, fmt.Errorf("invalid POLICY_CALENDAR_TIMEZONE: %w", err)
	}

	return cfg, nil
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

// AssignmentTTL returns how long cached assignment lookups live.
func (r RedisConfig) AssignmentTTL() time.Duration {
	if r.AssignmentTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.AssignmentTTLSeconds) * time.Second
}

// Location resolves the calendar zone for the same-day rule.
func (p PolicyConfig) Location() (*time.Location, error) {
	if p.CalendarTimezone == "" || strings.EqualFold(p.CalendarTimezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(p.CalendarTimezone)
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

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
