package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName               = "CardForge Connector"
	defaultAppEnv                = "development"
	defaultPort                  = "8080"
	defaultLogLevel              = "info"
	defaultShutdownDelay         = 10 * time.Second
	defaultGatewayTimeout        = 30 * time.Second
	defaultCaptureBatchSize      = 10
	defaultCaptureRetryInterval  = time.Hour
	defaultCaptureMaxRetries     = 48
	defaultCapturePollInterval   = time.Minute
	defaultExpungeBatchSize      = 0 // unbounded
	defaultExpungeMinAge         = 90 * 24 * time.Hour
	defaultExpungeExcludeWithin  = 7 * 24 * time.Hour
	defaultExpungePollInterval   = 24 * time.Hour
	defaultNotificationDedupTTL  = 24 * time.Hour
	defaultIdempotencyTTL        = 24 * time.Hour
	shutdownSecondsEnvVar        = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar       = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	AMQPURL        string
	LedgerURL      string
	ShutdownPeriod time.Duration

	// GatewayTimeout bounds every outbound provider call.
	GatewayTimeout time.Duration

	CaptureBatchSize     int
	CaptureRetryInterval time.Duration
	CaptureMaxRetries    int
	CapturePollInterval  time.Duration

	ExpungeEnabled              bool
	ExpungeBatchSize            int
	ExpungeMinAge               time.Duration
	ExpungeExcludeCheckedWithin time.Duration
	ExpungePollInterval         time.Duration

	NotificationDedupTTL time.Duration
	IdempotencyTTL       time.Duration

	WorldpayURL string
	SmartpayURL string
	EpdqURL     string
}

// Load reads configuration values from the environment and populates a Config
// instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		LedgerURL:      os.Getenv("LEDGER_URL"),
		ShutdownPeriod: defaultShutdownDelay,

		GatewayTimeout: defaultGatewayTimeout,

		CaptureBatchSize:     defaultCaptureBatchSize,
		CaptureRetryInterval: defaultCaptureRetryInterval,
		CaptureMaxRetries:    defaultCaptureMaxRetries,
		CapturePollInterval:  defaultCapturePollInterval,

		ExpungeEnabled:              getEnv("EXPUNGE_ENABLED", "false") == "true",
		ExpungeBatchSize:            defaultExpungeBatchSize,
		ExpungeMinAge:               defaultExpungeMinAge,
		ExpungeExcludeCheckedWithin: defaultExpungeExcludeWithin,
		ExpungePollInterval:         defaultExpungePollInterval,

		NotificationDedupTTL: defaultNotificationDedupTTL,
		IdempotencyTTL:       defaultIdempotencyTTL,

		WorldpayURL: getEnv("WORLDPAY_URL", "https://secure.worldpay.com/jsp/merchant/xml/paymentService.jsp"),
		SmartpayURL: getEnv("SMARTPAY_URL", "https://pal-live.barclaycardsmartpay.com/pal/api"),
		EpdqURL:     getEnv("EPDQ_URL", "https://payments.epdq.co.uk/ncol/prod/maintenancedirect.asp"),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	var err error
	if cfg.GatewayTimeout, err = durationEnv("GATEWAY_TIMEOUT", cfg.GatewayTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CaptureBatchSize, err = intEnv("CAPTURE_BATCH_SIZE", cfg.CaptureBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.CaptureRetryInterval, err = durationEnv("CAPTURE_RETRY_INTERVAL", cfg.CaptureRetryInterval); err != nil {
		return Config{}, err
	}
	if cfg.CaptureMaxRetries, err = intEnv("CAPTURE_MAX_RETRIES", cfg.CaptureMaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.CapturePollInterval, err = durationEnv("CAPTURE_POLL_INTERVAL", cfg.CapturePollInterval); err != nil {
		return Config{}, err
	}
	if cfg.ExpungeBatchSize, err = intEnv("EXPUNGE_BATCH_SIZE", cfg.ExpungeBatchSize); err != nil {
		return Config{}, err
	}
	if days, err := intEnv("EXPUNGE_MIN_AGE_DAYS", 0); err != nil {
		return Config{}, err
	} else if days > 0 {
		cfg.ExpungeMinAge = time.Duration(days) * 24 * time.Hour
	}
	if cfg.ExpungeExcludeCheckedWithin, err = durationEnv("EXPUNGE_EXCLUDE_CHECKED_WITHIN", cfg.ExpungeExcludeCheckedWithin); err != nil {
		return Config{}, err
	}
	if cfg.ExpungePollInterval, err = durationEnv("EXPUNGE_POLL_INTERVAL", cfg.ExpungePollInterval); err != nil {
		return Config{}, err
	}
	if cfg.NotificationDedupTTL, err = durationEnv("NOTIFICATION_DEDUP_TTL", cfg.NotificationDedupTTL); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.LedgerURL == "" {
		return Config{}, fmt.Errorf("LEDGER_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
