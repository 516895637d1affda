package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/payment-listener/internal/types/environments"
)

type AppConfig struct {
	Environment  environments.Environment
	ApiServer    ApiServerConfig
	Postgres     DBConnection
	Listener     ListenerConfig
	Notification NotificationConfig
	Jobs         JobsConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
}

// ListenerConfig drives the chain feed, matcher and confirmation tracker.
type ListenerConfig struct {
	RPCEndpoint       string `validate:"required,url"`
	TokenAddress      string `validate:"required,eth_addr"`
	NetworkName       string
	MinConfirmations  uint64          `validate:"gte=1"`
	MatchTolerance    decimal.Decimal // fraction, 0.0001 == 0.01%
	ProbeInterval     time.Duration   `validate:"gt=0"`
	ProbeTimeout      time.Duration   `validate:"gt=0"`
	ReconnectDelay    time.Duration   `validate:"gt=0"`
	ReconnectMaxDelay time.Duration   `validate:"gtefield=ReconnectDelay"`
	DrainTimeout      time.Duration
	DedupCacheSize    int `validate:"gt=0"`
}

type NotificationConfig struct {
	Timeout              time.Duration `validate:"gt=0"`
	ShopifyAPIVersion    string        `validate:"required"`
	WooCommerceAction    string        `validate:"required"`
	MerchantCacheTTL     time.Duration
	BreakerMaxRequests   uint32
	BreakerInterval      time.Duration
	BreakerTimeout       time.Duration
	BreakerFailThreshold int
}

type JobsConfig struct {
	ExpirySweepSchedule string
	// ExpirySweepWebhookURL is pinged after each successful sweep when set.
	ExpirySweepWebhookURL string `validate:"omitempty,url"`
}

type DBConnection struct {
	Driver string
	Host   string
	Port   string
	User   string
	Name   string
	Pass   string

	SSLMode string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Parse(env),
		ApiServer: ApiServerConfig{
			Port:           envOr("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Postgres: DBConnection{
			Driver:  envOr("DB_DRIVER", "postgres"),
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Listener: ListenerConfig{
			RPCEndpoint:       os.Getenv("ETHEREUM_RPC_WSS"),
			TokenAddress:      os.Getenv("TOKEN_CONTRACT_ADDRESS"),
			NetworkName:       envOr("NETWORK_NAME", "sepolia"),
			MinConfirmations:  envVarUintOr("MIN_CONFIRMATIONS", 1, 64),
			MatchTolerance:    envVarDecimalOr("MATCH_TOLERANCE", decimal.RequireFromString("0.0001")),
			ProbeInterval:     envVarDurationOr("PROBE_INTERVAL", 30*time.Second),
			ProbeTimeout:      envVarDurationOr("PROBE_TIMEOUT", 10*time.Second),
			ReconnectDelay:    envVarDurationOr("RECONNECT_DELAY", 5*time.Second),
			ReconnectMaxDelay: envVarDurationOr("RECONNECT_MAX_DELAY", time.Minute),
			DrainTimeout:      envVarDurationOr("DRAIN_TIMEOUT", 0),
			DedupCacheSize:    envVarAtoiOr("DEDUP_CACHE_SIZE", 4096),
		},
		Notification: NotificationConfig{
			Timeout:              envVarDurationOr("NOTIFY_TIMEOUT", 10*time.Second),
			ShopifyAPIVersion:    envOr("SHOPIFY_API_VERSION", "2024-01"),
			WooCommerceAction:    envOr("WOOCOMMERCE_CONFIRM_ACTION", "MNEE_payment_confirm"),
			MerchantCacheTTL:     envVarDurationOr("MERCHANT_CACHE_TTL", time.Minute),
			BreakerMaxRequests:   uint32(envVarUintOr("NOTIFY_BREAKER_MAX_REQUESTS", 3, 32)),
			BreakerInterval:      envVarDurationOr("NOTIFY_BREAKER_INTERVAL", time.Minute),
			BreakerTimeout:       envVarDurationOr("NOTIFY_BREAKER_TIMEOUT", 2*time.Minute),
			BreakerFailThreshold: envVarAtoiOr("NOTIFY_BREAKER_FAIL_THRESHOLD", 5),
		},
		Jobs: JobsConfig{
			ExpirySweepSchedule:   envOr("EXPIRY_SWEEP_SCHEDULE", "@every 1m"),
			ExpirySweepWebhookURL: os.Getenv("UPTIME_WEBHOOK_EXPIRY_SWEEP_URL"),
		},
	}
}

// Validate checks the sections the listener cannot start without.
func (c *AppConfig) Validate() error {
	return validator.New().Struct(c)
}

func envOr(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

func envVarAtoiOr(envName string, fallback int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

// envVarUintOr rejects negative and out-of-range values instead of letting them wrap.
func envVarUintOr(envName string, fallback uint64, bitSize int) uint64 {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseUint(valueStr, 10, bitSize)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarDurationOr(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarDecimalOr(envName string, fallback decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}
