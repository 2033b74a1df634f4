package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	// AppURL is the public base URL used for Stripe redirect targets.
	AppURL    string `mapstructure:"APP_URL"`
	ClientURL string `mapstructure:"CLIENT_URL"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey                   string `mapstructure:"FIREBASE_API_KEY"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	StripeSecretKey       string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripePublishableKey  string `mapstructure:"STRIPE_PUBLISHABLE_KEY"`
	StripePriceBasic      string `mapstructure:"STRIPE_PRICE_BASIC"`
	StripePricePro        string `mapstructure:"STRIPE_PRICE_PRO"`
	StripePriceEnterprise string `mapstructure:"STRIPE_PRICE_ENTERPRISE"`

	SessionMaxAge  time.Duration `mapstructure:"SESSION_MAX_AGE"`
	SessionSecure  bool          `mapstructure:"SESSION_SECURE"`
	DemoPathPrefix string        `mapstructure:"DEMO_PATH_PREFIX"`

	ClassifierCommand string        `mapstructure:"CLASSIFIER_COMMAND"`
	ClassifierArgs    string        `mapstructure:"CLASSIFIER_ARGS"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`
	MaxUploadBytes    int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	UploadDir         string        `mapstructure:"UPLOAD_DIR"`

	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	IdentityCacheTTL time.Duration `mapstructure:"IDENTITY_CACHE_TTL"`

	AMQPURL   string `mapstructure:"AMQP_URL"`
	AMQPQueue string `mapstructure:"AMQP_QUEUE"`

	AuthRateLimitRPS   float64 `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst int     `mapstructure:"AUTH_RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "GIN_MODE", "APP_URL", "CLIENT_URL",
	"FIREBASE_PROJECT_ID", "FIREBASE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PUBLISHABLE_KEY",
	"STRIPE_PRICE_BASIC", "STRIPE_PRICE_PRO", "STRIPE_PRICE_ENTERPRISE",
	"SESSION_MAX_AGE", "SESSION_SECURE", "DEMO_PATH_PREFIX",
	"CLASSIFIER_COMMAND", "CLASSIFIER_ARGS", "CLASSIFIER_TIMEOUT", "MAX_UPLOAD_BYTES", "UPLOAD_DIR",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "IDENTITY_CACHE_TTL",
	"AMQP_URL", "AMQP_QUEUE",
	"AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
}

// LoadConfig loads configuration from environment variables using Viper.
// When CONFIG_FILE is set, that file is read first and the environment
// overrides it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("SESSION_MAX_AGE", time.Hour)
	v.SetDefault("SESSION_SECURE", true)
	v.SetDefault("DEMO_PATH_PREFIX", "/demo")
	v.SetDefault("CLASSIFIER_COMMAND", "python3")
	v.SetDefault("CLASSIFIER_ARGS", "scripts/detect_disease.py")
	v.SetDefault("CLASSIFIER_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("IDENTITY_CACHE_TTL", 5*time.Minute)
	v.SetDefault("AMQP_QUEUE", "subscription.changed")
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 1)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 5)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required field is present.
func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.FirebaseAPIKey == "" {
		return errors.New("FIREBASE_API_KEY is required")
	}
	if c.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if c.ClassifierTimeout <= 0 {
		return errors.New("CLASSIFIER_TIMEOUT must be positive")
	}
	return nil
}

// PricePlans maps configured Stripe price IDs to plan names.
func (c *Config) PricePlans() map[string]string {
	plans := make(map[string]string, 3)
	if c.StripePriceBasic != "" {
		plans[c.StripePriceBasic] = "basic"
	}
	if c.StripePricePro != "" {
		plans[c.StripePricePro] = "pro"
	}
	if c.StripePriceEnterprise != "" {
		plans[c.StripePriceEnterprise] = "enterprise"
	}
	return plans
}

// ClassifierArgList splits ClassifierArgs on whitespace.
func (c *Config) ClassifierArgList() []string {
	return strings.Fields(c.ClassifierArgs)
}
