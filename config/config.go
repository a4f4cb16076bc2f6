package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisTaskDB    int    `mapstructure:"REDIS_TASK_DB"`
	RedisIdemDB    int    `mapstructure:"REDIS_IDEM_DB"`
	StayCacheTTL   int    `mapstructure:"STAY_CACHE_TTL_SECONDS"`
	IdempotencyTTL int    `mapstructure:"IDEMPOTENCY_TTL_SECONDS"`

	// Payment collaborator.
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	CollaboratorTimeout int    `mapstructure:"COLLABORATOR_TIMEOUT_SECONDS"`

	// Hold manager.
	HoldDefaultMinutes int `mapstructure:"HOLD_DEFAULT_MINUTES"`
	HoldSweepSeconds   int `mapstructure:"HOLD_SWEEP_SECONDS"`

	// Webhook dispatcher.
	WebhookMaxAttempts    int `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`
	WebhookTimeoutSeconds int `mapstructure:"WEBHOOK_TIMEOUT_SECONDS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_TASK_DB", 1)
	viper.SetDefault("REDIS_IDEM_DB", 2)
	viper.SetDefault("STAY_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("IDEMPOTENCY_TTL_SECONDS", 86400)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "innkeeper")
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("COLLABORATOR_TIMEOUT_SECONDS", 15)
	viper.SetDefault("HOLD_DEFAULT_MINUTES", 15)
	viper.SetDefault("HOLD_SWEEP_SECONDS", 30)
	viper.SetDefault("WEBHOOK_MAX_ATTEMPTS", 8)
	viper.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
