package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB (local booking archive).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisAuthDB    int    `mapstructure:"REDIS_AUTH_DB"`
	RedisTaskDB    int    `mapstructure:"REDIS_TASK_DB"`

	// Upstream booking API.
	UpstreamBaseURL  string `mapstructure:"UPSTREAM_BASE_URL"`
	UpstreamEmail    string `mapstructure:"UPSTREAM_EMAIL"`
	UpstreamPassword string `mapstructure:"UPSTREAM_PASSWORD"`
	UpstreamTimeout  int    `mapstructure:"UPSTREAM_TIMEOUT_SECONDS"`

	// Wizard behaviour.
	SessionTTLMinutes int     `mapstructure:"SESSION_TTL_MINUTES"`
	AtHomeTax         float64 `mapstructure:"AT_HOME_TAX"`
	MaxProofSizeMB    int     `mapstructure:"MAX_PROOF_SIZE_MB"`

	// Cloudinary (payment-proof storage).
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	// Stripe (card payment intents).
	StripeKey string `mapstructure:"STRIPE_KEY"`
}

// AppConfig is the loaded global configuration.
var AppConfig Config

// LoadConfig initializes Viper to load config values from env, file, or defaults.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_NAME", "carebook")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_TASK_DB", 2)
	viper.SetDefault("UPSTREAM_TIMEOUT_SECONDS", 15)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("AT_HOME_TAX", 10.0)
	viper.SetDefault("MAX_PROOF_SIZE_MB", 5)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// GetEnv returns the application environment.
func GetEnv() string {
	return AppConfig.Env
}

// IsProduction checks if the environment is production.
func IsProduction() bool {
	return GetEnv() == "production"
}
