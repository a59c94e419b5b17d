package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// Database (optional; club inventory and user profiles)
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis (optional; session snapshots and stat rollups)
	RedisURL string `mapstructure:"REDIS_URL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Speech provider
	SpeechProvider string `mapstructure:"SPEECH_PROVIDER"` // "provider-a", "provider-b", "mock"
	SpeechAPIKey   string `mapstructure:"SPEECH_API_KEY"`
	SpeechBaseURL  string `mapstructure:"SPEECH_BASE_URL"`
	SpeechTimeout  time.Duration `mapstructure:"SPEECH_TIMEOUT"`

	// Conversation engine
	PersonalityStyle              string  `mapstructure:"PERSONALITY_STYLE"` // "professional", "casual", "encouraging"
	VerbosityLevel                string  `mapstructure:"VERBOSITY_LEVEL"`   // "concise", "detailed", "comprehensive"
	RequireConfirmation           bool    `mapstructure:"REQUIRE_CONFIRMATION"`
	MaxRetries                    int     `mapstructure:"MAX_RETRIES"`
	ConfidenceThreshold           float64 `mapstructure:"CONFIDENCE_THRESHOLD"`
	EnableContextualUnderstanding bool    `mapstructure:"ENABLE_CONTEXTUAL_UNDERSTANDING"`

	// Session lifecycle
	SessionIdleTimeout  time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	SessionReapInterval string        `mapstructure:"SESSION_REAP_INTERVAL"` // cron spec
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8090")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVICE_NAME", "voice-caddie")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("SPEECH_PROVIDER", "mock")
	viper.SetDefault("SPEECH_API_KEY", "")
	viper.SetDefault("SPEECH_BASE_URL", "")
	viper.SetDefault("SPEECH_TIMEOUT", "15s")

	viper.SetDefault("PERSONALITY_STYLE", "professional")
	viper.SetDefault("VERBOSITY_LEVEL", "detailed")
	viper.SetDefault("REQUIRE_CONFIRMATION", true)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("CONFIDENCE_THRESHOLD", 0.6)
	viper.SetDefault("ENABLE_CONTEXTUAL_UNDERSTANDING", true)

	viper.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	viper.SetDefault("SESSION_REAP_INTERVAL", "*/5 * * * *")

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects option values outside the recognized sets.
func (c *Config) Validate() error {
	switch c.SpeechProvider {
	case "provider-a", "provider-b", "mock":
	default:
		return fmt.Errorf("unsupported SPEECH_PROVIDER %q", c.SpeechProvider)
	}
	switch c.PersonalityStyle {
	case "professional", "casual", "encouraging":
	default:
		return fmt.Errorf("unsupported PERSONALITY_STYLE %q", c.PersonalityStyle)
	}
	switch c.VerbosityLevel {
	case "concise", "detailed", "comprehensive":
	default:
		return fmt.Errorf("unsupported VERBOSITY_LEVEL %q", c.VerbosityLevel)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %f", c.ConfidenceThreshold)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
