package services_test

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/services"
	"github.com/stitts-dev/voice-caddie/pkg/config"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestConfig() *config.Config {
	return &config.Config{
		Port:                          "8080",
		Env:                           "test",
		ServiceName:                   "voice-caddie",
		SpeechProvider:                "mock",
		PersonalityStyle:              "professional",
		VerbosityLevel:                "detailed",
		RequireConfirmation:           true,
		MaxRetries:                    3,
		ConfidenceThreshold:           0.6,
		EnableContextualUnderstanding: true,
		SessionIdleTimeout:            30 * time.Minute,
		SessionReapInterval:           "*/5 * * * *",
	}
}

func newTestPersonality() *services.Personality {
	return services.NewPersonality("professional", 1)
}
