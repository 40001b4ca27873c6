package app

import (
	"time"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/utils"
)

type Config struct {
	Port string

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	maxRequests := utils.GetEnvAsInt("FIRECRAWL_RATE_LIMIT", 10, log)
	windowMs := utils.GetEnvAsInt("FIRECRAWL_RATE_WINDOW_MS", 60000, log)
	return Config{
		Port:                 port,
		RateLimitMaxRequests: maxRequests,
		RateLimitWindow:      time.Duration(windowMs) * time.Millisecond,
	}
}
