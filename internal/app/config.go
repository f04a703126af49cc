package app

import (
	"os"
	"strings"
	"time"

	"github.com/yungbote/flashcard-media/internal/platform/envutil"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	AutoMigrate  bool
	PromptLocale string

	VideoPollInterval time.Duration
	VideoTimeout      time.Duration
	VideoTargetFPS    int
	MaxSeedPixels     int
	MaxDecodePixels   int

	SeedFetchTimeout  time.Duration
	SeedFetchRetries  int
	SeedFetchMaxBytes int

	GenerationLockTTL time.Duration
	LockPrefix        string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		ServiceName:       getEnv(log, "OTEL_SERVICE_NAME", "flashcard-media"),
		Environment:       getEnv(log, "APP_ENV", "development"),
		Version:           getEnv(log, "APP_VERSION", "dev"),
		AutoMigrate:       getEnvAsBool(log, "DB_AUTO_MIGRATE", true),
		PromptLocale:      getEnv(log, "PROMPT_LOCALE", "ja"),
		VideoPollInterval: getEnvAsSeconds(log, "VIDEO_POLL_INTERVAL_SECONDS", 20*time.Second),
		VideoTimeout:      getEnvAsSeconds(log, "VIDEO_TIMEOUT_SECONDS", 10*time.Minute),
		VideoTargetFPS:    getEnvAsInt(log, "VIDEO_TARGET_FPS", 10),
		MaxSeedPixels:     getEnvAsInt(log, "SEED_MAX_PIXELS", 2048),
		SeedFetchTimeout:  getEnvAsSeconds(log, "SEED_FETCH_TIMEOUT_SECONDS", 30*time.Second),
		MaxDecodePixels:   getEnvAsInt(log, "SEED_MAX_DECODE_PIXELS", 40_000_000),
		SeedFetchRetries:  getEnvAsInt(log, "SEED_FETCH_MAX_RETRIES", 3),
		SeedFetchMaxBytes: getEnvAsInt(log, "SEED_FETCH_MAX_BYTES", 32<<20),
		GenerationLockTTL: getEnvAsSeconds(log, "GENERATION_LOCK_TTL_SECONDS", 15*time.Minute),
		LockPrefix:        getEnv(log, "GENERATION_LOCK_PREFIX", "flashcard-media:lock:"),
	}
}

func envMissing(log *logger.Logger, key string, def any) bool {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return false
	}
	log.Debug("Environment variable not set, using default", "key", key, "default", def)
	return true
}

func getEnv(log *logger.Logger, key, def string) string {
	envMissing(log, key, def)
	return envutil.String(key, def)
}

func getEnvAsInt(log *logger.Logger, key string, def int) int {
	envMissing(log, key, def)
	return envutil.Int(key, def)
}

func getEnvAsBool(log *logger.Logger, key string, def bool) bool {
	envMissing(log, key, def)
	return envutil.Bool(key, def)
}

func getEnvAsSeconds(log *logger.Logger, key string, def time.Duration) time.Duration {
	envMissing(log, key, def)
	return envutil.Seconds(key, def)
}
