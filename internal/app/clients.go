package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/flashcard-media/internal/pkg/httpx"
	"github.com/yungbote/flashcard-media/internal/platform/gcp"
	"github.com/yungbote/flashcard-media/internal/platform/gemini"
	"github.com/yungbote/flashcard-media/internal/platform/localmedia"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
	"github.com/yungbote/flashcard-media/internal/platform/redisx"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
)

type Clients struct {
	Redis   *goredis.Client
	Bus     bus.Bus
	Locker  redisx.Locker
	Bucket  gcp.BucketService
	Gemini  gemini.Client
	Fetcher *httpx.Fetcher
	Media   localmedia.Tools
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis (optional)
	rdb, err := redisx.NewClientFromEnv(ctx, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	var (
		eventBus bus.Bus
		locker   redisx.Locker
	)
	if rdb != nil {
		eventBus, err = bus.NewRedisBus(log, rdb)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		locker = redisx.NewRedisLocker(rdb, cfg.LockPrefix)
	} else {
		eventBus = bus.NewNoopBus()
		locker = redisx.NewLocalLocker()
	}

	// Gcs
	storageCfg, cfgErr := gcp.ResolveStorageConfigFromEnv()
	bucket, err := resolveBucketService(log, storageCfg, cfgErr)
	if err != nil {
		closeRedis(rdb, eventBus)
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	// Gemini / Vertex
	ai, err := gemini.NewClient(ctx, log)
	if err != nil {
		_ = bucket.Close()
		closeRedis(rdb, eventBus)
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}

	// ffmpeg is only needed for video; a missing binary fails those requests later.
	tools := localmedia.New(log)
	if err := tools.AssertReady(ctx); err != nil {
		log.Warn("Media tools not ready; video post-processing will fail", "error", err)
	}

	return Clients{
		Redis:   rdb,
		Bus:     eventBus,
		Locker:  locker,
		Bucket:  bucket,
		Gemini:  ai,
		Fetcher: newSeedFetcher(cfg),
		Media:   tools,
	}, nil
}

func newSeedFetcher(cfg Config) *httpx.Fetcher {
	f := httpx.NewFetcher(cfg.SeedFetchTimeout, cfg.SeedFetchRetries)
	if cfg.SeedFetchMaxBytes > 0 {
		f.MaxBytes = int64(cfg.SeedFetchMaxBytes)
	}
	return f
}

func closeRedis(rdb *goredis.Client, b bus.Bus) {
	if b != nil {
		_ = b.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	closeRedis(c.Redis, c.Bus)
}
