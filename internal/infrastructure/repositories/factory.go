package repositories

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/core/services"
	"streamgate/internal/infrastructure/repositories/memory"
	"streamgate/internal/infrastructure/repositories/postgres"
	redisrepo "streamgate/internal/infrastructure/repositories/redis"
	"streamgate/pkg/config"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory wires the camera metadata repository stack from configuration:
// a memory or postgres base, optionally fronted by a Redis or in-process
// read-through cache.
type Factory struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	pg          *postgres.PostgresCameraRepository
	redisClient *goredis.Client
	memCache    *services.CachedCameraRepository
	seedable    *memory.MemoryCameraRepository
}

func NewFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Factory, error) {
	return &Factory{cfg: cfg, logger: logger}, nil
}

// CreateCameraRepository builds the configured repository chain.
func (f *Factory) CreateCameraRepository(ctx context.Context) (ports.CameraRepository, error) {
	var base ports.CameraRepository

	switch f.cfg.Metadata.Backend {
	case "postgres":
		pg, err := postgres.NewPostgresCameraRepository(ctx, f.cfg.DSN(), f.cfg.Metadata.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("create postgres camera repository: %w", err)
		}
		f.pg = pg
		base = pg
	case "memory":
		f.seedable = memory.NewMemoryCameraRepository()
		f.seedable.Seed(camerasFromSeeds(f.cfg.Metadata.Cameras)...)
		f.logger.Infow("seeded camera metadata from config",
			"cameras", len(f.cfg.Metadata.Cameras),
		)
		base = f.seedable
	default:
		return nil, fmt.Errorf("unknown metadata backend: %s", f.cfg.Metadata.Backend)
	}

	if f.cfg.Cache.Redis {
		client, err := redisrepo.NewRedisClient(
			f.cfg.Cache.Address,
			f.cfg.Cache.Password,
			f.cfg.Cache.DB,
			f.cfg.Cache.PoolSize,
			f.logger,
		)
		if err != nil {
			return nil, fmt.Errorf("create redis cache client: %w", err)
		}
		f.redisClient = client
		return redisrepo.NewCachedCameraRepository(base, client, f.cfg.Cache.TTL, f.logger), nil
	}

	f.memCache = services.NewCachedCameraRepository(base, f.cfg.Cache.TTL)
	return f.memCache, nil
}

// MemoryRepository exposes the seedable memory repository, if configured.
func (f *Factory) MemoryRepository() *memory.MemoryCameraRepository {
	return f.seedable
}

func camerasFromSeeds(seeds []config.CameraSeedConfig) []*domain.Camera {
	cameras := make([]*domain.Camera, 0, len(seeds))
	for _, s := range seeds {
		cameras = append(cameras, &domain.Camera{
			ID:           domain.CameraID(s.ID),
			DivisionName: s.DivisionName,
			DistrictName: s.DistrictName,
			WorkID:       s.WorkID,
			RtspURL:      s.RtspURL,
			RtmpURL:      s.RtmpURL,
			Status:       "active",
			LastUpdated:  time.Now(),
		})
	}
	return cameras
}

func (f *Factory) Close() {
	if f.memCache != nil {
		f.memCache.Stop()
	}
	if f.redisClient != nil {
		_ = f.redisClient.Close()
	}
	if f.pg != nil {
		f.pg.Close()
	}
}
