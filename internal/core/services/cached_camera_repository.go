package services

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/cache"
)

// CachedCameraRepository wraps a CameraRepository with an in-process
// TTL cache. Used when no Redis cache is configured.
type CachedCameraRepository struct {
	base  ports.CameraRepository
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedCameraRepository(base ports.CameraRepository, ttl time.Duration) *CachedCameraRepository {
	return &CachedCameraRepository{
		base:  base,
		cache: cache.NewCache(ttl),
		ttl:   ttl,
	}
}

func (r *CachedCameraRepository) GetByID(ctx context.Context, id domain.CameraID) (*domain.Camera, error) {
	cacheKey := fmt.Sprintf("camera:%s", id)

	value, err := r.cache.GetOrSet(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		return r.base.GetByID(ctx, id)
	}, r.ttl)
	if err != nil {
		return nil, err
	}

	return value.(*domain.Camera), nil
}

func (r *CachedCameraRepository) List(ctx context.Context) ([]*domain.Camera, error) {
	value, err := r.cache.GetOrSet(ctx, "cameras:list", func(ctx context.Context) (interface{}, error) {
		return r.base.List(ctx)
	}, r.ttl)
	if err != nil {
		return nil, err
	}

	return value.([]*domain.Camera), nil
}

// Stop halts the cache cleanup goroutine.
func (r *CachedCameraRepository) Stop() {
	r.cache.Stop()
}

var _ ports.CameraRepository = (*CachedCameraRepository)(nil)
