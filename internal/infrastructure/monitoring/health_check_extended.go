package monitoring

import (
	"context"
	"time"

	"streamgate/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by the recording store and the metadata pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AddRedisCheck adds a Redis health check
func (h *HealthChecker) AddRedisCheck(client *redis.Client, interval, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddPingCheck adds a health check backed by a dependency's Ping.
func (h *HealthChecker) AddPingCheck(name string, p Pinger, interval, timeout time.Duration) {
	h.AddCheck(name, func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddCameraRepositoryCheck verifies the camera metadata source answers.
func (h *HealthChecker) AddCameraRepositoryCheck(repo ports.CameraRepository, interval, timeout time.Duration) {
	h.AddCheck("cameras", func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if _, err := repo.List(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}
