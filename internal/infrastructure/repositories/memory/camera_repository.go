package memory

import (
	"context"
	"sort"
	"sync"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

// MemoryCameraRepository holds camera records in memory. Used for tests
// and for deployments where the camera list is seeded from config.
type MemoryCameraRepository struct {
	cameras map[domain.CameraID]*domain.Camera
	mu      sync.RWMutex
}

func NewMemoryCameraRepository() *MemoryCameraRepository {
	return &MemoryCameraRepository{
		cameras: make(map[domain.CameraID]*domain.Camera),
	}
}

// Seed installs camera records. Records are read-only afterwards.
func (r *MemoryCameraRepository) Seed(cameras ...*domain.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cam := range cameras {
		r.cameras[cam.ID] = cam
	}
}

func (r *MemoryCameraRepository) GetByID(ctx context.Context, id domain.CameraID) (*domain.Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cam, exists := r.cameras[id]
	if !exists {
		return nil, domain.ErrCameraNotFound
	}

	return cam, nil
}

func (r *MemoryCameraRepository) List(ctx context.Context) ([]*domain.Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cameras := make([]*domain.Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		cameras = append(cameras, cam)
	}

	sort.Slice(cameras, func(i, j int) bool { return cameras[i].ID < cameras[j].ID })
	return cameras, nil
}

var _ ports.CameraRepository = (*MemoryCameraRepository)(nil)
