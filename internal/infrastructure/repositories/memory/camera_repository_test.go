package memory

import (
	"context"
	"testing"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCameraRepository_SeedAndLookup(t *testing.T) {
	repo := NewMemoryCameraRepository()
	repo.Seed(
		&domain.Camera{ID: "cam-b", RtspURL: "rtsp://host/b.264"},
		&domain.Camera{ID: "cam-a", RtmpURL: "rtmp://host/live/a"},
	)

	cam, err := repo.GetByID(context.Background(), "cam-a")
	require.NoError(t, err)
	assert.Equal(t, "rtmp://host/live/a", cam.RtmpURL)

	cameras, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cameras, 2)
	assert.Equal(t, domain.CameraID("cam-a"), cameras[0].ID)
	assert.Equal(t, domain.CameraID("cam-b"), cameras[1].ID)
}

func TestMemoryCameraRepository_UnknownCamera(t *testing.T) {
	repo := NewMemoryCameraRepository()

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrCameraNotFound)
}
