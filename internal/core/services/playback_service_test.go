package services

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRecordingStore struct {
	mu       sync.Mutex
	segments []domain.RecordingSegment
	findErr  error
}

func (f *fakeRecordingStore) FindSegments(ctx context.Context, cameraID domain.CameraID, start, end time.Time) ([]domain.RecordingSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.segments, nil
}

func (f *fakeRecordingStore) OpenSegment(ctx context.Context, seg domain.RecordingSegment) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("segment-bytes")), nil
}

type fakeMediaEngine struct {
	mu      sync.Mutex
	block   chan struct{} // when set, PackageClip waits on it
	clipErr error
}

func (f *fakeMediaEngine) PullFrames(ctx context.Context, sourceURL string, connectTimeout time.Duration, onFrame func([]byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeMediaEngine) PackageClip(ctx context.Context, segmentPaths []string, outputPath string) error {
	f.mu.Lock()
	block := f.block
	clipErr := f.clipErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if clipErr != nil {
		return clipErr
	}
	return os.WriteFile(outputPath, []byte("clip"), 0o644)
}

func testSegments(base time.Time) []domain.RecordingSegment {
	return []domain.RecordingSegment{
		{CameraID: "cam-1", Key: "cam-1/seg1.mp4", Start: base, End: base.Add(time.Minute)},
		{CameraID: "cam-1", Key: "cam-1/seg2.mp4", Start: base.Add(time.Minute), End: base.Add(2 * time.Minute)},
	}
}

func newTestBroker(t *testing.T, store ports.RecordingStore, engine ports.MediaEngine, cfg PlaybackConfig) *playbackService {
	t.Helper()

	if cfg.MaxWindow == 0 {
		cfg.MaxWindow = 30 * time.Minute
	}
	if cfg.ArtifactTTL == 0 {
		cfg.ArtifactTTL = 15 * time.Minute
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 8
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://gateway.local"
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Hour
	}

	broker := NewPlaybackBroker(store, engine, ports.NopEvents{}, ports.NopMetrics{},
		zaptest.NewLogger(t).Sugar(), cfg).(*playbackService)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		broker.Shutdown(ctx)
	})
	return broker
}

func TestPlaybackBroker_ValidateWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	broker := newTestBroker(t, &fakeRecordingStore{}, &fakeMediaEngine{}, PlaybackConfig{MaxWindow: 30 * time.Minute})
	broker.now = func() time.Time { return now }

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"window in the future", now.Add(time.Hour), now.Add(2 * time.Hour)},
		{"end in the future", now.Add(-time.Hour), now.Add(time.Hour)},
		{"end before start", now.Add(-time.Hour), now.Add(-2 * time.Hour)},
		{"window exceeds maximum", now.Add(-2 * time.Hour), now.Add(-time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := broker.Create(context.Background(), domain.PlaybackRequest{
				CameraID:  "cam-1",
				StartTime: tt.start,
				EndTime:   tt.end,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidTimeWindow)
		})
	}
}

func TestPlaybackBroker_ZeroLengthWindowAllowed(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(-time.Hour)

	store := &fakeRecordingStore{segments: testSegments(at)}
	broker := newTestBroker(t, store, &fakeMediaEngine{}, PlaybackConfig{})
	broker.now = func() time.Time { return now }

	_, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: at,
		EndTime:   at,
	})
	assert.NoError(t, err)
}

func TestPlaybackBroker_NoRecordingFound(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	broker := newTestBroker(t, &fakeRecordingStore{}, &fakeMediaEngine{}, PlaybackConfig{})
	broker.now = func() time.Time { return now }

	_, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: now.Add(-10 * time.Minute),
		EndTime:   now.Add(-5 * time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrNoRecordingFound)
}

func TestPlaybackBroker_CreateMaterializesArtifact(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	store := &fakeRecordingStore{segments: testSegments(windowStart)}
	broker := newTestBroker(t, store, &fakeMediaEngine{}, PlaybackConfig{ArtifactTTL: 15 * time.Minute})
	broker.now = func() time.Time { return now }

	artifact, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: windowStart,
		EndTime:   now.Add(-5 * time.Minute),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, artifact.ID)
	assert.Equal(t, domain.CameraID("cam-1"), artifact.CameraID)
	assert.Equal(t, "http://gateway.local/playback/files/"+string(artifact.ID)+".mp4", artifact.VideoURL)
	assert.Equal(t, now.Add(15*time.Minute), artifact.ExpiresAt)

	// The clip exists on disk before the id is ever handed out.
	_, statErr := os.Stat(artifact.FilePath)
	assert.NoError(t, statErr)

	got, ok := broker.Get(artifact.ID)
	require.True(t, ok)
	assert.Equal(t, artifact.ID, got.ID)
}

func TestPlaybackBroker_ExtractionFailureReturnsError(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	store := &fakeRecordingStore{segments: testSegments(windowStart)}
	engine := &fakeMediaEngine{clipErr: io.ErrUnexpectedEOF}
	broker := newTestBroker(t, store, engine, PlaybackConfig{})
	broker.now = func() time.Time { return now }

	_, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: windowStart,
		EndTime:   now.Add(-5 * time.Minute),
	})
	assert.Error(t, err)
}

func TestPlaybackBroker_SaturatedQueueReturnsBusy(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	release := make(chan struct{})
	store := &fakeRecordingStore{segments: testSegments(windowStart)}
	engine := &fakeMediaEngine{block: release}
	broker := newTestBroker(t, store, engine, PlaybackConfig{Workers: 1, QueueSize: 1})
	broker.now = func() time.Time { return now }

	req := domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: windowStart,
		EndTime:   now.Add(-5 * time.Minute),
	}

	// Occupy the single worker and the single queue slot.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = broker.Create(context.Background(), req)
		}()
	}

	// Wait until both in-flight requests hold the worker and the slot.
	require.Eventually(t, func() bool {
		return len(broker.jobs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := broker.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(release)
	wg.Wait()
}

func TestPlaybackBroker_DeleteIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	store := &fakeRecordingStore{segments: testSegments(windowStart)}
	broker := newTestBroker(t, store, &fakeMediaEngine{}, PlaybackConfig{})
	broker.now = func() time.Time { return now }

	artifact, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: windowStart,
		EndTime:   now.Add(-5 * time.Minute),
	})
	require.NoError(t, err)

	require.NoError(t, broker.Delete(context.Background(), artifact.ID))

	_, statErr := os.Stat(artifact.FilePath)
	assert.True(t, os.IsNotExist(statErr))
	_, ok := broker.Get(artifact.ID)
	assert.False(t, ok)

	// Repeat delete and unknown id both succeed.
	assert.NoError(t, broker.Delete(context.Background(), artifact.ID))
	assert.NoError(t, broker.Delete(context.Background(), "never-issued"))
}

func TestPlaybackBroker_SweepReclaimsExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	store := &fakeRecordingStore{segments: testSegments(windowStart)}
	broker := newTestBroker(t, store, &fakeMediaEngine{}, PlaybackConfig{ArtifactTTL: 15 * time.Minute})
	broker.now = func() time.Time { return now }

	artifact, err := broker.Create(context.Background(), domain.PlaybackRequest{
		CameraID:  "cam-1",
		StartTime: windowStart,
		EndTime:   now.Add(-5 * time.Minute),
	})
	require.NoError(t, err)

	// Not yet expired: sweep keeps it.
	broker.sweep()
	_, ok := broker.Get(artifact.ID)
	require.True(t, ok)

	broker.now = func() time.Time { return now.Add(16 * time.Minute) }
	broker.sweep()

	_, ok = broker.Get(artifact.ID)
	assert.False(t, ok)
	_, statErr := os.Stat(artifact.FilePath)
	assert.True(t, os.IsNotExist(statErr))
}
