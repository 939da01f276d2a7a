package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, cameraID domain.CameraID, tier domain.QualityTier) (domain.ResolvedSource, error) {
	if cameraID == "missing" {
		return domain.ResolvedSource{}, domain.ErrCameraNotFound
	}
	url := "rtsp://host/" + string(cameraID) + ".264"
	if tier != domain.TierMain {
		url = "rtsp://host/" + string(cameraID) + "_" + string(tier) + ".264"
	}
	return domain.ResolvedSource{CameraID: cameraID, Kind: domain.SourceRTSP, URL: url, Tier: tier}, nil
}

// fakeEngine emits a frame every few milliseconds until cancelled.
type fakeEngine struct {
	mu     sync.Mutex
	starts int
	active int

	pullErr error
}

func (f *fakeEngine) PullFrames(ctx context.Context, sourceURL string, connectTimeout time.Duration, onFrame func([]byte) error) error {
	f.mu.Lock()
	f.starts++
	f.active++
	pullErr := f.pullErr
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if pullErr != nil {
		return pullErr
	}

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := onFrame([]byte(sourceURL)); err != nil {
				return err
			}
		}
	}
}

func (f *fakeEngine) PackageClip(ctx context.Context, segmentPaths []string, outputPath string) error {
	return nil
}

func (f *fakeEngine) totalStarts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeEngine) activePulls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func newTestProxy(t *testing.T, engine *fakeEngine, grace time.Duration) *Proxy {
	t.Helper()

	proxy := NewProxy(fakeResolver{}, engine, ports.NopEvents{}, ports.NopMetrics{},
		zaptest.NewLogger(t).Sugar(), ProxyConfig{
			ConnectTimeout:    time.Second,
			ReconnectAttempts: 1,
			ReconnectDelay:    5 * time.Millisecond,
			GracePeriod:       grace,
			ViewerBuffer:      16,
		})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		proxy.Shutdown(ctx)
	})
	return proxy
}

func waitFrame(t *testing.T, viewer ports.LiveViewer) []byte {
	t.Helper()
	select {
	case frame, ok := <-viewer.Frames():
		require.True(t, ok, "viewer closed: %v", viewer.Err())
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func TestProxy_ConcurrentAttachesShareOneUpstream(t *testing.T) {
	engine := &fakeEngine{}
	proxy := newTestProxy(t, engine, time.Minute)

	const viewers = 8
	attached := make([]ports.LiveViewer, viewers)

	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
			require.NoError(t, err)
			attached[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, proxy.ActiveSessions())
	assert.Equal(t, 1, engine.totalStarts())

	// Every viewer receives frames from the shared pull.
	for _, v := range attached {
		assert.Equal(t, []byte("rtsp://host/cam-1.264"), waitFrame(t, v))
	}

	for _, v := range attached {
		proxy.Detach(v)
	}
}

func TestProxy_DistinctTiersGetDistinctSessions(t *testing.T) {
	engine := &fakeEngine{}
	proxy := newTestProxy(t, engine, time.Minute)

	v1, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)
	v2, err := proxy.Attach(context.Background(), "cam-1", domain.TierSub)
	require.NoError(t, err)

	assert.Equal(t, 2, proxy.ActiveSessions())

	proxy.Detach(v1)
	proxy.Detach(v2)
}

func TestProxy_AttachUnknownCamera(t *testing.T) {
	proxy := newTestProxy(t, &fakeEngine{}, time.Minute)

	_, err := proxy.Attach(context.Background(), "missing", domain.TierMain)
	assert.ErrorIs(t, err, domain.ErrCameraNotFound)
	assert.Equal(t, 0, proxy.ActiveSessions())
}

func TestProxy_GracePeriodDelaysTeardown(t *testing.T) {
	engine := &fakeEngine{}
	proxy := newTestProxy(t, engine, 100*time.Millisecond)

	v, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)
	waitFrame(t, v)

	proxy.Detach(v)

	// Still alive inside the grace window.
	assert.Equal(t, 1, proxy.ActiveSessions())

	require.Eventually(t, func() bool {
		return proxy.ActiveSessions() == 0 && engine.activePulls() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProxy_ReattachDuringGraceKeepsUpstream(t *testing.T) {
	engine := &fakeEngine{}
	proxy := newTestProxy(t, engine, 100*time.Millisecond)

	v1, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)
	waitFrame(t, v1)
	proxy.Detach(v1)

	// Re-attach before the grace timer fires.
	v2, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 1, proxy.ActiveSessions())
	assert.Equal(t, 1, engine.totalStarts(), "no reconnect should have happened")
	waitFrame(t, v2)

	proxy.Detach(v2)
}

func TestProxy_UpstreamFailureClosesViewers(t *testing.T) {
	engine := &fakeEngine{pullErr: errors.New("connection refused")}
	proxy := newTestProxy(t, engine, time.Minute)

	v, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)

	select {
	case _, ok := <-v.Frames():
		require.False(t, ok, "expected the frame channel to close")
	case <-time.After(2 * time.Second):
		t.Fatal("viewer was not released after upstream failure")
	}

	assert.ErrorIs(t, v.Err(), domain.ErrUpstreamUnavailable)
	assert.Equal(t, 0, proxy.ActiveSessions())
}

func TestProxy_ShutdownReleasesEverything(t *testing.T) {
	engine := &fakeEngine{}
	proxy := newTestProxy(t, engine, time.Minute)

	v, err := proxy.Attach(context.Background(), "cam-1", domain.TierMain)
	require.NoError(t, err)
	waitFrame(t, v)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	proxy.Shutdown(ctx)

	assert.Equal(t, 0, proxy.ActiveSessions())
	require.Eventually(t, func() bool {
		return engine.activePulls() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLiveSession_AttachSeedsCachedFrame(t *testing.T) {
	session := newLiveSession("rtsp://host/cam.264", "cam-1")

	session.broadcast([]byte("frame-1"))

	v, ok := session.attach(4)
	require.True(t, ok)

	select {
	case frame := <-v.Frames():
		assert.Equal(t, []byte("frame-1"), frame)
	default:
		t.Fatal("expected the cached frame to be waiting")
	}
}

func TestLiveSession_SlowViewerDropsOldestFrame(t *testing.T) {
	session := newLiveSession("rtsp://host/cam.264", "cam-1")

	v, ok := session.attach(2)
	require.True(t, ok)

	session.broadcast([]byte("a"))
	session.broadcast([]byte("b"))
	session.broadcast([]byte("c")) // overflows: "a" is dropped

	assert.Equal(t, []byte("b"), <-v.Frames())
	assert.Equal(t, []byte("c"), <-v.Frames())
}

func TestLiveSession_ShutdownIsIdempotent(t *testing.T) {
	session := newLiveSession("rtsp://host/cam.264", "cam-1")

	v, ok := session.attach(4)
	require.True(t, ok)

	assert.True(t, session.shutdown(nil))
	assert.False(t, session.shutdown(nil))

	_, open := <-v.Frames()
	assert.False(t, open)

	// Attaching to a closed session fails so the proxy creates a fresh one.
	_, ok = session.attach(4)
	assert.False(t, ok)
}
