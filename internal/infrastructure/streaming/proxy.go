package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/retry"

	"go.uber.org/zap"
)

var errUpstreamEnded = errors.New("upstream stream ended")

// ProxyConfig tunes the shared live proxy.
type ProxyConfig struct {
	ConnectTimeout    time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	GracePeriod       time.Duration
	ViewerBuffer      int
}

// Proxy maintains one shared upstream pull per resolved URL and fans
// frames out to every attached viewer. Cameras have limited concurrent
// connection capacity, so the proxy never opens a second upstream
// connection for the same effective source.
type Proxy struct {
	resolver ports.StreamResolver
	engine   ports.MediaEngine
	events   ports.EventPublisher
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
	cfg      ProxyConfig

	mu       sync.Mutex
	sessions map[string]*liveSession

	rootCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewProxy(
	resolver ports.StreamResolver,
	engine ports.MediaEngine,
	events ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
	cfg ProxyConfig,
) *Proxy {
	rootCtx, stop := context.WithCancel(context.Background())
	return &Proxy{
		resolver: resolver,
		engine:   engine,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		sessions: make(map[string]*liveSession),
		rootCtx:  rootCtx,
		stop:     stop,
	}
}

// Attach resolves the camera's source and joins (or creates) the shared
// session for it. Create-if-absent and the viewer registration happen
// under one registry lock, so concurrent first-attaches for the same
// URL yield exactly one session and one upstream connection.
func (p *Proxy) Attach(ctx context.Context, cameraID domain.CameraID, tier domain.QualityTier) (ports.LiveViewer, error) {
	src, err := p.resolver.Resolve(ctx, cameraID, tier)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	session, ok := p.sessions[src.URL]
	if !ok {
		session = newLiveSession(src.URL, cameraID)
		p.sessions[src.URL] = session
		p.startUpstream(session)
	}

	viewer, attached := session.attach(p.cfg.ViewerBuffer)
	if !attached {
		// Session lost its upstream between lookup and attach; replace it.
		session = newLiveSession(src.URL, cameraID)
		p.sessions[src.URL] = session
		p.startUpstream(session)
		viewer, _ = session.attach(p.cfg.ViewerBuffer)
	}
	p.mu.Unlock()

	p.metrics.ViewerAttached(cameraID)
	p.logger.Debugw("viewer attached",
		"camera_id", cameraID,
		"tier", tier,
		"coerced", src.Coerced,
	)

	return viewer, nil
}

// Detach drops the viewer. When the session's reference count reaches
// zero a grace timer delays upstream teardown, absorbing tab refreshes
// and tier switches without reconnecting to the camera.
func (p *Proxy) Detach(viewer ports.LiveViewer) {
	v, ok := viewer.(*Viewer)
	if !ok || v.session == nil {
		return
	}
	session := v.session

	remaining := session.detach(v)
	p.metrics.ViewerDetached(session.cameraID)

	if remaining > 0 {
		return
	}

	session.mu.Lock()
	if !session.closed && session.refs == 0 && session.graceTimer == nil {
		session.graceTimer = time.AfterFunc(p.cfg.GracePeriod, func() {
			p.reapIfIdle(session)
		})
	}
	session.mu.Unlock()
}

// reapIfIdle tears the session down if no viewer re-attached during the
// grace period.
func (p *Proxy) reapIfIdle(session *liveSession) {
	p.mu.Lock()
	session.mu.Lock()
	idle := !session.closed && session.refs == 0
	session.mu.Unlock()
	if idle {
		delete(p.sessions, session.key)
	}
	p.mu.Unlock()

	if !idle {
		return
	}

	if session.shutdown(nil) {
		p.metrics.LiveSessionStopped()
		p.events.LiveSessionStopped(context.Background(), session.cameraID, "idle")
		p.logger.Infow("live session reaped after grace period",
			"camera_id", session.cameraID,
		)
	}
}

// fail tears the session down and reports the error to every viewer.
func (p *Proxy) fail(session *liveSession, err error) {
	p.mu.Lock()
	if p.sessions[session.key] == session {
		delete(p.sessions, session.key)
	}
	p.mu.Unlock()

	if session.shutdown(err) {
		p.metrics.LiveSessionStopped()
		p.events.LiveSessionStopped(context.Background(), session.cameraID, err.Error())
	}
}

// startUpstream launches the single upstream pull for a session. Must
// be called with the registry lock held.
func (p *Proxy) startUpstream(session *liveSession) {
	ctx, cancel := context.WithCancel(p.rootCtx)
	session.cancelUpstream = cancel

	p.metrics.LiveSessionStarted()
	p.events.LiveSessionStarted(ctx, session.cameraID, session.key)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.pull(ctx, session)
	}()
}

func (p *Proxy) pull(ctx context.Context, session *liveSession) {
	retryCfg := retry.Config{
		Enabled:      true,
		MaxAttempts:  p.cfg.ReconnectAttempts,
		InitialDelay: p.cfg.ReconnectDelay,
		MaxDelay:     p.cfg.ReconnectDelay * 4,
		Multiplier:   2.0,
		Jitter:       true,
	}

	err := retry.Retry(ctx, retryCfg, func() error {
		pullErr := p.engine.PullFrames(ctx, session.key, p.cfg.ConnectTimeout, func(frame []byte) error {
			n := session.broadcast(frame)
			p.metrics.FramesFannedOut(n, len(frame))
			return nil
		})
		if pullErr != nil {
			p.logger.Warnw("upstream pull failed",
				"camera_id", session.cameraID,
				"error", pullErr,
			)
			return pullErr
		}
		// A clean end of a live feed still means the camera went away.
		return errUpstreamEnded
	})

	if ctx.Err() != nil {
		// Cancelled: normal teardown, viewers were already released.
		return
	}

	p.logger.Errorw("upstream unavailable after retries",
		"camera_id", session.cameraID,
		"attempts", p.cfg.ReconnectAttempts,
		"error", err,
	)
	p.fail(session, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err))
}

// ActiveSessions reports the number of live upstream pulls.
func (p *Proxy) ActiveSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown cancels every upstream pull and waits, bounded by ctx.
func (p *Proxy) Shutdown(ctx context.Context) {
	p.mu.Lock()
	sessions := make([]*liveSession, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessions = make(map[string]*liveSession)
	p.mu.Unlock()

	for _, s := range sessions {
		s.shutdown(nil)
	}
	p.stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

var _ ports.LiveProxy = (*Proxy)(nil)
