package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/circuitbreaker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaybackConfig tunes the broker.
type PlaybackConfig struct {
	MaxWindow     time.Duration
	ArtifactTTL   time.Duration
	Workers       int
	QueueSize     int
	OutputDir     string
	PublicBaseURL string
	SweepInterval time.Duration
}

type artifactState int

const (
	artifactPending artifactState = iota
	artifactReady
)

type artifactEntry struct {
	state    artifactState
	artifact *domain.PlaybackArtifact
	cancel   context.CancelFunc
}

type extractionJob struct {
	ctx      context.Context
	id       domain.ArtifactID
	req      domain.PlaybackRequest
	segments []domain.RecordingSegment
	outPath  string
	done     chan error
}

type playbackService struct {
	store   ports.RecordingStore
	engine  ports.MediaEngine
	events  ports.EventPublisher
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
	cfg     PlaybackConfig
	breaker *circuitbreaker.CircuitBreaker

	now func() time.Time

	mu       sync.Mutex
	registry map[domain.ArtifactID]*artifactEntry

	jobs     chan *extractionJob
	rootCtx  context.Context
	stop     context.CancelFunc
	workerWG sync.WaitGroup
}

// NewPlaybackBroker starts the extraction worker pool and the expiry
// sweep. The pool is sized independently of the live path so playback
// bursts cannot starve live viewing.
func NewPlaybackBroker(
	store ports.RecordingStore,
	engine ports.MediaEngine,
	events ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
	cfg PlaybackConfig,
) ports.PlaybackBroker {
	rootCtx, stop := context.WithCancel(context.Background())

	s := &playbackService{
		store:    store,
		engine:   engine,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		now:      time.Now,
		registry: make(map[domain.ArtifactID]*artifactEntry),
		jobs:     make(chan *extractionJob, cfg.QueueSize),
		rootCtx:  rootCtx,
		stop:     stop,
	}

	for i := 0; i < cfg.Workers; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}

	go s.sweepLoop()

	return s
}

func (s *playbackService) Create(ctx context.Context, req domain.PlaybackRequest) (*domain.PlaybackArtifact, error) {
	if err := s.validateWindow(req); err != nil {
		s.metrics.PlaybackFailed("invalid_time_window")
		return nil, err
	}

	var segments []domain.RecordingSegment
	err := s.breaker.Execute(ctx, func() error {
		var lookupErr error
		segments, lookupErr = s.store.FindSegments(ctx, req.CameraID, req.StartTime, req.EndTime)
		return lookupErr
	})
	if err != nil {
		if _, open := err.(circuitbreaker.ErrOpen); open {
			s.metrics.PlaybackFailed("busy")
			return nil, domain.ErrBusy
		}
		s.metrics.PlaybackFailed("store_error")
		return nil, fmt.Errorf("query recording store: %w", err)
	}
	if len(segments) == 0 {
		s.metrics.PlaybackFailed("no_recording_found")
		return nil, domain.ErrNoRecordingFound
	}

	id := domain.ArtifactID(uuid.NewString())
	jobCtx, cancel := context.WithCancel(s.rootCtx)

	job := &extractionJob{
		ctx:      jobCtx,
		id:       id,
		req:      req,
		segments: segments,
		outPath:  filepath.Join(s.cfg.OutputDir, string(id)+".mp4"),
		done:     make(chan error, 1),
	}

	s.mu.Lock()
	s.registry[id] = &artifactEntry{state: artifactPending, cancel: cancel}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.metrics.ExtractionQueueDepth(len(s.jobs))
	default:
		cancel()
		s.dropEntry(id)
		s.metrics.PlaybackFailed("busy")
		return nil, domain.ErrBusy
	}

	select {
	case err := <-job.done:
		if err != nil {
			s.dropEntry(id)
			s.metrics.PlaybackFailed("extraction_failed")
			return nil, fmt.Errorf("extract playback window: %w", err)
		}
	case <-ctx.Done():
		cancel()
		s.dropEntry(id)
		return nil, ctx.Err()
	}

	now := s.now()
	artifact := &domain.PlaybackArtifact{
		ID:        id,
		CameraID:  req.CameraID,
		VideoURL:  fmt.Sprintf("%s/playback/files/%s.mp4", s.cfg.PublicBaseURL, id),
		FilePath:  job.outPath,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ArtifactTTL),
	}

	s.mu.Lock()
	entry, ok := s.registry[id]
	if !ok {
		// Deleted while we were finishing; treat as cancelled.
		s.mu.Unlock()
		_ = os.Remove(job.outPath)
		return nil, context.Canceled
	}
	entry.state = artifactReady
	entry.artifact = artifact
	entry.cancel = nil
	s.mu.Unlock()

	s.metrics.PlaybackCreated()
	s.events.ArtifactCreated(ctx, artifact)
	s.logger.Infow("playback artifact created",
		"artifact_id", id,
		"camera_id", req.CameraID,
		"window_start", req.StartTime,
		"window_end", req.EndTime,
		"expires_at", artifact.ExpiresAt,
	)

	return artifact, nil
}

func (s *playbackService) validateWindow(req domain.PlaybackRequest) error {
	now := s.now()
	switch {
	case req.StartTime.After(now) || req.EndTime.After(now):
		return fmt.Errorf("%w: window extends into the future", domain.ErrInvalidTimeWindow)
	case req.EndTime.Before(req.StartTime):
		return fmt.Errorf("%w: end before start", domain.ErrInvalidTimeWindow)
	case req.EndTime.Sub(req.StartTime) > s.cfg.MaxWindow:
		return fmt.Errorf("%w: window exceeds maximum of %s", domain.ErrInvalidTimeWindow, s.cfg.MaxWindow)
	}
	return nil
}

// Delete removes the artifact and cancels any in-flight extraction for
// it. Idempotent: deleting an unknown or already-deleted id succeeds.
func (s *playbackService) Delete(ctx context.Context, id domain.ArtifactID) error {
	s.mu.Lock()
	entry, ok := s.registry[id]
	if ok {
		delete(s.registry, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	if entry.cancel != nil {
		entry.cancel()
	}
	if entry.artifact != nil {
		if err := os.Remove(entry.artifact.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warnw("failed to remove artifact file",
				"artifact_id", id,
				"path", entry.artifact.FilePath,
				"error", err,
			)
		}
	}

	s.events.ArtifactDeleted(ctx, id)
	s.logger.Infow("playback artifact deleted", "artifact_id", id)
	return nil
}

func (s *playbackService) Get(id domain.ArtifactID) (*domain.PlaybackArtifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.registry[id]
	if !ok || entry.state != artifactReady {
		return nil, false
	}
	return entry.artifact, true
}

func (s *playbackService) dropEntry(id domain.ArtifactID) {
	s.mu.Lock()
	delete(s.registry, id)
	s.mu.Unlock()
}

func (s *playbackService) worker() {
	defer s.workerWG.Done()

	for {
		select {
		case <-s.rootCtx.Done():
			return
		case job := <-s.jobs:
			job.done <- s.runJob(job)
			s.metrics.ExtractionQueueDepth(len(s.jobs))
		}
	}
}

// runJob stages the window's segments locally and packages them into a
// single seekable clip.
func (s *playbackService) runJob(job *extractionJob) error {
	start := time.Now()

	stageDir, err := os.MkdirTemp("", "streamgate-extract-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	staged := make([]string, 0, len(job.segments))
	for i, seg := range job.segments {
		if err := job.ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(stageDir, fmt.Sprintf("segment_%04d.mp4", i))
		if err := s.stageSegment(job.ctx, seg, path); err != nil {
			return fmt.Errorf("stage segment %s: %w", seg.Key, err)
		}
		staged = append(staged, path)
	}

	if err := s.engine.PackageClip(job.ctx, staged, job.outPath); err != nil {
		_ = os.Remove(job.outPath)
		return fmt.Errorf("package clip: %w", err)
	}

	s.metrics.ExtractionDuration(time.Since(start))
	return nil
}

func (s *playbackService) stageSegment(ctx context.Context, seg domain.RecordingSegment, path string) error {
	reader, err := s.store.OpenSegment(ctx, seg)
	if err != nil {
		return err
	}
	defer reader.Close()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	return err
}

// sweepLoop removes artifacts past their expiry so files orphaned by a
// crashed or navigated-away client are still reclaimed.
func (s *playbackService) sweepLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.rootCtx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *playbackService) sweep() {
	now := s.now()

	s.mu.Lock()
	var expired []domain.ArtifactID
	for id, entry := range s.registry {
		if entry.state == artifactReady && entry.artifact.Expired(now) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.Delete(s.rootCtx, id); err != nil {
			s.logger.Warnw("sweep failed to delete artifact", "artifact_id", id, "error", err)
		}
	}

	if len(expired) > 0 {
		s.metrics.ArtifactsSwept(len(expired))
		s.logger.Infow("swept expired playback artifacts", "count", len(expired))
	}
}

func (s *playbackService) Shutdown(ctx context.Context) {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
