package streaming

import (
	"sync"
	"time"

	"streamgate/internal/core/domain"
)

// Viewer is one attached consumer of a LiveSession. Frames preserve
// upstream arrival order; when the viewer falls behind, the oldest
// buffered frame is dropped so delivery stays ordered and current.
type Viewer struct {
	session *liveSession
	frames  chan []byte

	mu     sync.Mutex
	err    error
	closed bool
}

func (v *Viewer) Frames() <-chan []byte {
	return v.frames
}

func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// deliver pushes one frame without blocking the fan-out loop.
func (v *Viewer) deliver(frame []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}

	select {
	case v.frames <- frame:
		return
	default:
	}

	// Buffer full: drop the oldest frame to make room.
	select {
	case <-v.frames:
	default:
	}
	select {
	case v.frames <- frame:
	default:
	}
}

func (v *Viewer) close(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.err = err
	close(v.frames)
}

// liveSession is the server-held state for one upstream pull, shared by
// every viewer of the same resolved URL.
type liveSession struct {
	key      string // resolved URL
	cameraID domain.CameraID

	mu         sync.Mutex
	viewers    map[*Viewer]struct{}
	lastFrame  []byte
	refs       int
	graceTimer *time.Timer
	closed     bool

	cancelUpstream func()
}

func newLiveSession(key string, cameraID domain.CameraID) *liveSession {
	return &liveSession{
		key:      key,
		cameraID: cameraID,
		viewers:  make(map[*Viewer]struct{}),
	}
}

// attach registers a new viewer, seeding it with the most recent cached
// frame. Returns false if the session is already tearing down.
func (s *liveSession) attach(bufferSize int) (*Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}

	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}

	v := &Viewer{
		session: s,
		frames:  make(chan []byte, bufferSize),
	}
	if s.lastFrame != nil {
		v.frames <- s.lastFrame
	}

	s.viewers[v] = struct{}{}
	s.refs++
	return v, true
}

// detach removes a viewer and reports the remaining reference count.
func (s *liveSession) detach(v *Viewer) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.viewers[v]; !ok {
		return s.refs
	}
	delete(s.viewers, v)
	s.refs--

	v.close(nil)
	return s.refs
}

// broadcast caches the frame and fans it out to every attached viewer.
func (s *liveSession) broadcast(frame []byte) (viewerCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	s.lastFrame = frame
	for v := range s.viewers {
		v.deliver(frame)
	}
	return len(s.viewers)
}

// shutdown marks the session closed and releases every viewer with the
// given error (nil for a normal teardown). Returns false if already
// closed.
func (s *liveSession) shutdown(err error) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	viewers := make([]*Viewer, 0, len(s.viewers))
	for v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.viewers = make(map[*Viewer]struct{})
	s.refs = 0
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	cancel := s.cancelUpstream
	s.mu.Unlock()

	for _, v := range viewers {
		v.close(err)
	}
	if cancel != nil {
		cancel()
	}
	return true
}
