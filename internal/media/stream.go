package media

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// LocalStream is one capture stream owned by this process. All peer
// links attach transceivers to the same track objects, so Stop must
// run the per-track teardown exactly once.
type LocalStream struct {
	id     string
	tracks []webrtc.TrackLocal

	mu      sync.Mutex
	stops   []func()
	stopped bool
}

// NewLocalStream bundles local tracks into a stream. Each stop
// function tears down the generator behind one track.
func NewLocalStream(id string, tracks []webrtc.TrackLocal, stops ...func()) *LocalStream {
	return &LocalStream{id: id, tracks: tracks, stops: stops}
}

// ID returns the stream identifier.
func (s *LocalStream) ID() string { return s.id }

// Tracks returns the local tracks to attach to peer links.
func (s *LocalStream) Tracks() []webrtc.TrackLocal { return s.tracks }

// Stop ends every track generator. Calling it again is a no-op.
func (s *LocalStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for _, stop := range s.stops {
		stop()
	}
}

// RemoteStream collects the media tracks received from one remote
// participant. Each track is drained by its own goroutine until the
// stream is stopped or the underlying connection closes.
type RemoteStream struct {
	owner string

	mu      sync.Mutex
	tracks  []*webrtc.TrackRemote
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewRemoteStream creates an empty stream for the given participant id.
func NewRemoteStream(owner string) *RemoteStream {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteStream{owner: owner, ctx: ctx, cancel: cancel}
}

// Owner returns the remote participant id the stream belongs to.
func (s *RemoteStream) Owner() string { return s.owner }

// Tracks returns the remote tracks received so far.
func (s *RemoteStream) Tracks() []*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), s.tracks...)
}

// AddTrack registers a received track and starts draining its RTP
// packets. Tracks added after Stop are ignored.
func (s *RemoteStream) AddTrack(track *webrtc.TrackRemote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.tracks = append(s.tracks, track)
	go s.drain(track)
}

func (s *RemoteStream) drain(track *webrtc.TrackRemote) {
	for {
		if s.ctx.Err() != nil {
			return
		}
		if _, _, err := track.ReadRTP(); err != nil {
			slog.Debug("remote track closed", "owner", s.owner, "track", track.ID(), "err", err)
			return
		}
	}
}

// Stop halts every track drain exactly once; a second call is a no-op.
func (s *RemoteStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.cancel()
}
