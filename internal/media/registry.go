package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Snapshot is the full remote-stream map delivered to subscribers on
// every change. Whole-map snapshots keep the contract trivial; mesh
// rooms stay small enough that the copy cost never matters.
type Snapshot map[string]*RemoteStream

// Registry is the process-local store of the caller's own capture
// streams and the streams received from each remote participant.
type Registry struct {
	mu      sync.RWMutex
	locals  []*LocalStream
	remotes map[string]*RemoteStream
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// NewRegistry creates an empty media registry.
func NewRegistry() *Registry {
	return &Registry{
		remotes: make(map[string]*RemoteStream),
		subs:    make(map[uint64]chan Snapshot),
	}
}

// SetLocal replaces the local stream list wholesale.
func (r *Registry) SetLocal(streams ...*LocalStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locals = streams
}

// Locals returns the current local streams.
func (r *Registry) Locals() []*LocalStream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*LocalStream(nil), r.locals...)
}

// LocalTracks flattens every local stream's tracks, in order.
func (r *Registry) LocalTracks() []webrtc.TrackLocal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tracks []webrtc.TrackLocal
	for _, s := range r.locals {
		tracks = append(tracks, s.Tracks()...)
	}
	return tracks
}

// StopLocal stops every local stream and clears the list.
func (r *Registry) StopLocal() {
	r.mu.Lock()
	locals := r.locals
	r.locals = nil
	r.mu.Unlock()
	for _, s := range locals {
		s.Stop()
	}
}

// AddRemote registers the stream received from one participant and
// broadcasts a snapshot. Re-adding the same stream reference for the
// same id is a no-op.
func (r *Registry) AddRemote(id string, s *RemoteStream) {
	r.mu.Lock()
	if existing, ok := r.remotes[id]; ok && existing == s {
		r.mu.Unlock()
		return
	}
	r.remotes[id] = s
	r.mu.Unlock()
	r.notify()
}

// Remote returns the stream for a participant id, or nil.
func (r *Registry) Remote(id string) *RemoteStream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remotes[id]
}

// RemoveRemote stops the participant's stream tracks and deletes the
// entry, then broadcasts. Removing an unknown id is a no-op.
func (r *Registry) RemoveRemote(id string) {
	r.mu.Lock()
	s, ok := r.remotes[id]
	if ok {
		delete(r.remotes, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	s.Stop()
	r.notify()
}

// Subscribe registers for snapshot broadcasts. The returned cancel
// function unsubscribes and closes the channel.
func (r *Registry) Subscribe() (<-chan Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan Snapshot, 8)
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (r *Registry) notify() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(Snapshot, len(r.remotes))
	for id, s := range r.remotes {
		snapshot[id] = s
	}
	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
			// A slow subscriber misses this snapshot; the next
			// change delivers the full state again.
		}
	}
}
