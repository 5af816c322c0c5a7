package rtc

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Link owns exactly one peer connection to one remote participant and
// its negotiation state. Reset is the single recovery mechanism: the
// underlying connection is torn down and rebuilt with the same target
// and callbacks, and anything still in flight against the old
// connection is discarded by the generation counter.
type Link struct {
	target string
	cfg    webrtc.Configuration
	events chan<- Event

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	gen       uint64
	pending   []webrtc.ICECandidateInit
	remoteSet bool
	attached  bool
	closed    bool
}

// NewLink creates the link and its first underlying connection.
func NewLink(target string, cfg webrtc.Configuration, events chan<- Event) (*Link, error) {
	l := &Link{target: target, cfg: cfg, events: events}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rebuild(); err != nil {
		return nil, err
	}
	return l, nil
}

// rebuild creates a fresh peer connection for the current generation.
// The caller must hold l.mu.
func (l *Link) rebuild() error {
	pc, err := webrtc.NewPeerConnection(l.cfg)
	if err != nil {
		return newError("create peer connection", l.target, err)
	}

	gen := l.gen
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		l.emit(gen, Event{Kind: EventCandidate, Target: l.target, Candidate: c.ToJSON()})
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		l.emit(gen, Event{Kind: EventTrack, Target: l.target, Track: track})
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		l.emit(gen, Event{Kind: EventStateChange, Target: l.target, State: state})
	})

	l.pc = pc
	l.pending = nil
	l.remoteSet = false
	l.attached = false
	return nil
}

// emit forwards an event unless it belongs to a superseded generation.
// A full event channel drops rather than blocking a pion callback.
func (l *Link) emit(gen uint64, ev Event) {
	l.mu.Lock()
	stale := gen != l.gen || l.closed
	l.mu.Unlock()
	if stale {
		return
	}
	select {
	case l.events <- ev:
	default:
		slog.Warn("link event dropped", "target", l.target, "kind", ev.Kind)
	}
}

// Target returns the remote participant id this link is bound to.
func (l *Link) Target() string { return l.target }

// Generation returns the current reset generation.
func (l *Link) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// SignalingState returns the underlying connection's signaling state.
func (l *Link) SignalingState() webrtc.SignalingState {
	l.mu.Lock()
	pc := l.pc
	l.mu.Unlock()
	return pc.SignalingState()
}

// ConnectionState returns the underlying connection's state.
func (l *Link) ConnectionState() webrtc.PeerConnectionState {
	l.mu.Lock()
	pc := l.pc
	l.mu.Unlock()
	return pc.ConnectionState()
}

// ICEGatheringState returns the underlying gathering state.
func (l *Link) ICEGatheringState() webrtc.ICEGatheringState {
	l.mu.Lock()
	pc := l.pc
	l.mu.Unlock()
	return pc.ICEGatheringState()
}

// AttachTracks adds one send-receive transceiver per local track, so a
// track can later be replaced without renegotiating direction. With no
// local tracks the link still negotiates receive-only audio and video.
// Tracks attach at most once per generation.
func (l *Link) AttachTracks(tracks []webrtc.TrackLocal) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	if l.attached {
		l.mu.Unlock()
		return nil
	}
	l.attached = true
	pc := l.pc
	l.mu.Unlock()

	if len(tracks) == 0 {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			_, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			})
			if err != nil {
				return newError("add transceiver", l.target, err)
			}
		}
		return nil
	}

	for _, track := range tracks {
		_, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		})
		if err != nil {
			return newError("attach track", l.target, err)
		}
	}
	return nil
}

// Offer creates an offer and immediately installs it as the local
// description, returning the installed description. Both steps run
// against the same underlying connection, so a concurrent Reset cannot
// interleave a stale description into the new connection.
func (l *Link) Offer() (*webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLinkClosed
	}
	pc := l.pc
	l.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, newError("create offer", l.target, err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, newError("set local description", l.target, err)
	}
	return pc.LocalDescription(), nil
}

// Answer applies the remote offer, creates an answer and installs it
// as the local description, returning the installed description.
func (l *Link) Answer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLinkClosed
	}
	pc := l.pc
	l.mu.Unlock()

	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, newError("set remote description", l.target, err)
	}
	l.flushCandidates(pc)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, newError("create answer", l.target, err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, newError("set local description", l.target, err)
	}
	return pc.LocalDescription(), nil
}

// SetRemoteDescription applies a remote answer and flushes any ICE
// candidates buffered while it was missing.
func (l *Link) SetRemoteDescription(desc webrtc.SessionDescription) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	pc := l.pc
	l.mu.Unlock()

	if err := pc.SetRemoteDescription(desc); err != nil {
		return newError("set remote description", l.target, err)
	}
	l.flushCandidates(pc)
	return nil
}

// flushCandidates marks the remote description as set for the given
// connection and applies the buffered candidates. Candidates buffered
// for a superseded connection are dropped.
func (l *Link) flushCandidates(pc *webrtc.PeerConnection) {
	l.mu.Lock()
	if l.pc != pc {
		l.mu.Unlock()
		return
	}
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, c := range pending {
		if err := pc.AddICECandidate(c); err != nil {
			slog.Warn("buffered candidate rejected", "target", l.target, "err", err)
		}
	}
}

// AddICECandidate applies a trickled candidate, or buffers it when no
// remote description has been applied yet. Nil candidates are ignored.
func (l *Link) AddICECandidate(candidate *webrtc.ICECandidateInit) error {
	if candidate == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	if !l.remoteSet {
		l.pending = append(l.pending, *candidate)
		l.mu.Unlock()
		return nil
	}
	pc := l.pc
	l.mu.Unlock()

	if err := pc.AddICECandidate(*candidate); err != nil {
		return newError("add ICE candidate", l.target, err)
	}
	return nil
}

// Reset discards all in-flight negotiation state: the underlying
// connection is closed and reconstructed with the same target and
// callbacks, and the generation counter invalidates late results from
// the old connection.
func (l *Link) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	if err := l.pc.Close(); err != nil {
		slog.Warn("closing stale connection", "target", l.target, "err", err)
	}
	l.gen++
	return l.rebuild()
}

// Close tears the link down permanently.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.gen++
	return l.pc.Close()
}
