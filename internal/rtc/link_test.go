package rtc

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func newTestLink(t *testing.T, target string) *Link {
	t.Helper()
	events := make(chan Event, 64)
	link, err := NewLink(target, webrtc.Configuration{}, events)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	t.Cleanup(func() { link.Close() })
	return link
}

func testVideoTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "test-stream",
	)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	return track
}

func TestOfferAnswerRoundTripEndsStable(t *testing.T) {
	caller := newTestLink(t, "B")
	callee := newTestLink(t, "A")

	if err := caller.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach caller tracks: %v", err)
	}
	if err := callee.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach callee tracks: %v", err)
	}

	offer, err := caller.Offer()
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	answer, err := callee.Answer(*offer)
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if err := caller.SetRemoteDescription(*answer); err != nil {
		t.Fatalf("apply answer: %v", err)
	}

	if got := caller.SignalingState(); got != webrtc.SignalingStateStable {
		t.Errorf("caller signaling state = %s, want stable", got)
	}
	if got := callee.SignalingState(); got != webrtc.SignalingStateStable {
		t.Errorf("callee signaling state = %s, want stable", got)
	}
}

func TestOfferLeavesStableUntilReset(t *testing.T) {
	link := newTestLink(t, "B")
	if err := link.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach tracks: %v", err)
	}

	if _, err := link.Offer(); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if got := link.SignalingState(); got != webrtc.SignalingStateHaveLocalOffer {
		t.Fatalf("signaling state = %s, want have-local-offer", got)
	}

	if err := link.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := link.SignalingState(); got != webrtc.SignalingStateStable {
		t.Errorf("signaling state after reset = %s, want stable", got)
	}
}

func TestResetBumpsGenerationAndSilencesOldEvents(t *testing.T) {
	events := make(chan Event, 64)
	link, err := NewLink("B", webrtc.Configuration{}, events)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	defer link.Close()

	gen := link.Generation()
	if err := link.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if link.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", link.Generation(), gen+1)
	}

	// An event from the superseded generation must be discarded.
	link.emit(gen, Event{Kind: EventStateChange, Target: "B"})
	select {
	case ev := <-events:
		t.Fatalf("stale event leaked through: %+v", ev)
	default:
	}

	// Events from the current generation still flow.
	link.emit(link.Generation(), Event{Kind: EventStateChange, Target: "B"})
	select {
	case <-events:
	default:
		t.Fatal("current-generation event was dropped")
	}
}

func TestEarlyCandidatesAreBufferedUntilRemoteDescription(t *testing.T) {
	caller := newTestLink(t, "B")
	callee := newTestLink(t, "A")
	if err := caller.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach caller tracks: %v", err)
	}
	if err := callee.AttachTracks(nil); err != nil {
		t.Fatalf("attach callee transceivers: %v", err)
	}

	// A candidate arriving before any remote description must be held,
	// not applied and not rejected.
	candidate := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 54321 typ host"}
	if err := callee.AddICECandidate(&candidate); err != nil {
		t.Fatalf("early candidate rejected: %v", err)
	}
	callee.mu.Lock()
	buffered := len(callee.pending)
	callee.mu.Unlock()
	if buffered != 1 {
		t.Fatalf("expected 1 buffered candidate, got %d", buffered)
	}

	offer, err := caller.Offer()
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := callee.Answer(*offer); err != nil {
		t.Fatalf("create answer: %v", err)
	}

	callee.mu.Lock()
	buffered = len(callee.pending)
	remoteSet := callee.remoteSet
	callee.mu.Unlock()
	if buffered != 0 {
		t.Errorf("expected the buffer to be flushed, still holds %d", buffered)
	}
	if !remoteSet {
		t.Error("expected the remote description to be marked set")
	}

	// Later candidates apply directly.
	if err := callee.AddICECandidate(&candidate); err != nil {
		t.Errorf("late candidate rejected: %v", err)
	}
}

func TestNilCandidateIsIgnored(t *testing.T) {
	link := newTestLink(t, "B")
	if err := link.AddICECandidate(nil); err != nil {
		t.Errorf("nil candidate must be a no-op, got %v", err)
	}
}

func TestClosedLinkRefusesOperations(t *testing.T) {
	link := newTestLink(t, "B")
	if err := link.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := link.Offer(); err != ErrLinkClosed {
		t.Errorf("Offer on closed link = %v, want ErrLinkClosed", err)
	}
	if err := link.Reset(); err != ErrLinkClosed {
		t.Errorf("Reset on closed link = %v, want ErrLinkClosed", err)
	}
	if err := link.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
