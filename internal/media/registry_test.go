package media

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func testTrack(t *testing.T) webrtc.TrackLocal {
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

func TestAddRemoteIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	sub, cancel := reg.Subscribe()
	defer cancel()

	stream := NewRemoteStream("B")
	reg.AddRemote("B", stream)

	select {
	case snapshot := <-sub:
		if len(snapshot) != 1 || snapshot["B"] != stream {
			t.Errorf("unexpected snapshot: %v", snapshot)
		}
	default:
		t.Fatal("expected a snapshot broadcast after AddRemote")
	}

	// Re-adding the same reference is a no-op: no broadcast.
	reg.AddRemote("B", stream)
	select {
	case <-sub:
		t.Error("idempotent re-add must not broadcast")
	default:
	}

	// A different stream for the same id replaces it and broadcasts.
	replacement := NewRemoteStream("B")
	reg.AddRemote("B", replacement)
	select {
	case snapshot := <-sub:
		if snapshot["B"] != replacement {
			t.Error("expected the replacement stream in the snapshot")
		}
	default:
		t.Error("expected a broadcast after replacement")
	}
}

func TestRemoveRemoteStopsTracksOnce(t *testing.T) {
	reg := NewRegistry()
	stream := NewRemoteStream("B")
	reg.AddRemote("B", stream)

	reg.RemoveRemote("B")
	if reg.Remote("B") != nil {
		t.Error("expected the stream to be deleted")
	}
	if stream.ctx.Err() == nil {
		t.Error("expected the stream drains to be cancelled")
	}

	// A second removal is a no-op.
	reg.RemoveRemote("B")

	// Stopping an already-stopped stream is a no-op too.
	stream.Stop()
}

func TestSubscribersReceiveFullSnapshots(t *testing.T) {
	reg := NewRegistry()
	sub, cancel := reg.Subscribe()
	defer cancel()

	reg.AddRemote("B", NewRemoteStream("B"))
	<-sub
	reg.AddRemote("C", NewRemoteStream("C"))

	snapshot := <-sub
	if len(snapshot) != 2 {
		t.Errorf("expected the entire map on every change, got %d entries", len(snapshot))
	}

	reg.RemoveRemote("B")
	snapshot = <-sub
	if len(snapshot) != 1 || snapshot["C"] == nil {
		t.Errorf("unexpected snapshot after removal: %v", snapshot)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	reg := NewRegistry()
	sub, cancel := reg.Subscribe()

	cancel()
	if _, ok := <-sub; ok {
		t.Error("expected the subscription channel to be closed")
	}

	// Cancelling twice must not panic.
	cancel()

	// Broadcasting after unsubscribe must not panic either.
	reg.AddRemote("B", NewRemoteStream("B"))
}

func TestLocalStreamStopsOnce(t *testing.T) {
	stops := 0
	stream := NewLocalStream("local", []webrtc.TrackLocal{testTrack(t)}, func() { stops++ })

	stream.Stop()
	stream.Stop()

	if stops != 1 {
		t.Errorf("expected the stop hook to run once, ran %d times", stops)
	}
}

func TestStopLocalClearsList(t *testing.T) {
	reg := NewRegistry()
	stops := 0
	reg.SetLocal(NewLocalStream("local", []webrtc.TrackLocal{testTrack(t)}, func() { stops++ }))

	if len(reg.LocalTracks()) != 1 {
		t.Fatalf("expected 1 local track, got %d", len(reg.LocalTracks()))
	}

	reg.StopLocal()
	if stops != 1 {
		t.Errorf("expected the stream to be stopped, stop hook ran %d times", stops)
	}
	if len(reg.Locals()) != 0 {
		t.Error("expected the local list to be cleared")
	}
}

func TestRemoteStreamIgnoresTracksAfterStop(t *testing.T) {
	stream := NewRemoteStream("B")
	stream.Stop()
	stream.AddTrack(nil)
	if len(stream.Tracks()) != 0 {
		t.Error("tracks added after Stop must be ignored")
	}
}
