package rtc

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/ahmedasif11/let-meet-sub000/internal/media"
	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (f *fakeSender) Send(msg *protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSender) byEvent(event string) []*protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*protocol.Message
	for _, m := range f.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func testLocalStream(t *testing.T) *media.LocalStream {
	t.Helper()
	return media.NewLocalStream("local", []webrtc.TrackLocal{testVideoTrack(t)})
}

func newTestAdapter(t *testing.T, acquire AcquireFunc) (*Adapter, *fakeSender, *media.Registry) {
	t.Helper()
	sender := &fakeSender{}
	reg := media.NewRegistry()
	adapter := NewAdapter(sender, reg, acquire, webrtc.Configuration{}, Timeouts{})
	t.Cleanup(adapter.EndCall)
	return adapter, sender, reg
}

func TestNewUserJoinedSendsOffer(t *testing.T) {
	adapter, sender, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))

	adapter.NewUserJoined("B")

	offers := sender.byEvent(protocol.EventSendOffer)
	if len(offers) != 1 {
		t.Fatalf("expected 1 send-offer, got %d", len(offers))
	}
	var sig protocol.OfferSignal
	if err := offers[0].Decode(&sig); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if sig.To != "B" {
		t.Errorf("offer addressed to %q, want B", sig.To)
	}
	if sig.Offer.Type != webrtc.SDPTypeOffer {
		t.Errorf("description type = %s, want offer", sig.Offer.Type)
	}

	link := adapter.Links().Get("B")
	if link == nil {
		t.Fatal("expected a link for B")
	}
	if got := link.SignalingState(); got != webrtc.SignalingStateHaveLocalOffer {
		t.Errorf("signaling state = %s, want have-local-offer", got)
	}
}

func TestReceiveOfferSendsAnswer(t *testing.T) {
	adapter, sender, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))

	remote := newTestLink(t, "me")
	if err := remote.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach tracks: %v", err)
	}
	offer, err := remote.Offer()
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	adapter.ReceiveOffer(*offer, "B")

	answers := sender.byEvent(protocol.EventSendAnswer)
	if len(answers) != 1 {
		t.Fatalf("expected 1 send-answer, got %d", len(answers))
	}
	var sig protocol.AnswerSignal
	if err := answers[0].Decode(&sig); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if sig.To != "B" {
		t.Errorf("answer addressed to %q, want B", sig.To)
	}

	link := adapter.Links().Get("B")
	if link == nil {
		t.Fatal("expected a link for B")
	}
	if got := link.SignalingState(); got != webrtc.SignalingStateStable {
		t.Errorf("callee signaling state = %s, want stable", got)
	}
}

func TestReceiveOfferAcquiresMediaLazily(t *testing.T) {
	acquired := 0
	adapter, _, reg := newTestAdapter(t, func() (*media.LocalStream, error) {
		acquired++
		return media.NewLocalStream("lazy", []webrtc.TrackLocal{testVideoTrack(t)}), nil
	})

	remote := newTestLink(t, "me")
	if err := remote.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach tracks: %v", err)
	}
	offer, err := remote.Offer()
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	adapter.ReceiveOffer(*offer, "B")

	if acquired != 1 {
		t.Errorf("expected lazy acquisition to run once, ran %d times", acquired)
	}
	if len(reg.LocalTracks()) == 0 {
		t.Error("expected the acquired stream to be registered")
	}
}

func TestOfferAnswerThroughAdapterEndsStable(t *testing.T) {
	adapter, sender, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))

	adapter.NewUserJoined("B")
	var offerSig protocol.OfferSignal
	if err := sender.byEvent(protocol.EventSendOffer)[0].Decode(&offerSig); err != nil {
		t.Fatalf("decode offer: %v", err)
	}

	remote := newTestLink(t, "me")
	if err := remote.AttachTracks([]webrtc.TrackLocal{testVideoTrack(t)}); err != nil {
		t.Fatalf("attach tracks: %v", err)
	}
	answer, err := remote.Answer(offerSig.Offer)
	if err != nil {
		t.Fatalf("answer offer: %v", err)
	}

	adapter.ReceiveAnswer(*answer, "B")

	if got := adapter.Links().Get("B").SignalingState(); got != webrtc.SignalingStateStable {
		t.Errorf("caller signaling state = %s, want stable", got)
	}
}

func TestOfferAfterRecoveryStillCarriesMedia(t *testing.T) {
	adapter, sender, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))

	adapter.NewUserJoined("B")
	// A second offer before any answer finds the link mid-negotiation,
	// forcing a reset onto a bare rebuilt connection.
	adapter.NewUserJoined("B")

	offers := sender.byEvent(protocol.EventSendOffer)
	if len(offers) != 2 {
		t.Fatalf("expected 2 send-offers, got %d", len(offers))
	}
	var sig protocol.OfferSignal
	if err := offers[1].Decode(&sig); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if !strings.Contains(sig.Offer.SDP, "m=video") {
		t.Error("recovery offer must still describe the local media")
	}
	if got := adapter.Links().Get("B").SignalingState(); got != webrtc.SignalingStateHaveLocalOffer {
		t.Errorf("signaling state = %s, want have-local-offer", got)
	}
}

func TestReceiveAnswerForUnknownLinkIsIgnored(t *testing.T) {
	adapter, sender, _ := newTestAdapter(t, nil)

	adapter.ReceiveAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}, "ghost")

	if adapter.Links().Len() != 0 {
		t.Error("a late answer must not create a link")
	}
	if len(sender.byEvent(protocol.EventSendOffer)) != 0 {
		t.Error("a late answer must not trigger outbound signaling")
	}
}

func TestReceiveCandidateForUnknownLinkIsIgnored(t *testing.T) {
	adapter, _, _ := newTestAdapter(t, nil)

	adapter.ReceiveIceCandidate(webrtc.ICECandidateInit{Candidate: "candidate:1"}, "ghost")

	if adapter.Links().Len() != 0 {
		t.Error("a late candidate must not create a link")
	}
}

func TestUserDisconnectedRemovesLinkAndStream(t *testing.T) {
	adapter, _, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))

	adapter.NewUserJoined("B")
	reg.AddRemote("B", media.NewRemoteStream("B"))

	adapter.UserDisconnected("B")

	if adapter.Links().Len() != 0 {
		t.Error("expected the departed peer's link to be removed")
	}
	if reg.Remote("B") != nil {
		t.Error("expected the departed peer's stream to be removed")
	}
}

func TestEndCallClosesLinksAndStopsLocalMedia(t *testing.T) {
	adapter, _, reg := newTestAdapter(t, nil)
	reg.SetLocal(testLocalStream(t))
	adapter.NewUserJoined("B")

	adapter.EndCall()

	if adapter.Links().Len() != 0 {
		t.Error("expected all links to be closed")
	}
	if len(reg.Locals()) != 0 {
		t.Error("expected local streams to be stopped and cleared")
	}
}

func TestAwaitTimesOut(t *testing.T) {
	adapter, _, _ := newTestAdapter(t, nil)

	block := make(chan struct{})
	defer close(block)
	err := adapter.await(5*time.Millisecond, "offer", "B", func() error {
		<-block
		return nil
	})

	if !errors.Is(err, ErrNegotiationTimeout) {
		t.Errorf("await = %v, want ErrNegotiationTimeout", err)
	}
}
