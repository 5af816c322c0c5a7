package rtc

import (
	"context"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/ahmedasif11/let-meet-sub000/internal/media"
	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
)

// Sender is the outbound half of the signaling transport.
type Sender interface {
	Send(msg *protocol.Message)
}

// AcquireFunc lazily acquires the local capture stream. It is invoked
// at most when a flow needs local media and none has been registered
// yet, mirroring a callee that never asked for device permission.
type AcquireFunc func() (*media.LocalStream, error)

// Timeouts bounds the negotiation suspension points. A zero value
// disables the corresponding timeout.
type Timeouts struct {
	Offer        time.Duration
	Connection   time.Duration
	ICEGathering time.Duration
}

// Adapter translates inbound signaling messages into link registry
// operations and link events into outbound signaling messages. It is
// the only component that drives Link negotiation.
type Adapter struct {
	sender   Sender
	links    *Registry
	media    *media.Registry
	acquire  AcquireFunc
	timeouts Timeouts
	events   chan Event
}

// NewAdapter wires the adapter to a transport, a media registry and the
// shared ICE configuration used by every link.
func NewAdapter(sender Sender, mediaReg *media.Registry, acquire AcquireFunc, iceCfg webrtc.Configuration, timeouts Timeouts) *Adapter {
	a := &Adapter{
		sender:   sender,
		media:    mediaReg,
		acquire:  acquire,
		timeouts: timeouts,
		events:   make(chan Event, 64),
	}
	a.links = NewRegistry(func(target string) (*Link, error) {
		return NewLink(target, iceCfg, a.events)
	})
	return a
}

// Links exposes the link registry.
func (a *Adapter) Links() *Registry { return a.links }

// Run consumes link events until ctx is cancelled: candidates go out
// over signaling, received tracks land in the media registry, state
// changes are logged.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case ev := <-a.events:
			a.handleEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) handleEvent(ev Event) {
	switch ev.Kind {
	case EventCandidate:
		a.send(protocol.EventSendCandidate, protocol.CandidateSignal{
			Candidate: ev.Candidate,
			To:        ev.Target,
		})

	case EventTrack:
		stream := a.media.Remote(ev.Target)
		if stream == nil {
			stream = media.NewRemoteStream(ev.Target)
		}
		stream.AddTrack(ev.Track)
		a.media.AddRemote(ev.Target, stream)
		slog.Info("remote track received", "target", ev.Target, "track", ev.Track.ID())

	case EventStateChange:
		slog.Info("peer connection state", "target", ev.Target, "state", ev.State.String())
	}
}

// NewUserJoined runs the caller-side flow for a freshly admitted
// member: make sure the link is stable, attach local tracks, send an
// offer. Any failure abandons the half-made offer by resetting.
func (a *Adapter) NewUserJoined(target string) {
	link, err := a.links.Obtain(target)
	if err != nil {
		slog.Error("create peer link", "target", target, "err", err)
		return
	}
	if err := a.sendOffer(link); err != nil {
		slog.Warn("offer failed, resetting link", "target", target, "err", err)
		a.reset(link)
	}
}

func (a *Adapter) sendOffer(link *Link) error {
	// Stabilize before attaching: a reset rebuilds the connection bare,
	// and the rebuilt connection must carry the local tracks too.
	if err := a.ensureStable(link); err != nil {
		return err
	}
	if err := link.AttachTracks(a.media.LocalTracks()); err != nil {
		return err
	}

	var offer *webrtc.SessionDescription
	err := a.await(a.timeouts.Offer, "offer", link.Target(), func() error {
		var err error
		offer, err = link.Offer()
		return err
	})
	if err != nil {
		return err
	}

	a.send(protocol.EventSendOffer, protocol.OfferSignal{Offer: *offer, To: link.Target()})
	a.armTimers(link)
	return nil
}

// ReceiveOffer runs the callee-side flow: acquire media lazily if this
// side never started any, attach tracks, answer.
func (a *Adapter) ReceiveOffer(offer webrtc.SessionDescription, from string) {
	link, err := a.links.Obtain(from)
	if err != nil {
		slog.Error("create peer link", "target", from, "err", err)
		return
	}

	if len(a.media.LocalTracks()) == 0 && a.acquire != nil {
		if stream, err := a.acquire(); err != nil {
			// The participant can still join with media disabled.
			slog.Error("media acquisition failed", "err", err)
		} else {
			a.media.SetLocal(stream)
		}
	}

	if err := a.answerOffer(link, offer); err != nil {
		slog.Warn("answer failed, resetting link", "target", from, "err", err)
		a.reset(link)
	}
}

func (a *Adapter) answerOffer(link *Link, offer webrtc.SessionDescription) error {
	if err := a.ensureStable(link); err != nil {
		return err
	}
	if err := link.AttachTracks(a.media.LocalTracks()); err != nil {
		return err
	}

	var answer *webrtc.SessionDescription
	err := a.await(a.timeouts.Offer, "answer", link.Target(), func() error {
		var err error
		answer, err = link.Answer(offer)
		return err
	})
	if err != nil {
		return err
	}

	a.send(protocol.EventSendAnswer, protocol.AnswerSignal{Answer: *answer, To: link.Target()})
	a.armTimers(link)
	return nil
}

// ReceiveAnswer applies a remote answer. Late or duplicate answers for
// an unknown link are ignored.
func (a *Adapter) ReceiveAnswer(answer webrtc.SessionDescription, from string) {
	link := a.links.Get(from)
	if link == nil {
		slog.Debug("answer for unknown link ignored", "target", from)
		return
	}
	if err := link.SetRemoteDescription(answer); err != nil {
		slog.Warn("applying answer failed, resetting link", "target", from, "err", err)
		a.reset(link)
		return
	}
	slog.Info("negotiation completed", "target", from)
}

// ReceiveIceCandidate applies a trickled candidate. Candidates for an
// unknown link are ignored; application failures are logged, not fatal.
func (a *Adapter) ReceiveIceCandidate(candidate webrtc.ICECandidateInit, from string) {
	link := a.links.Get(from)
	if link == nil {
		slog.Debug("candidate for unknown link ignored", "target", from)
		return
	}
	if err := link.AddICECandidate(&candidate); err != nil {
		slog.Warn("add ICE candidate", "target", from, "err", err)
	}
}

// UserDisconnected drops a departed participant's remote stream and
// closes its link.
func (a *Adapter) UserDisconnected(target string) {
	a.media.RemoveRemote(target)
	a.links.Remove(target)
}

// EndCall closes every link before stopping local capture, so no link
// races a track attachment against the teardown of the shared tracks.
func (a *Adapter) EndCall() {
	a.links.CloseAll()
	a.media.StopLocal()
}

// ensureStable resets the link when its signaling state is anything
// but stable; a new offer or answer must start from a stable link.
func (a *Adapter) ensureStable(link *Link) error {
	if link.SignalingState() == webrtc.SignalingStateStable {
		return nil
	}
	return link.Reset()
}

func (a *Adapter) reset(link *Link) {
	if err := link.Reset(); err != nil {
		slog.Error("reset peer link", "target", link.Target(), "err", err)
	}
}

// await runs fn, failing with ErrNegotiationTimeout when it does not
// finish within d. The abandoned fn applies to a connection the caller
// resets, so its late result is discarded with that generation.
func (a *Adapter) await(d time.Duration, op, target string, fn func() error) error {
	if d <= 0 {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return newError(op, target, ErrNegotiationTimeout)
	}
}

// armTimers schedules the connection and ICE-gathering deadlines for
// the link's current generation. Expiry on a generation that was since
// reset or that reached a connected state is a no-op.
func (a *Adapter) armTimers(link *Link) {
	gen := link.Generation()

	if d := a.timeouts.Connection; d > 0 {
		time.AfterFunc(d, func() {
			if link.Generation() != gen {
				return
			}
			if link.ConnectionState() == webrtc.PeerConnectionStateConnected {
				return
			}
			slog.Warn("connection timeout, resetting link", "target", link.Target())
			a.reset(link)
		})
	}

	if d := a.timeouts.ICEGathering; d > 0 {
		time.AfterFunc(d, func() {
			if link.Generation() != gen {
				return
			}
			if link.ICEGatheringState() == webrtc.ICEGatheringStateComplete {
				return
			}
			if link.ConnectionState() == webrtc.PeerConnectionStateConnected {
				return
			}
			slog.Warn("ICE gathering timeout, resetting link", "target", link.Target())
			a.reset(link)
		})
	}
}

func (a *Adapter) send(event string, payload any) {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		slog.Error("encode signaling message", "event", event, "err", err)
		return
	}
	a.sender.Send(msg)
}
