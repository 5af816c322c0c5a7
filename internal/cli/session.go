package cli

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahmedasif11/let-meet-sub000/internal/media"
	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
	"github.com/ahmedasif11/let-meet-sub000/internal/rtc"
	"github.com/ahmedasif11/let-meet-sub000/internal/signaling"
)

var (
	ErrRejected       = errors.New("join request rejected by the room admin")
	ErrConnectionLost = errors.New("signaling connection lost")
)

// SessionOptions configures one call session.
type SessionOptions struct {
	Transport    signaling.Transport
	Adapter      *rtc.Adapter
	Media        *media.Registry
	RoomID       string
	Name         string
	Avatar       string
	VideoEnabled bool
	AudioEnabled bool
}

// Session runs one call from join request to hang-up: it drives the
// admission handshake over the transport and hands every negotiation
// message to the adapter. As admin it auto-approves join requests.
type Session struct {
	transport signaling.Transport
	adapter   *rtc.Adapter
	media     *media.Registry

	roomID string
	self   protocol.Participant

	mu      sync.Mutex
	isAdmin bool
	roster  map[string]protocol.Participant
}

// NewSession creates a session; Run starts it.
func NewSession(opts SessionOptions) *Session {
	return &Session{
		transport: opts.Transport,
		adapter:   opts.Adapter,
		media:     opts.Media,
		roomID:    opts.RoomID,
		self: protocol.Participant{
			Name:         opts.Name,
			Avatar:       opts.Avatar,
			VideoEnabled: opts.VideoEnabled,
			AudioEnabled: opts.AudioEnabled,
		},
		roster: make(map[string]protocol.Participant),
	}
}

// Run joins the room and processes signaling until ctx is cancelled,
// the admin rejects the join, or the connection drops. Links are
// closed before local capture stops.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.adapter.EndCall()
		s.transport.Close()
	}()

	s.mu.Lock()
	self := s.self
	s.mu.Unlock()
	s.send(protocol.EventJoiningRequest, protocol.JoiningRequest{
		Participant: self,
		RoomID:      s.roomID,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.adapter.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return s.dispatch(ctx)
	})
	return g.Wait()
}

func (s *Session) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-s.transport.Incoming():
			if !ok {
				return ErrConnectionLost
			}
			if err := s.handle(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handle(msg *protocol.Message) error {
	switch msg.Event {
	case protocol.EventJoinedAsAdmin:
		s.mu.Lock()
		s.isAdmin = true
		s.mu.Unlock()
		slog.Info("joined as admin", "room", s.roomID)
		s.announceMediaStatus()

	case protocol.EventNewUserJoining:
		var p protocol.Participant
		if err := msg.Decode(&p); err != nil {
			slog.Warn("bad join notification", "err", err)
			return nil
		}
		// Headless client: approve everyone who asks.
		slog.Info("approving join request", "peer", p.ID, "name", p.Name)
		s.send(protocol.EventJoiningAccepted, protocol.AcceptRequest{Participant: p})

	case protocol.EventJoiningAccepted:
		var roster protocol.Roster
		if err := msg.Decode(&roster); err != nil {
			slog.Warn("bad roster payload", "err", err)
			return nil
		}
		s.mu.Lock()
		for _, p := range roster {
			s.roster[p.ID] = p
		}
		s.mu.Unlock()
		slog.Info("admitted to room", "room", s.roomID, "members", len(roster))
		s.announceMediaStatus()

	case protocol.EventUserConnected:
		var p protocol.Participant
		if err := msg.Decode(&p); err != nil {
			slog.Warn("bad participant payload", "err", err)
			return nil
		}
		s.mu.Lock()
		s.roster[p.ID] = p
		s.mu.Unlock()
		slog.Info("participant connected", "peer", p.ID, "name", p.Name, "members", len(s.Roster()))
		s.adapter.NewUserJoined(p.ID)

	case protocol.EventJoiningRejected:
		return ErrRejected

	case protocol.EventReceiveOffer:
		var sig protocol.OfferSignal
		if err := msg.Decode(&sig); err != nil {
			slog.Warn("bad offer payload", "err", err)
			return nil
		}
		s.adapter.ReceiveOffer(sig.Offer, sig.From)

	case protocol.EventReceiveAnswer:
		var sig protocol.AnswerSignal
		if err := msg.Decode(&sig); err != nil {
			slog.Warn("bad answer payload", "err", err)
			return nil
		}
		s.adapter.ReceiveAnswer(sig.Answer, sig.From)

	case protocol.EventReceiveCandidate:
		var sig protocol.CandidateSignal
		if err := msg.Decode(&sig); err != nil {
			slog.Warn("bad candidate payload", "err", err)
			return nil
		}
		s.adapter.ReceiveIceCandidate(sig.Candidate, sig.From)

	case protocol.EventMediaStatus:
		var status protocol.MediaStatus
		if err := msg.Decode(&status); err != nil {
			slog.Warn("bad media status payload", "err", err)
			return nil
		}
		s.mu.Lock()
		if p, ok := s.roster[status.ID]; ok {
			p.VideoEnabled = status.VideoEnabled
			p.AudioEnabled = status.AudioEnabled
			s.roster[status.ID] = p
		}
		s.mu.Unlock()
		slog.Info("media status changed", "peer", status.ID,
			"video", status.VideoEnabled, "audio", status.AudioEnabled)

	case protocol.EventUserDisconnected:
		var id string
		if err := msg.Decode(&id); err != nil {
			slog.Warn("bad disconnect payload", "err", err)
			return nil
		}
		s.mu.Lock()
		delete(s.roster, id)
		s.mu.Unlock()
		slog.Info("participant disconnected", "peer", id, "members", len(s.Roster()))
		s.adapter.UserDisconnected(id)

	default:
		slog.Debug("unhandled event", "event", msg.Event)
	}
	return nil
}

// SetMediaStatus flips the local media flags and tells the room.
func (s *Session) SetMediaStatus(videoEnabled, audioEnabled bool) {
	s.mu.Lock()
	s.self.VideoEnabled = videoEnabled
	s.self.AudioEnabled = audioEnabled
	s.mu.Unlock()
	s.announceMediaStatus()
}

// Roster returns a copy of the known participants.
func (s *Session) Roster() []protocol.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := make([]protocol.Participant, 0, len(s.roster))
	for _, p := range s.roster {
		roster = append(roster, p)
	}
	return roster
}

func (s *Session) announceMediaStatus() {
	s.mu.Lock()
	status := protocol.MediaStatus{
		VideoEnabled: s.self.VideoEnabled,
		AudioEnabled: s.self.AudioEnabled,
	}
	s.mu.Unlock()
	s.send(protocol.EventMediaStatus, status)
}

func (s *Session) send(event string, payload any) {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		slog.Error("encode signaling message", "event", event, "err", err)
		return
	}
	s.transport.Send(msg)
}
