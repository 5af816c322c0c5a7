package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
)

// Hub is the signaling relay's single authority over rooms and peers.
// All state mutation happens inside Run's goroutine; connections feed
// it through the register/unregister/inbound channels, so two admits
// racing for the same target are impossible by construction.
type Hub struct {
	// conns maps connection ids to their outbound message channels.
	// Entries live exactly as long as the websocket connection.
	conns map[string]chan *protocol.Message

	// peers maps connection ids to room-protocol state. An entry can
	// be deleted before its connection closes (rejection) and is
	// re-created on the next joining-request.
	peers map[string]*Peer

	// rooms maps room ids to active rooms.
	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	inbound    chan *inbound
}

type inbound struct {
	peerID string
	msg    *protocol.Message
}

// NewHub creates an empty hub. Call Run to start processing.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]chan *protocol.Message),
		peers:      make(map[string]*Peer),
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inbound, 64),
	}
}

// Attach hands a freshly upgraded connection to the hub.
func (h *Hub) Attach(c *Client) {
	h.register <- c
}

// Run processes hub events until ctx is cancelled. It is the only
// goroutine that touches conns, peers and rooms.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.connect(client.ID, client.Send)
			slog.Info("client registered", "id", client.ID)

		case client := <-h.unregister:
			h.disconnect(client.ID)
			close(client.Send)

		case in := <-h.inbound:
			h.dispatch(in.peerID, in.msg)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) connect(id string, send chan *protocol.Message) {
	h.conns[id] = send
}

// dispatch routes one inbound client message. Malformed or stale
// messages are logged and dropped; the hub never replies with errors.
func (h *Hub) dispatch(peerID string, msg *protocol.Message) {
	switch msg.Event {
	case protocol.EventJoiningRequest:
		var req protocol.JoiningRequest
		if err := msg.Decode(&req); err != nil {
			slog.Warn("bad joining-request payload", "peer", peerID, "err", err)
			return
		}
		h.joinRequest(peerID, req)

	case protocol.EventJoiningAccepted:
		var req protocol.AcceptRequest
		if err := msg.Decode(&req); err != nil {
			slog.Warn("bad accept payload", "peer", peerID, "err", err)
			return
		}
		h.accept(peerID, req.Participant)

	case protocol.EventJoiningRejected:
		var target string
		if err := msg.Decode(&target); err != nil {
			slog.Warn("bad reject payload", "peer", peerID, "err", err)
			return
		}
		h.reject(peerID, target)

	case protocol.EventSendOffer:
		h.relaySignal(protocol.EventReceiveOffer, peerID, msg.Payload)

	case protocol.EventSendAnswer:
		h.relaySignal(protocol.EventReceiveAnswer, peerID, msg.Payload)

	case protocol.EventSendCandidate:
		h.relaySignal(protocol.EventReceiveCandidate, peerID, msg.Payload)

	case protocol.EventMediaStatus:
		var status protocol.MediaStatus
		if err := msg.Decode(&status); err != nil {
			slog.Warn("bad media-status payload", "peer", peerID, "err", err)
			return
		}
		h.mediaStatus(peerID, status)

	default:
		slog.Warn("unknown event", "peer", peerID, "event", msg.Event)
	}
}

// joinRequest handles a joining-request. The first request for a fresh
// room id wins admin status; later requests are forwarded to the admin
// for approval. A peer id is a member of at most one room at a time:
// joining a different room leaves the current one first, and a re-join
// by a current member repeats the admission answer instead of putting
// the member back into the pending state.
func (h *Hub) joinRequest(peerID string, req protocol.JoiningRequest) {
	if _, ok := h.conns[peerID]; !ok {
		slog.Warn("joining-request from unknown connection", "peer", peerID)
		return
	}

	p := h.peers[peerID]
	if p == nil {
		p = &Peer{ID: peerID}
		h.peers[peerID] = p
	}

	if p.Connected && p.Room != req.RoomID {
		h.leaveRoom(peerID, p.Room)
		p.Connected = false
	}

	p.Participant = req.Participant
	p.Participant.ID = peerID
	p.Room = req.RoomID

	room := h.rooms[req.RoomID]
	if room == nil {
		h.rooms[req.RoomID] = &Room{AdminID: peerID, UserIDs: []string{peerID}}
		p.Connected = true
		h.sendTo(peerID, protocol.EventJoinedAsAdmin, nil)
		slog.Info("room created", "room", req.RoomID, "admin", peerID)
		return
	}

	if room.AdminID == peerID {
		h.sendTo(peerID, protocol.EventJoinedAsAdmin, nil)
		return
	}

	if room.contains(peerID) {
		h.sendTo(peerID, protocol.EventJoiningAccepted, h.rosterOf(room, peerID))
		return
	}

	p.Connected = false
	h.sendTo(room.AdminID, protocol.EventNewUserJoining, p.Participant)
	slog.Info("join forwarded to admin", "room", req.RoomID, "peer", peerID)
}

// accept admits the peer named by participant.ID into the sender's
// room. Stale or duplicate accepts (unknown peer, already connected,
// no room, dead room) are dropped. The roster sent to the new member
// is snapshotted before it is appended, so it never contains itself.
func (h *Hub) accept(adminID string, participant protocol.Participant) {
	target := h.peers[participant.ID]
	if target == nil {
		slog.Warn("accept for unknown peer", "admin", adminID, "target", participant.ID)
		return
	}
	if target.Connected {
		slog.Warn("accept for already-connected peer", "admin", adminID, "target", target.ID)
		return
	}
	if target.Room == "" {
		slog.Warn("accept for peer without a room", "admin", adminID, "target", target.ID)
		return
	}
	room := h.rooms[target.Room]
	if room == nil {
		slog.Warn("accept for dead room", "admin", adminID, "target", target.ID, "room", target.Room)
		return
	}

	roster := h.rosterOf(room, target.ID)

	h.broadcast(room, protocol.EventUserConnected, target.Participant, "")

	target.Connected = true
	room.UserIDs = append(room.UserIDs, target.ID)

	h.sendTo(target.ID, protocol.EventJoiningAccepted, roster)
	slog.Info("peer admitted", "room", target.Room, "peer", target.ID)
}

// reject notifies the target and forgets its peer record. Re-rejecting
// an already-forgotten peer only repeats the notification; removal from
// the member list is defensive, a pending peer was never added.
func (h *Hub) reject(adminID string, targetID string) {
	h.sendTo(targetID, protocol.EventJoiningRejected, nil)

	p := h.peers[targetID]
	if p == nil {
		return
	}
	if room := h.rooms[p.Room]; room != nil {
		if room.remove(targetID) {
			delete(h.rooms, p.Room)
		}
	}
	delete(h.peers, targetID)
	slog.Info("peer rejected", "admin", adminID, "peer", targetID)
}

// relaySignal forwards a negotiation payload verbatim to its "to"
// connection, stripped of "to" and annotated with "from". The relay
// performs no room-membership check on negotiation traffic.
func (h *Hub) relaySignal(event string, from string, payload json.RawMessage) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		slog.Warn("bad signal payload", "peer", from, "event", event, "err", err)
		return
	}
	var to string
	if raw, ok := fields["to"]; ok {
		if err := json.Unmarshal(raw, &to); err != nil {
			slog.Warn("bad signal target", "peer", from, "event", event, "err", err)
			return
		}
	}
	if to == "" {
		slog.Warn("signal without target", "peer", from, "event", event)
		return
	}

	delete(fields, "to")
	fromRaw, _ := json.Marshal(from)
	fields["from"] = fromRaw

	h.sendTo(to, event, fields)
}

// mediaStatus records the sender's media flags and tells the rest of
// its room.
func (h *Hub) mediaStatus(peerID string, status protocol.MediaStatus) {
	p := h.peers[peerID]
	if p == nil || p.Room == "" {
		slog.Warn("media status from peer without a room", "peer", peerID)
		return
	}
	room := h.rooms[p.Room]
	if room == nil {
		return
	}

	p.Participant.VideoEnabled = status.VideoEnabled
	p.Participant.AudioEnabled = status.AudioEnabled

	status.ID = peerID
	h.broadcast(room, protocol.EventMediaStatus, status, peerID)
}

// disconnect tears down all state for a closed connection.
func (h *Hub) disconnect(peerID string) {
	delete(h.conns, peerID)

	p := h.peers[peerID]
	if p == nil {
		return
	}
	delete(h.peers, peerID)

	h.leaveRoom(peerID, p.Room)
}

// leaveRoom removes a member from a room. The remaining members are
// told, an emptied room is deleted, and a departed admin is replaced
// by the oldest remaining member, which is notified with
// joined-as-admin.
func (h *Hub) leaveRoom(peerID, roomID string) {
	room := h.rooms[roomID]
	if room == nil {
		return
	}

	empty := room.remove(peerID)
	h.broadcast(room, protocol.EventUserDisconnected, peerID, peerID)

	if empty {
		delete(h.rooms, roomID)
		slog.Info("room deleted", "room", roomID)
		return
	}

	if room.AdminID == peerID {
		room.AdminID = room.UserIDs[0]
		h.sendTo(room.AdminID, protocol.EventJoinedAsAdmin, nil)
		slog.Info("admin re-elected", "room", roomID, "admin", room.AdminID)
	}
}

// rosterOf snapshots the connected members of a room, excluding one id.
func (h *Hub) rosterOf(room *Room, exclude string) protocol.Roster {
	roster := make(protocol.Roster, 0, len(room.UserIDs))
	for _, id := range room.UserIDs {
		if id == exclude {
			continue
		}
		if member := h.peers[id]; member != nil && member.Connected {
			roster = append(roster, member.Participant)
		}
	}
	return roster
}

// broadcast sends an event to every member of a room except exclude.
func (h *Hub) broadcast(room *Room, event string, payload any, exclude string) {
	for _, id := range room.UserIDs {
		if id == exclude {
			continue
		}
		h.sendTo(id, event, payload)
	}
}

// sendTo queues a message for one connection. A full or missing send
// buffer drops the message rather than stalling the hub.
func (h *Hub) sendTo(id string, event string, payload any) {
	send, ok := h.conns[id]
	if !ok {
		slog.Warn("send to unknown connection", "peer", id, "event", event)
		return
	}
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		slog.Error("encode message", "event", event, "err", err)
		return
	}
	select {
	case send <- msg:
	default:
		slog.Warn("send buffer full, dropping", "peer", id, "event", event)
	}
}
