package relay

import "github.com/ahmedasif11/let-meet-sub000/internal/protocol"

// Peer is the hub's record of one signaling connection's room state.
// It is created on the first joining-request from a connection (or
// re-created after a rejection) and destroyed when the connection
// closes or the admin rejects it.
type Peer struct {
	ID string

	// Room is the id of the room the peer has requested or joined.
	Room string

	// Connected is true once the peer has been admitted into the
	// room's active set.
	Connected bool

	// Participant is the display info announced by the client,
	// with the ID overwritten by the relay's connection id.
	Participant protocol.Participant
}
