package protocol

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages. The payload shape
// depends on the event name.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event name constants. The same names are used on the wire in both
// directions, except for the negotiation events which flip from
// "send-*" (C2S) to "receive-*" (S2C) when relayed.
const (
	EventJoiningRequest  = "joining-request"
	EventJoinedAsAdmin   = "joined-as-admin"
	EventNewUserJoining  = "new-user-joining-room"
	EventJoiningAccepted = "joining-request-accepted"
	EventUserConnected   = "user-accepted-and-connected"
	EventJoiningRejected = "joining-request-rejected"

	EventSendOffer        = "send-offer"
	EventReceiveOffer     = "receive-offer"
	EventSendAnswer       = "send-answer"
	EventReceiveAnswer    = "receive-answer"
	EventSendCandidate    = "send-ice-candidate"
	EventReceiveCandidate = "receive-ice-candidate"

	EventMediaStatus      = "media-status-change"
	EventUserDisconnected = "user-disconnected"
)

// NewMessage builds a message with the given event and JSON-encoded payload.
func NewMessage(event string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Event: event, Payload: raw}, nil
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
