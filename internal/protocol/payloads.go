package protocol

import "github.com/pion/webrtc/v4"

// Participant describes one call member as it appears on the wire.
// The ID is the relay-assigned connection id; clients learn the ids of
// other members from admission broadcasts, never their own.
type Participant struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	VideoEnabled  bool   `json:"videoEnabled"`
	AudioEnabled  bool   `json:"audioEnabled"`
	ScreenSharing bool   `json:"screenSharing,omitempty"`
}

// JoiningRequest is the C2S payload of EventJoiningRequest.
type JoiningRequest struct {
	Participant Participant `json:"participant"`
	RoomID      string      `json:"roomId"`
}

// AcceptRequest is the C2S payload of EventJoiningAccepted, sent by the
// room admin. The S2C payload of the same event is a Roster.
type AcceptRequest struct {
	Participant Participant `json:"participant"`
}

// Roster is the S2C payload of EventJoiningAccepted delivered to a newly
// admitted member: a snapshot of every already-connected participant,
// never including the new member itself.
type Roster []Participant

// OfferSignal carries a session description offer. "to" is set by the
// sending client and stripped by the relay, which annotates "from".
type OfferSignal struct {
	Offer webrtc.SessionDescription `json:"offer"`
	To    string                    `json:"to,omitempty"`
	From  string                    `json:"from,omitempty"`
}

// AnswerSignal carries a session description answer.
type AnswerSignal struct {
	Answer webrtc.SessionDescription `json:"answer"`
	To     string                    `json:"to,omitempty"`
	From   string                    `json:"from,omitempty"`
}

// CandidateSignal carries one trickled ICE candidate.
type CandidateSignal struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	To        string                  `json:"to,omitempty"`
	From      string                  `json:"from,omitempty"`
}

// MediaStatus is the payload of EventMediaStatus. C2S the ID is empty
// (the relay knows the sender); S2C it carries the originator's id.
type MediaStatus struct {
	ID           string `json:"id,omitempty"`
	VideoEnabled bool   `json:"videoEnabled"`
	AudioEnabled bool   `json:"audioEnabled"`
}
