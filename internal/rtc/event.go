package rtc

import "github.com/pion/webrtc/v4"

// EventKind discriminates link events.
type EventKind int

const (
	// EventCandidate reports a locally discovered ICE candidate to
	// trickle to the remote side.
	EventCandidate EventKind = iota

	// EventTrack reports a received remote media track.
	EventTrack

	// EventStateChange reports a peer connection state transition.
	EventStateChange
)

// Event is one occurrence on a peer link, emitted onto the adapter's
// event channel instead of reacting inside native callbacks. Events
// from a generation older than the link's current one are never
// emitted.
type Event struct {
	Kind   EventKind
	Target string

	// Candidate is set for EventCandidate, Track for EventTrack and
	// State for EventStateChange.
	Candidate webrtc.ICECandidateInit
	Track     *webrtc.TrackRemote
	State     webrtc.PeerConnectionState
}
