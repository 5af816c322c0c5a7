package rtc

import "github.com/pion/webrtc/v4"

// ICEConfiguration builds the peer connection configuration from the
// static STUN/TURN lists. Every link in the mesh receives an identical
// configuration; the bundle and RTCP-mux policies match what browser
// participants negotiate.
func ICEConfiguration(stunServers, turnServers []string, turnUser, turnPass string) webrtc.Configuration {
	iceServers := []webrtc.ICEServer{{URLs: stunServers}}
	if len(turnServers) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   turnUser,
			Credential: turnPass,
		})
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy:      webrtc.RTCPMuxPolicyRequire,
	}
}
