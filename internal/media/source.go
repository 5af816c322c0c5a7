package media

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	videoFrameInterval = time.Second / 15
	audioFrameInterval = 20 * time.Millisecond
)

// NewSyntheticSource builds a local stream backed by generated sample
// tracks instead of OS capture devices: a blank VP8 video track and a
// silent Opus audio track, gated by the enabled flags. Requesting a
// source with both flags off fails the same way a denied device
// permission would.
func NewSyntheticSource(videoEnabled, audioEnabled bool) (*LocalStream, error) {
	if !videoEnabled && !audioEnabled {
		return nil, fmt.Errorf("acquire media: no capture kind enabled")
	}

	streamID := uuid.NewString()
	var tracks []webrtc.TrackLocal
	var stops []func()

	if videoEnabled {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", streamID,
		)
		if err != nil {
			return nil, fmt.Errorf("acquire media: %w", err)
		}
		tracks = append(tracks, track)
		stops = append(stops, startGenerator(track, videoFrameInterval, blankVideoFrame()))
	}

	if audioEnabled {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", streamID,
		)
		if err != nil {
			return nil, fmt.Errorf("acquire media: %w", err)
		}
		tracks = append(tracks, track)
		stops = append(stops, startGenerator(track, audioFrameInterval, silentOpusFrame()))
	}

	return NewLocalStream(streamID, tracks, stops...), nil
}

// startGenerator feeds the track one payload per interval until the
// returned stop function is called.
func startGenerator(track *webrtc.TrackLocalStaticSample, interval time.Duration, payload []byte) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				sample := pionmedia.Sample{Data: payload, Duration: interval}
				if err := track.WriteSample(sample); err != nil {
					return
				}
			}
		}
	}()

	return func() { close(done) }
}

// blankVideoFrame returns a minimal VP8 keyframe-shaped payload. The
// receiving side only needs a decodable-looking bitstream to keep its
// tile alive; real capture replaces this in browser clients.
func blankVideoFrame() []byte {
	return []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a, 0x01, 0x00, 0x01, 0x00}
}

// silentOpusFrame returns one DTX silence frame.
func silentOpusFrame() []byte {
	return []byte{0xf8, 0xff, 0xfe}
}
