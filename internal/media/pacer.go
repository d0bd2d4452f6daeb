package media

import (
	"time"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/audio"
)

// Telephony cadence: 8kHz mono μ-law, 20ms per frame, 160 bytes per frame.
const (
	SampleRate    = 8000
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 160
)

// Sink delivers one compressed frame to the call's outbound media channel.
// Open must be checked before every send; a closed sink means the call is
// gone and remaining frames must be discarded.
type Sink interface {
	Open() bool
	SendFrame(payload []byte) error
}

// Play compands the linear buffer, splits it into FrameSize frames and sends
// them at FrameDuration cadence. Deadlines are computed from the play start
// time and the frame index so that per-send latency does not drift over long
// buffers. Returns the number of frames sent and whether the whole buffer
// was delivered.
func Play(sink Sink, pcm []int16) (int, bool) {
	if sink == nil || len(pcm) == 0 {
		return 0, len(pcm) == 0
	}
	encoded := audio.EncodeMulaw(pcm)
	total := (len(encoded) + FrameSize - 1) / FrameSize

	start := time.Now()
	for i := 0; i < total; i++ {
		deadline := start.Add(time.Duration(i) * FrameDuration)
		if wait := time.Until(deadline); wait > 0 {
			time.Sleep(wait)
		}
		if !sink.Open() {
			return i, false
		}
		lo := i * FrameSize
		hi := lo + FrameSize
		if hi > len(encoded) {
			hi = len(encoded)
		}
		if err := sink.SendFrame(encoded[lo:hi]); err != nil {
			return i, false
		}
	}
	return total, true
}

// FrameCount reports how many frames Play would emit for a linear buffer.
func FrameCount(samples int) int {
	return (samples + FrameSize - 1) / FrameSize
}
