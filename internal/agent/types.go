package agent

import (
	"context"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/outcome"
)

// Lead is the caller metadata attached to an outbound call.
type Lead struct {
	Name   string
	Number string
}

// Recognizer is the minimal interface for realtime STT. It accepts 8kHz
// linear PCM and emits finalized utterances on Finals. An empty final means
// the recognizer saw only silence; that is normal, not an error.
type Recognizer interface {
	Connect() error
	SendPCM(pcm []int16) error
	Finals() <-chan string
	Close() error
}

// LLM generates a single reply for an utterance and the lead it came from.
type LLM interface {
	Generate(ctx context.Context, utterance string, lead Lead) (string, error)
}

// Synthesizer renders text to 8kHz linear PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]int16, error)
}

// OutcomeSink receives the detected outcome for a call. Fire-and-forget;
// implementations must not block the turn.
type OutcomeSink interface {
	RecordOutcome(callSID string, o outcome.Outcome)
}

// Transport is the outbound half of a call's media channel. Every frame must
// carry the stream SID Twilio assigned on the start event; sending without
// one is a protocol violation, so sessions without a stream SID never send.
type Transport interface {
	Open() bool
	SendFrame(streamSID string, payload []byte) error
}
