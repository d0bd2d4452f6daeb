package agent

import (
	"sync"
	"sync/atomic"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/media"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/outcome"
)

// Phase is the lifecycle of one call's media stream.
type Phase int32

const (
	PhaseConnecting Phase = iota
	PhaseStreaming
	PhaseStopped
)

// Session holds the state of one active call. It is owned by the Manager;
// the coordinator only touches it through the handle it is given. The
// playbackActive flag and the detected outcome are atomics because they are
// the only fields read or written outside the session's own event order.
type Session struct {
	ID string

	mu          sync.Mutex
	phase       Phase
	callSID     string
	streamSID   string
	lead        Lead
	transcripts []string
	rec         Recognizer
	dropLogged  bool

	transport      Transport
	playbackActive atomic.Bool
	detected       atomic.Pointer[outcome.Outcome]
}

// CallSID returns the Twilio call SID, empty until the start event.
func (s *Session) CallSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSID
}

// StreamSID returns the media stream SID, empty until the start event.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// Lead returns the lead metadata passed through the stream parameters.
func (s *Session) Lead() Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Outcome returns the detected outcome, or the none outcome if the call has
// not been classified yet. Safe for concurrent readers.
func (s *Session) Outcome() outcome.Outcome {
	if o := s.detected.Load(); o != nil {
		return *o
	}
	return outcome.None
}

// setOutcomeOnce stores o if no outcome was detected before. The first
// classification wins for the lifetime of the session.
func (s *Session) setOutcomeOnce(o outcome.Outcome) bool {
	return s.detected.CompareAndSwap(nil, &o)
}

func (s *Session) recordTranscript(text string) {
	s.mu.Lock()
	s.transcripts = append(s.transcripts, text)
	s.mu.Unlock()
}

// TranscriptCount reports how many non-empty finalized transcripts the call
// accumulated.
func (s *Session) TranscriptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcripts)
}

// Transcripts returns a copy of the finalized transcript list.
func (s *Session) Transcripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

// sink binds the transport to the session's stream SID. Returns nil while no
// stream SID is known: frames without one must never be sent.
func (s *Session) sink() media.Sink {
	s.mu.Lock()
	sid := s.streamSID
	s.mu.Unlock()
	if sid == "" || s.transport == nil {
		return nil
	}
	return &boundSink{transport: s.transport, streamSID: sid}
}

func (s *Session) transportOpen() bool {
	return s.transport != nil && s.transport.Open()
}

type boundSink struct {
	transport Transport
	streamSID string
}

func (b *boundSink) Open() bool { return b.transport.Open() }

func (b *boundSink) SendFrame(payload []byte) error {
	return b.transport.SendFrame(b.streamSID, payload)
}
