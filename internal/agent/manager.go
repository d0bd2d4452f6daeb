package agent

import (
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/audio"
)

// Manager owns the live-session table and the per-call state machine.
// Protocol events for one call arrive from a single transport read loop, so
// sessions see their events in arrival order; the table itself is the only
// state shared across calls and is guarded by one mutex.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	coord         *Coordinator
	newRecognizer func() Recognizer
}

// NewManager builds a session manager. newRecognizer is invoked once per
// stream start to open a fresh recognition channel.
func NewManager(coord *Coordinator, newRecognizer func() Recognizer) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		coord:         coord,
		newRecognizer: newRecognizer,
	}
}

// Accept registers a new media connection and returns its session handle.
func (m *Manager) Accept(t Transport) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		phase:     PhaseConnecting,
		transport: t,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	log.Printf("[%s] media connection accepted", s.ID)
	return s
}

// Start handles the protocol start event: capture SIDs and lead parameters,
// open the recognition channel and kick off the greeting turn.
func (m *Manager) Start(s *Session, streamSID, callSID string, params map[string]string) {
	s.mu.Lock()
	if s.phase != PhaseConnecting {
		s.mu.Unlock()
		log.Printf("[%s] ignoring start event in phase %d", s.ID, s.phase)
		return
	}
	s.phase = PhaseStreaming
	s.streamSID = streamSID
	s.callSID = callSID
	s.lead = Lead{Name: params["lead_name"], Number: params["lead_number"]}
	s.mu.Unlock()
	log.Printf("[%s] stream started: streamSid=%s callSid=%s lead=%q", s.ID, streamSID, callSID, params["lead_name"])

	rec := m.newRecognizer()
	if err := rec.Connect(); err != nil {
		log.Printf("[%s] recognizer connect failed, inbound audio will be dropped: %v", s.ID, err)
	} else {
		s.mu.Lock()
		s.rec = rec
		s.mu.Unlock()
		go m.listenFinals(s, rec)
	}

	go m.coord.PlayGreeting(s)
}

// Media handles one inbound compressed chunk: decode and forward to the
// recognition channel, dropping (never buffering) when it is unavailable.
func (m *Manager) Media(s *Session, payload []byte) {
	s.mu.Lock()
	if s.phase != PhaseStreaming {
		s.mu.Unlock()
		return
	}
	rec := s.rec
	logged := s.dropLogged
	if rec == nil && !logged {
		s.dropLogged = true
	}
	s.mu.Unlock()

	if rec == nil {
		if !logged {
			log.Printf("[%s] recognition channel unavailable, dropping media frames", s.ID)
		}
		return
	}
	pcm := audio.DecodeMulaw(payload)
	if err := rec.SendPCM(pcm); err != nil {
		log.Printf("[%s] recognizer send error: %v", s.ID, err)
	}
}

// Stop handles the protocol stop event or transport close: run the
// silence fallback, close the recognition channel and release the session.
func (m *Manager) Stop(s *Session) {
	s.mu.Lock()
	if s.phase == PhaseStopped {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseStopped
	rec := s.rec
	s.rec = nil
	s.mu.Unlock()

	if s.TranscriptCount() == 0 {
		m.coord.PlayFallback(s)
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Printf("[%s] recognizer close error: %v", s.ID, err)
		}
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	log.Printf("[%s] session released, outcome=%s", s.ID, s.Outcome().Kind)
}

// Unknown logs any protocol event the manager does not understand.
func (m *Manager) Unknown(s *Session, event string) {
	log.Printf("[%s] ignoring unknown protocol event %q", s.ID, event)
}

// Live reports the number of active sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// listenFinals acts on finalized transcripts in the order the recognizer
// emits them. Each non-empty final is recorded; the coordinator decides
// whether to act on it (it drops finals that land mid-playback).
func (m *Manager) listenFinals(s *Session, rec Recognizer) {
	for text := range rec.Finals() {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			// recognizer reporting silence, nothing to do
			continue
		}
		log.Printf("[%s] heard: %s", s.ID, trimmed)
		s.recordTranscript(trimmed)
		go m.coord.HandleUtterance(s, trimmed)
	}
}
