package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/media"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/outcome"
)

const (
	llmTimeout       = 20 * time.Second
	synthesisTimeout = 30 * time.Second
)

const fallbackLine = "Sorry, I couldn't hear you this time. We'll try to reach you again later. Goodbye."

// Coordinator runs one conversation turn: utterance in, reply spoken out.
// At most one turn may be in flight per session; the session's playbackActive
// flag is the gate. A failed turn is skipped without retry and the call
// continues on the next utterance.
type Coordinator struct {
	llm      LLM
	tts      Synthesizer
	outcomes OutcomeSink
}

// NewCoordinator wires the conversation collaborators. outcomes may be nil.
func NewCoordinator(llm LLM, tts Synthesizer, outcomes OutcomeSink) *Coordinator {
	return &Coordinator{llm: llm, tts: tts, outcomes: outcomes}
}

// HandleUtterance drives utterance -> reply -> classification -> playback.
// If a playback is already active the utterance is dropped; it was recorded
// on the session by the manager, but no second turn starts.
func (c *Coordinator) HandleUtterance(s *Session, utterance string) {
	if !s.playbackActive.CompareAndSwap(false, true) {
		log.Printf("[%s] playback active, dropping utterance: %s", s.ID, utterance)
		return
	}
	defer s.playbackActive.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), llmTimeout)
	reply, err := c.llm.Generate(ctx, utterance, s.Lead())
	cancel()
	if err != nil {
		log.Printf("[%s] llm error, skipping turn: %v", s.ID, err)
		return
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return
	}
	log.Printf("[%s] reply: %s", s.ID, reply)

	if o := outcome.Classify(utterance, reply); o.Kind != outcome.KindNone {
		if s.setOutcomeOnce(o) {
			log.Printf("[%s] outcome detected: %s (%s)", s.ID, o.Kind, o.Detail)
			if c.outcomes != nil {
				go c.outcomes.RecordOutcome(s.CallSID(), o)
			}
		}
	}

	c.speak(s, reply)
}

// PlayGreeting speaks the fixed opener at stream start. Same exclusivity and
// audio path as a regular turn, no inference and no classification.
func (c *Coordinator) PlayGreeting(s *Session) {
	if !s.playbackActive.CompareAndSwap(false, true) {
		return
	}
	defer s.playbackActive.Store(false)

	lead := s.Lead()
	greeting := "Hi, this is Ava from the scheduling team. Do you have a quick minute to find a time that works for you?"
	if lead.Name != "" {
		greeting = fmt.Sprintf("Hi %s, this is Ava from the scheduling team. Do you have a quick minute to find a time that works for you?", lead.Name)
	}
	c.speak(s, greeting)
}

// PlayFallback speaks the apology line for calls that produced no transcript.
// Skipped entirely when the transport is already gone; playing into a closed
// transport is forbidden.
func (c *Coordinator) PlayFallback(s *Session) {
	if !s.transportOpen() {
		return
	}
	if !s.playbackActive.CompareAndSwap(false, true) {
		return
	}
	defer s.playbackActive.Store(false)
	c.speak(s, fallbackLine)
}

// speak synthesizes text and paces it over the session's bound sink. Errors
// abort playback for this turn only.
func (c *Coordinator) speak(s *Session, text string) {
	sink := s.sink()
	if sink == nil {
		log.Printf("[%s] no stream sid captured, suppressing playback", s.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	pcm, err := c.tts.Synthesize(ctx, text)
	cancel()
	if err != nil {
		log.Printf("[%s] tts error, skipping playback: %v", s.ID, err)
		return
	}
	if len(pcm) == 0 {
		return
	}

	sent, completed := media.Play(sink, pcm)
	if !completed {
		log.Printf("[%s] playback stopped early after %d frames", s.ID, sent)
	}
}
