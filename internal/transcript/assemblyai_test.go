package transcript

import (
	"testing"
	"time"
)

func TestConnect_EmptyKey(t *testing.T) {
	s := NewAssemblyAIService("")
	if err := s.Connect(); err == nil {
		t.Fatalf("expected error with empty api key")
	}
}

func TestSendPCM_NotConnected(t *testing.T) {
	s := NewAssemblyAIService("key")
	if err := s.SendPCM([]int16{0, 1, 2}); err == nil {
		t.Fatalf("expected error before Connect")
	}
}

func TestProcessMessage_EndOfTurnEmitsFinal(t *testing.T) {
	s := NewAssemblyAIService("key")
	s.processMessage([]byte(`{"type":"Turn","transcript":"tuesday works","end_of_turn":true}`))
	select {
	case got := <-s.Finals():
		if got != "tuesday works" {
			t.Fatalf("unexpected final: %q", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected a finalized utterance")
	}
}

func TestProcessMessage_PartialTurnIgnored(t *testing.T) {
	s := NewAssemblyAIService("key")
	s.processMessage([]byte(`{"type":"Turn","transcript":"tues","end_of_turn":false}`))
	select {
	case got := <-s.Finals():
		t.Fatalf("partial turn must not finalize, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProcessMessage_EmptyFinalForwarded(t *testing.T) {
	// silence-triggered empty finals are normal recognizer output, not errors
	s := NewAssemblyAIService("key")
	s.processMessage([]byte(`{"type":"Turn","transcript":"","end_of_turn":true}`))
	select {
	case got := <-s.Finals():
		if got != "" {
			t.Fatalf("expected empty final, got %q", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected the empty final to be forwarded")
	}
}

func TestProcessMessage_GarbageIgnored(t *testing.T) {
	s := NewAssemblyAIService("key")
	s.processMessage([]byte(`not-json`))
	s.processMessage([]byte(`{"no_type":true}`))
	s.processMessage([]byte(`{"type":"SomethingNew"}`))
	select {
	case got := <-s.Finals():
		t.Fatalf("garbage must not produce finals, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}
