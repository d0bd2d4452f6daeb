package calls

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/outcome"
)

// Record is the poll surface for one outbound call: who was dialed, where
// Twilio says the call is, and what the conversation concluded.
type Record struct {
	CallSID   string          `json:"call_sid"`
	To        string          `json:"to"`
	LeadName  string          `json:"lead_name"`
	Status    string          `json:"status"`
	Outcome   outcome.Outcome `json:"outcome"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tracker is the in-memory call table. Status updates arrive from Twilio
// webhooks, outcomes from the conversation engine; both are fire-and-forget
// from the caller's point of view.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*Record)}
}

// Register adds a freshly placed call in the queued state.
func (t *Tracker) Register(callSID string, lead agent.Lead) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[callSID] = &Record{
		CallSID:   callSID,
		To:        lead.Number,
		LeadName:  lead.Name,
		Status:    "queued",
		Outcome:   outcome.None,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log.Printf("[%s] call registered for %s (%s)", callSID, lead.Name, lead.Number)
}

// SetStatus records a Twilio call status transition. Unknown SIDs are
// ignored; status callbacks can outlive a restart.
func (t *Tracker) SetStatus(callSID, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[callSID]
	if !ok {
		log.Printf("[%s] status %q for untracked call, ignoring", callSID, status)
		return
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
}

// RecordOutcome stores the classified conversation outcome. The first
// non-none outcome wins; later classifications are ignored.
func (t *Tracker) RecordOutcome(callSID string, o outcome.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[callSID]
	if !ok {
		log.Printf("[%s] outcome %s for untracked call, ignoring", callSID, o.Kind)
		return
	}
	if rec.Outcome.Kind != outcome.KindNone {
		return
	}
	rec.Outcome = o
	rec.UpdatedAt = time.Now()
	log.Printf("[%s] outcome recorded: %s (%s)", callSID, o.Kind, o.Detail)
}

// Get returns a copy of one call record.
func (t *Tracker) Get(callSID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[callSID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns copies of all call records, newest first.
func (t *Tracker) List() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
