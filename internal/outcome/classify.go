// Package outcome classifies a finished conversation turn from its text.
// It is deliberately a pure function so the heuristics can be tuned and
// tested without a live call.
package outcome

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind labels what a call turned out to be.
type Kind string

const (
	KindNone       Kind = "none"
	KindScheduled  Kind = "scheduled"
	KindHangup     Kind = "hangup"
	KindIrrelevant Kind = "irrelevant"
)

// Outcome pairs a kind with a free-text detail. KindNone always carries an
// empty detail.
type Outcome struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

/// None is the zero outcome: the conversation is still going.
var None = Outcome{Kind: KindNone}

// terminationKeyword marks a closing reply. The system prompt instructs the
// model to end its final reply with this token.
const terminationKeyword = "hangup"

const (
	detailGenericMeeting = "Meeting scheduled"
	detailDeclined       = "Caller declined the offer"
	detailHangup         = "Call ended without scheduling"
)

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var (
	timeRe       = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	dayPartRe    = regexp.MustCompile(`(?i)\b(morning|afternoon|evening)\b`)
	confirmRe    = regexp.MustCompile(`(?i)\b(scheduled|booked|confirmed|set up)\b`)
	declineWords = []string{
		"not interested", "no thanks", "don't call", "remove me",
		"not a good time", "busy", "never call", "stop calling", "leave me alone",
	}
)

// Classify maps the last user utterance and agent reply to an Outcome.
// The scheduling check intentionally runs before the decline check, so a
// turn containing both a time and a decline phrase counts as scheduled.
// That ordering is inherited heuristic policy, not a proven preference.
func Classify(utterance, reply string) Outcome {
	if !strings.Contains(strings.ToLower(reply), terminationKeyword) {
		return None
	}

	combined := utterance + " " + reply
	if detail, ok := schedulingDetail(combined); ok {
		return Outcome{Kind: KindScheduled, Detail: detail}
	}

	lowerUtterance := strings.ToLower(utterance)
	for _, phrase := range declineWords {
		if strings.Contains(lowerUtterance, phrase) {
			return Outcome{Kind: KindIrrelevant, Detail: detailDeclined}
		}
	}
	return Outcome{Kind: KindHangup, Detail: detailHangup}
}

// schedulingDetail scans for scheduling signals and extracts the most
// specific detail available.
func schedulingDetail(text string) (string, bool) {
	day := findWeekday(text)
	clock := normalizeTime(timeRe.FindStringSubmatch(text))

	switch {
	case day != "" && clock != "":
		return fmt.Sprintf("%s %s", day, clock), true
	case day != "":
		return day, true
	case clock != "":
		return clock, true
	}
	if dayPartRe.MatchString(text) || confirmRe.MatchString(text) {
		return detailGenericMeeting, true
	}
	return "", false
}

func findWeekday(text string) string {
	lower := strings.ToLower(text)
	for _, d := range weekdays {
		if strings.Contains(lower, d) {
			return strings.ToUpper(d[:1]) + d[1:]
		}
	}
	return ""
}

// normalizeTime renders a time match as digits plus AM/PM, e.g. "2 PM" or
// "2:30 PM".
func normalizeTime(m []string) string {
	if m == nil {
		return ""
	}
	hour, minutes, meridiem := m[1], m[2], strings.ToUpper(m[3])
	if minutes != "" {
		return fmt.Sprintf("%s:%s %s", hour, minutes, meridiem)
	}
	return fmt.Sprintf("%s %s", hour, meridiem)
}
