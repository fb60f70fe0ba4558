// Package analytics carries fire-and-forget demo events to pluggable sinks.
// Recording never blocks the conversation and never reports failure to it.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a hook point in the conversation.
type Kind string

const (
	KindIntentClassified Kind = "intent_classified"
	KindSafetyFlagRaised Kind = "safety_flag_raised"
	KindBookingCompleted Kind = "booking_completed"
	KindDemoReplayed     Kind = "demo_replayed"
)

// Event is a single analytics record.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	SessionID  string    `json:"session_id,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	FlagIDs    []string  `json:"flag_ids,omitempty"`
	Flow       string    `json:"flow,omitempty"`
	At         time.Time `json:"at"`
}

// NewEvent stamps an event with an id and time.
func NewEvent(kind Kind, sessionID string, at time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		SessionID: sessionID,
		At:        at.UTC(),
	}
}

// Recorder accepts events. Implementations must return promptly.
type Recorder interface {
	Record(Event)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

func (f RecorderFunc) Record(e Event) { f(e) }
