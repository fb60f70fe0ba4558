package sequencer

import (
	"fmt"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
)

// StepID names a step of the guided demo.
type StepID string

const (
	StepGreet   StepID = "greet"
	StepService StepID = "service"
	StepVolume  StepID = "volume"
	StepBooking StepID = "booking"
	StepHandoff StepID = "handoff"
)

// IdlePreview shows Choice when the visitor has not tapped within After.
// The previewed choice is never stored as collected data.
type IdlePreview struct {
	After  time.Duration
	Choice string
}

// Step is one scripted beat.
type Step struct {
	ID          StepID
	Bubble      string
	Chips       []chat.Chip
	IdlePreview *IdlePreview
	// AutoAdvance moves to Next after the bubble (or after the preview or
	// the last card when those are present). Zero waits for a tap.
	AutoAdvance time.Duration
	Cards       []chat.Card
	CardStagger time.Duration
	Recap       func(collected map[StepID]string) string
	// RevealCTA triggers the call-to-action rail once cards are shown.
	RevealCTA bool
	Next      StepID
}

// Script is an ordered step graph starting at Steps[0].
type Script struct {
	Steps []Step
}

func (s Script) step(id StepID) (Step, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return Step{}, false
}

// Validate checks that the script is non-empty and every Next exists.
func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("sequencer: script has no steps")
	}
	seen := map[StepID]bool{}
	for _, st := range s.Steps {
		if seen[st.ID] {
			return fmt.Errorf("sequencer: duplicate step %q", st.ID)
		}
		seen[st.ID] = true
	}
	for _, st := range s.Steps {
		if st.Next != "" && !seen[st.Next] {
			return fmt.Errorf("sequencer: step %q points to unknown step %q", st.ID, st.Next)
		}
	}
	return nil
}

// DefaultScript is the 20-second guided demo.
func DefaultScript(clinicName string) Script {
	return Script{Steps: []Step{
		{
			ID:          StepGreet,
			Bubble:      fmt.Sprintf("Hi! I'm the virtual receptionist for %s. Watch me book a client in 20 seconds.", clinicName),
			AutoAdvance: 2500 * time.Millisecond,
			Next:        StepService,
		},
		{
			ID:     StepService,
			Bubble: "What treatment are you interested in?",
			Chips: []chat.Chip{
				{Label: "Botox", Action: chat.ActionBook, Value: "Botox"},
				{Label: "Fillers", Action: chat.ActionBook, Value: "Fillers"},
				{Label: "Laser", Action: chat.ActionBook, Value: "Laser"},
				{Label: "Facials", Action: chat.ActionBook, Value: "Facials"},
			},
			IdlePreview: &IdlePreview{After: 3 * time.Second, Choice: "Botox"},
			AutoAdvance: 1500 * time.Millisecond,
			Next:        StepVolume,
		},
		{
			ID:     StepVolume,
			Bubble: "Is this your first visit, or a touch-up?",
			Chips: []chat.Chip{
				{Label: "First visit", Action: chat.ActionYes},
				{Label: "Touch-up", Action: chat.ActionNo},
			},
			IdlePreview: &IdlePreview{After: 3 * time.Second, Choice: "First visit"},
			AutoAdvance: 1500 * time.Millisecond,
			Next:        StepBooking,
		},
		{
			ID:     StepBooking,
			Bubble: "Done! You're booked for Thursday at 2:30 PM.",
			Cards: []chat.Card{
				{Kind: chat.CardCalendar, Title: "Added to Calendar", Detail: "Thursday 2:30 PM"},
				{Kind: chat.CardSMS, Title: "SMS confirmation sent"},
				{Kind: chat.CardPolicy, Title: "24-hour cancellation policy"},
			},
			CardStagger: 600 * time.Millisecond,
			Recap:       defaultRecap,
			RevealCTA:   true,
			AutoAdvance: 2 * time.Second,
			Next:        StepHandoff,
		},
		{
			ID:     StepHandoff,
			Bubble: "That's the whole booking with zero staff time. Want this answering for your med spa?",
			Chips: []chat.Chip{
				{Label: chat.LabelPilot, Action: chat.ActionStartPilot},
				{Label: chat.LabelReplay, Action: chat.ActionReplay},
			},
		},
	}}
}

func defaultRecap(collected map[StepID]string) string {
	service := collected[StepService]
	if service == "" {
		service = "Botox"
	}
	visit := collected[StepVolume]
	if visit == "" {
		visit = "First visit"
	}
	return fmt.Sprintf("%s, %s, Thursday 2:30 PM. Booked in under 20 seconds.", service, visit)
}
