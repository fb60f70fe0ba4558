// Package sequencer plays the fixed guided demo script. It never reads free
// text: the visitor can only tap the offered chips, replay, or wait.
package sequencer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	"github.com/wolfman30/medspa-demo-receptionist/internal/scheduler"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// ErrUnknownChoice is returned by Tap for labels the current step does not
// offer.
var ErrUnknownChoice = errors.New("sequencer: choice not offered by current step")

// ErrNotRunning is returned by Tap before Start or after Stop.
var ErrNotRunning = errors.New("sequencer: not running")

// EventKind classifies sequencer output.
type EventKind string

const (
	EventBubble  EventKind = "bubble"
	EventChips   EventKind = "chips"
	EventPreview EventKind = "preview"
	EventCard    EventKind = "card"
	EventRecap   EventKind = "recap"
	EventCTA     EventKind = "cta"
	EventVideo   EventKind = "video"
	EventDone    EventKind = "done"
)

// VideoCue drives avatar animation.
type VideoCue string

const (
	VideoEnter VideoCue = "enter"
	VideoSpeak VideoCue = "speak"
	VideoExit  VideoCue = "exit"
)

// Event is delivered to the emit callback in order.
type Event struct {
	Kind   EventKind   `json:"kind"`
	Step   StepID      `json:"step"`
	Text   string      `json:"text,omitempty"`
	Chips  []chat.Chip `json:"chips,omitempty"`
	Card   *chat.Card  `json:"card,omitempty"`
	Video  VideoCue    `json:"video,omitempty"`
	Choice string      `json:"choice,omitempty"`
}

const (
	timerAdvance = "advance"
	timerPreview = "idle-preview"
	timerCard    = "card-"
)

// Sequencer walks a Script. Timed actions go through a scheduler.Scheduler
// and are invalidated by any user action.
type Sequencer struct {
	mu        sync.Mutex
	script    Script
	sched     scheduler.Scheduler
	emit      func(Event)
	logger    *logging.Logger
	current   StepID
	collected map[StepID]string
	gen       uint64
	running   bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a sequencer. emit is called without internal locks held.
func New(script Script, sched scheduler.Scheduler, emit func(Event), opts ...Option) (*Sequencer, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, fmt.Errorf("sequencer: scheduler is required")
	}
	if emit == nil {
		emit = func(Event) {}
	}
	s := &Sequencer{
		script:    script,
		sched:     sched,
		emit:      emit,
		logger:    logging.Default(),
		collected: make(map[StepID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start plays the script from its first step.
func (s *Sequencer) Start() {
	s.mu.Lock()
	s.invalidateLocked()
	s.running = true
	var out []Event
	s.enterLocked(s.script.Steps[0], &out)
	s.mu.Unlock()
	s.flush(out)
}

// Tap records an explicit choice for the current step and advances. A
// replay chip restarts the demo.
func (s *Sequencer) Tap(label string) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	step, _ := s.script.step(s.current)
	chip, ok := findChip(step.Chips, label)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q at step %s", ErrUnknownChoice, label, step.ID)
	}
	if chip.Action == chat.ActionReplay {
		s.mu.Unlock()
		s.Replay()
		return nil
	}

	s.invalidateLocked()
	s.collected[step.ID] = chip.Label
	var out []Event
	if chip.Action == chat.ActionStartPilot {
		out = append(out, Event{Kind: EventCTA, Step: step.ID, Choice: chip.Label})
	}
	s.advanceLocked(step, &out)
	s.mu.Unlock()
	s.flush(out)
	return nil
}

// Replay clears collected choices and pending timers, then starts over.
func (s *Sequencer) Replay() {
	s.mu.Lock()
	s.invalidateLocked()
	s.collected = make(map[StepID]string)
	s.mu.Unlock()
	s.logger.Debug("sequencer: replay")
	s.Start()
}

// Stop cancels pending timers. Further taps return ErrNotRunning.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.running = false
}

// Collected returns a copy of explicitly tapped choices.
func (s *Sequencer) Collected() map[StepID]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[StepID]string, len(s.collected))
	for k, v := range s.collected {
		out[k] = v
	}
	return out
}

// Current returns the active step id.
func (s *Sequencer) Current() StepID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// invalidateLocked drops every pending timer and fences off callbacks that
// already fired but have not yet taken the lock.
func (s *Sequencer) invalidateLocked() {
	s.gen++
	if n := s.sched.CancelAll(); n > 0 {
		s.logger.Debug("sequencer: cancelled timers", "count", n)
	}
}

// scheduleLocked wraps fn so it runs under the lock only if no user action
// happened since it was scheduled.
func (s *Sequencer) scheduleLocked(name string, delay time.Duration, step Step, fn func(step Step, out *[]Event)) {
	gen := s.gen
	s.sched.Schedule(name, delay, func() {
		s.mu.Lock()
		if s.gen != gen || !s.running || s.current != step.ID {
			s.mu.Unlock()
			return
		}
		var out []Event
		fn(step, &out)
		s.mu.Unlock()
		s.flush(out)
	})
}

func (s *Sequencer) enterLocked(step Step, out *[]Event) {
	s.current = step.ID
	*out = append(*out,
		Event{Kind: EventVideo, Step: step.ID, Video: VideoEnter},
		Event{Kind: EventBubble, Step: step.ID, Text: step.Bubble},
		Event{Kind: EventVideo, Step: step.ID, Video: VideoSpeak},
	)
	if len(step.Chips) > 0 {
		*out = append(*out, Event{Kind: EventChips, Step: step.ID, Chips: append([]chat.Chip(nil), step.Chips...)})
	}

	switch {
	case len(step.Cards) > 0:
		for i := range step.Cards {
			delay := step.CardStagger * time.Duration(i+1)
			s.scheduleLocked(fmt.Sprintf("%s%d", timerCard, i), delay, step, s.revealCardFunc(i))
		}
	case step.IdlePreview != nil:
		s.scheduleLocked(timerPreview, step.IdlePreview.After, step, s.previewLocked)
	case step.AutoAdvance > 0:
		s.scheduleLocked(timerAdvance, step.AutoAdvance, step, s.advanceLocked)
	case step.Next == "" && len(step.Chips) == 0:
		s.finishLocked(step, out)
	}
}

func (s *Sequencer) previewLocked(step Step, out *[]Event) {
	*out = append(*out, Event{Kind: EventPreview, Step: step.ID, Choice: step.IdlePreview.Choice})
	if step.AutoAdvance > 0 {
		s.scheduleLocked(timerAdvance, step.AutoAdvance, step, s.advanceLocked)
	}
}

func (s *Sequencer) revealCardFunc(i int) func(Step, *[]Event) {
	return func(step Step, out *[]Event) {
		card := step.Cards[i]
		*out = append(*out, Event{Kind: EventCard, Step: step.ID, Card: &card})
		if i != len(step.Cards)-1 {
			return
		}
		if step.Recap != nil {
			*out = append(*out, Event{Kind: EventRecap, Step: step.ID, Text: step.Recap(s.collected)})
		}
		if step.RevealCTA {
			*out = append(*out, Event{Kind: EventCTA, Step: step.ID})
		}
		if step.AutoAdvance > 0 {
			s.scheduleLocked(timerAdvance, step.AutoAdvance, step, s.advanceLocked)
		}
	}
}

func (s *Sequencer) advanceLocked(step Step, out *[]Event) {
	*out = append(*out, Event{Kind: EventVideo, Step: step.ID, Video: VideoExit})
	next, ok := s.script.step(step.Next)
	if step.Next == "" || !ok {
		s.finishLocked(step, out)
		return
	}
	s.enterLocked(next, out)
}

func (s *Sequencer) finishLocked(step Step, out *[]Event) {
	s.running = false
	*out = append(*out, Event{Kind: EventDone, Step: step.ID})
}

func (s *Sequencer) flush(events []Event) {
	for _, e := range events {
		s.emit(e)
	}
}

func findChip(chips []chat.Chip, label string) (chat.Chip, bool) {
	label = strings.TrimSpace(label)
	for _, c := range chips {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return chat.Chip{}, false
}
