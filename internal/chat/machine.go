// Package chat implements the live demo receptionist conversation: a closed
// set of states driven by typed text or chip taps, producing an append-only
// transcript.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/medspa-demo-receptionist/internal/analytics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/intent"
	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

const defaultClinicName = "Glow Med Spa"

// Machine holds one demo conversation. It is safe for concurrent use, but
// each instance represents a single session.
type Machine struct {
	mu sync.Mutex

	state          State
	intent         intent.Intent
	messages       []Message
	selectedSlot   *schedule.TimeSlot
	offeredSlots   []schedule.TimeSlot
	existing       *schedule.ExistingBooking
	booking        BookingData
	confirmation   *Confirmation
	lastUserInput  string
	flagIDs        []string
	flows          map[Flow]bool
	commercial     bool
	classification *intent.Result
	pending        []analytics.Event

	sessionID  string
	clinicName string
	now        func() time.Time
	newID      func() string
	classifier *intent.Classifier
	screener   *safety.Screener
	provider   *schedule.Provider
	recorder   analytics.Recorder
	logger     *logging.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the clock used for timestamps and slot generation.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithProvider sets the slot provider.
func WithProvider(p *schedule.Provider) Option {
	return func(m *Machine) { m.provider = p }
}

// WithRecorder sets the analytics recorder.
func WithRecorder(r analytics.Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClinicName sets the clinic name used in copy.
func WithClinicName(name string) Option {
	return func(m *Machine) {
		if strings.TrimSpace(name) != "" {
			m.clinicName = name
		}
	}
}

// WithSessionID tags analytics events and logs.
func WithSessionID(id string) Option {
	return func(m *Machine) { m.sessionID = id }
}

// WithScreener shares a screener between machines.
func WithScreener(s *safety.Screener) Option {
	return func(m *Machine) { m.screener = s }
}

// New creates a machine and appends the greeting.
func New(opts ...Option) *Machine {
	m := &Machine{
		clinicName: defaultClinicName,
		now:        time.Now,
		recorder:   analytics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Default()
	}
	m.logger = m.logger.WithSession(m.sessionID)
	if m.newID == nil {
		m.newID = m.defaultID
	}
	if m.screener == nil {
		m.screener = safety.NewScreener(m.logger)
	}
	if m.provider == nil {
		m.provider = schedule.NewProvider(schedule.WithClock(m.now))
	}
	m.classifier = intent.NewClassifier(m.screener)

	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
	return m
}

func (m *Machine) defaultID() string {
	return fmt.Sprintf("msg_%d_%s", m.now().UnixMilli(), uuid.New().String()[:8])
}

// ProcessInput appends the user's message, advances the conversation and
// returns every message appended by this call. When a chip label cannot be
// resolved the input is handled as typed text.
func (m *Machine) ProcessInput(input string, isChipSelection bool) []Message {
	m.mu.Lock()
	text := strings.TrimSpace(input)
	start := m.appendUserLocked(text)

	if isChipSelection {
		if chip, ok := m.resolveChipLocked(text); ok {
			start = m.handleChipLocked(chip, start)
			return m.finish(start)
		}
	}
	m.handleTextLocked(text)
	return m.finish(start)
}

// Select processes an already-typed chip, bypassing label resolution.
func (m *Machine) Select(chip Chip) []Message {
	m.mu.Lock()
	start := m.appendUserLocked(chip.Label)
	start = m.handleChipLocked(chip, start)
	return m.finish(start)
}

// finish copies new messages, releases the lock and flushes analytics.
func (m *Machine) finish(start int) []Message {
	out := cloneMessages(m.messages[start:])
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, e := range events {
		m.recorder.Record(e)
	}
	return out
}

// Reset reinitialises the conversation back to the greeting.
func (m *Machine) Reset() []Message {
	m.mu.Lock()
	m.resetLocked()
	m.emitLocked(analytics.KindDemoReplayed, nil)
	return m.finish(0)
}

func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.intent = ""
	m.messages = nil
	m.selectedSlot = nil
	m.offeredSlots = nil
	m.existing = nil
	m.booking = BookingData{}
	m.confirmation = nil
	m.lastUserInput = ""
	m.flagIDs = nil
	m.flows = make(map[Flow]bool)
	m.commercial = false
	m.classification = nil

	m.appendAILocked(Message{
		Text:  fmt.Sprintf("Hi! I'm the virtual receptionist for %s. I can book a treatment, share pricing, move an appointment, or answer questions. What can I help with?", m.clinicName),
		Chips: mainMenuChips(),
	})
	m.state = StateGreeting
}

func (m *Machine) appendUserLocked(text string) int {
	start := len(m.messages)
	m.lastUserInput = text
	m.messages = append(m.messages, Message{
		ID:        m.newID(),
		Type:      SenderUser,
		Text:      text,
		Timestamp: m.now(),
	})
	return start
}

func (m *Machine) appendAILocked(msg Message) {
	msg.ID = m.newID()
	msg.Type = SenderAI
	msg.Timestamp = m.now()
	m.messages = append(m.messages, msg)
}

// resolveChipLocked checks the latest assistant chips before the fixed table.
func (m *Machine) resolveChipLocked(label string) (Chip, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Type != SenderAI {
			continue
		}
		for _, c := range m.messages[i].Chips {
			if strings.EqualFold(c.Label, label) {
				return c, true
			}
		}
		break
	}
	return LookupLabel(label)
}

func (m *Machine) emitLocked(kind analytics.Kind, fill func(*analytics.Event)) {
	e := analytics.NewEvent(kind, m.sessionID, m.now())
	if fill != nil {
		fill(&e)
	}
	m.pending = append(m.pending, e)
}

// AppendAssistantReply records an answer from the AI backend. Labels with
// no known action are dropped from the chips.
func (m *Machine) AppendAssistantReply(text string, chipLabels []string) []Message {
	m.mu.Lock()
	start := len(m.messages)
	chips := ChipsFromLabels(chipLabels)
	if len(chips) == 0 {
		chips = mainMenuChips()
	}
	m.appendAILocked(Message{Text: text, Chips: chips})
	if m.state == StateGreeting || m.state == StateClarificationNeeded {
		m.state = StateIntentDetection
	}
	return m.finish(start)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsBookingComplete reports whether the conversation reached booking_success.
func (m *Machine) IsBookingComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateBookingSuccess
}

// Messages returns a copy of the transcript.
func (m *Machine) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMessages(m.messages)
}

// LastClassification returns the most recent free-text classification.
func (m *Machine) LastClassification() (intent.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.classification == nil {
		return intent.Result{}, false
	}
	return *m.classification, true
}

// Snapshot is a deep copy of the conversation.
type Snapshot struct {
	SessionID    string             `json:"session_id,omitempty"`
	State        State              `json:"state"`
	Intent       intent.Intent      `json:"intent,omitempty"`
	Messages     []Message          `json:"messages"`
	SelectedSlot *schedule.TimeSlot `json:"selected_slot,omitempty"`
	Booking      BookingData        `json:"booking"`
	Confirmation *Confirmation      `json:"confirmation,omitempty"`
	FlagIDs      []string           `json:"flag_ids,omitempty"`
	LastUserText string             `json:"last_user_message,omitempty"`
	CTA          CTA                `json:"cta"`
}

// Snapshot returns a deep copy of the current conversation.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		SessionID:    m.sessionID,
		State:        m.state,
		Intent:       m.intent,
		Messages:     cloneMessages(m.messages),
		Booking:      m.booking,
		FlagIDs:      append([]string(nil), m.flagIDs...),
		LastUserText: m.lastUserInput,
		CTA:          m.ctaLocked(),
	}
	if m.selectedSlot != nil {
		slot := *m.selectedSlot
		snap.SelectedSlot = &slot
	}
	if m.confirmation != nil {
		c := *m.confirmation
		if c.Previous != nil {
			prev := *c.Previous
			c.Previous = &prev
		}
		snap.Confirmation = &c
	}
	return snap
}
