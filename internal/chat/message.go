package chat

import (
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// InputKind asks the UI to switch from chips to free-text capture.
type InputKind string

const (
	InputNone  InputKind = ""
	InputName  InputKind = "name"
	InputPhone InputKind = "phone"
)

// CardKind labels a status confirmation card.
type CardKind string

const (
	CardCalendar CardKind = "calendar"
	CardSMS      CardKind = "sms"
	CardPolicy   CardKind = "policy"
)

// Card is a status confirmation shown under a message.
type Card struct {
	Kind   CardKind `json:"kind"`
	Title  string   `json:"title"`
	Detail string   `json:"detail,omitempty"`
}

// Message is one transcript entry. Messages are never modified after they
// are appended.
type Message struct {
	ID            string    `json:"id"`
	Type          Sender    `json:"type"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
	Chips         []Chip    `json:"chips,omitempty"`
	RequiresInput InputKind `json:"requires_input,omitempty"`
	Cards         []Card    `json:"cards,omitempty"`
}

func (m Message) clone() Message {
	out := m
	if m.Chips != nil {
		out.Chips = append([]Chip(nil), m.Chips...)
	}
	if m.Cards != nil {
		out.Cards = append([]Card(nil), m.Cards...)
	}
	return out
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.clone()
	}
	return out
}

// BookingData accumulates contact details in strict order.
type BookingData struct {
	FirstName string `json:"first_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Service   string `json:"service,omitempty"`
}

// Confirmation is the completed booking or reschedule.
type Confirmation struct {
	Slot        schedule.TimeSlot  `json:"slot"`
	Previous    *schedule.TimeSlot `json:"previous,omitempty"`
	Service     string             `json:"service"`
	FirstName   string             `json:"first_name,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	Rescheduled bool               `json:"rescheduled"`
}
