package chat

import (
	"strings"

	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
)

// ChipAction is the behaviour bound to a quick reply when it is built.
type ChipAction string

const (
	ActionBook        ChipAction = "book"
	ActionPricing     ChipAction = "pricing"
	ActionReschedule  ChipAction = "reschedule"
	ActionFAQ         ChipAction = "faq"
	ActionFAQTopic    ChipAction = "faq_topic"
	ActionYes         ChipAction = "yes"
	ActionNo          ChipAction = "no"
	ActionSelectSlot  ChipAction = "select_slot"
	ActionReplay      ChipAction = "replay"
	ActionMainMenu    ChipAction = "main_menu"
	ActionBookConsult ChipAction = "book_consult"
	ActionStartPilot  ChipAction = "start_pilot"
)

// Chip is a selectable quick reply. Value carries the service, slot id or
// FAQ topic the action applies to.
type Chip struct {
	Label  string     `json:"label"`
	Action ChipAction `json:"action"`
	Value  string     `json:"value,omitempty"`
}

const (
	LabelReplay     = "Replay demo ↺"
	LabelPricing    = "See pricing"
	LabelReschedule = "Reschedule"
	LabelAsk        = "Ask a question"
	LabelAskAnother = "Ask another question"
	LabelMainMenu   = "Main menu"
	LabelConsult    = "Book a consult"
	LabelPilot      = "Start pilot"
)

// labelTable maps fixed labels to chips. Lookups are case-insensitive.
var labelTable = map[string]Chip{}

func init() {
	for _, c := range []Chip{
		{Label: "Book Botox", Action: ActionBook, Value: "Botox"},
		{Label: "Book Fillers", Action: ActionBook, Value: "Fillers"},
		{Label: "Book Laser", Action: ActionBook, Value: "Laser"},
		{Label: "Book Facials", Action: ActionBook, Value: "Facials"},
		{Label: LabelPricing, Action: ActionPricing},
		{Label: "Pricing", Action: ActionPricing},
		{Label: LabelReschedule, Action: ActionReschedule},
		{Label: LabelAsk, Action: ActionFAQ},
		{Label: LabelAskAnother, Action: ActionFAQ},
		{Label: "Yes", Action: ActionYes},
		{Label: "No", Action: ActionNo},
		{Label: LabelReplay, Action: ActionReplay},
		{Label: "Replay 20-sec demo ↺", Action: ActionReplay},
		{Label: "Replay", Action: ActionReplay},
		{Label: LabelMainMenu, Action: ActionMainMenu},
		{Label: LabelConsult, Action: ActionBookConsult},
		{Label: LabelPilot, Action: ActionStartPilot},
		{Label: "Start a pilot", Action: ActionStartPilot},
	} {
		labelTable[strings.ToLower(c.Label)] = c
	}
	for _, topic := range faqTopics {
		labelTable[strings.ToLower(topic.label)] = Chip{Label: topic.label, Action: ActionFAQTopic, Value: topic.id}
	}
}

// LookupLabel resolves a fixed chip label.
func LookupLabel(label string) (Chip, bool) {
	c, ok := labelTable[strings.ToLower(strings.TrimSpace(label))]
	return c, ok
}

// ChipsFromLabels converts classifier or AI chip labels into typed chips,
// dropping labels with no known action.
func ChipsFromLabels(labels []string) []Chip {
	out := make([]Chip, 0, len(labels))
	for _, l := range labels {
		if c, ok := LookupLabel(l); ok {
			out = append(out, c)
		}
	}
	return out
}

func mainMenuChips() []Chip {
	return []Chip{
		{Label: "Book Botox", Action: ActionBook, Value: "Botox"},
		{Label: LabelPricing, Action: ActionPricing},
		{Label: LabelReschedule, Action: ActionReschedule},
		{Label: LabelAsk, Action: ActionFAQ},
	}
}

func yesNoChips() []Chip {
	return []Chip{{Label: "Yes", Action: ActionYes}, {Label: "No", Action: ActionNo}}
}

func slotChips(slots []schedule.TimeSlot) []Chip {
	out := make([]Chip, 0, len(slots))
	for _, s := range slots {
		out = append(out, Chip{Label: s.Label(), Action: ActionSelectSlot, Value: s.ID})
	}
	return out
}

func bookChip(service string) Chip {
	return Chip{Label: "Book " + service, Action: ActionBook, Value: service}
}

func closingChips() []Chip {
	return []Chip{{Label: LabelPilot, Action: ActionStartPilot}, {Label: LabelReplay, Action: ActionReplay}}
}

func consultChips() []Chip {
	return []Chip{{Label: LabelConsult, Action: ActionBookConsult}, {Label: LabelReplay, Action: ActionReplay}}
}
