// Package intent maps free-text demo input to a fixed set of intents using
// deterministic keyword scoring.
package intent

import (
	"strings"

	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
)

// Intent is one of the closed set of classified intents.
type Intent string

const (
	IntentBookBotox    Intent = "book_botox"
	IntentPricing      Intent = "pricing"
	IntentReschedule   Intent = "reschedule"
	IntentAvailability Intent = "availability"
	IntentFAQGeneral   Intent = "faq_general"
	IntentServices     Intent = "services"
	IntentSafety       Intent = "faq_safety"
	IntentUnknown      Intent = "unknown"
)

// AcceptThreshold is the single confidence cut-off below which input is
// treated as unknown and escalated to the AI backend.
const AcceptThreshold = 0.35

// matchBias lifts any single keyword hit above AcceptThreshold. Every
// pattern list must stay shorter than 20 entries for that to hold.
const matchBias = 0.3

// MaxChips caps quick replies offered with a classification.
const MaxChips = 4

// Entities are extracted independently of intent scoring.
type Entities struct {
	Service   string `json:"service,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
	Concern   string `json:"concern,omitempty"`
}

// Result is the per-call classification outcome.
type Result struct {
	Intent                Intent   `json:"intent"`
	Confidence            float64  `json:"confidence"`
	Entities              Entities `json:"entities"`
	Response              string   `json:"response"`
	Chips                 []string `json:"chips,omitempty"`
	RequiresClarification bool     `json:"requires_clarification"`
	SafetyFlag            bool     `json:"safety_flag"`
	FlagIDs               []string `json:"flag_ids,omitempty"`
	UseAI                 bool     `json:"use_ai"`
}

type intentPatterns struct {
	intent   Intent
	patterns []string
}

// intentTable order is the tie-break order.
var intentTable = []intentPatterns{
	{IntentBookBotox, []string{"book", "appointment", "schedule", "slot", "reserve", "sign me up", "want botox", "get botox", "botox appointment", "come in"}},
	{IntentPricing, []string{"price", "pricing", "cost", "how much", "per unit", "$", "expensive", "afford", "deal", "special"}},
	{IntentReschedule, []string{"reschedule", "move my", "change my appointment", "different time", "push back", "cancel my", "can't make", "cant make", "another day"}},
	{IntentAvailability, []string{"available", "availability", "openings", "open slot", "this week", "today", "tomorrow", "when can", "what times", "any time"}},
	{IntentFAQGeneral, []string{"hurt", "pain", "downtime", "prepare", "prep ", "how long", "last", "safe", "side effect", "bruis", "policy", "cancellation", "recovery"}},
	{IntentServices, []string{"services", "treatments", "what do you offer", "filler", "laser", "facial", "hydrafacial", "menu", "do you do", "lip"}},
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	screener *safety.Screener
	table    []intentPatterns
}

// NewClassifier creates a classifier that consults screener first.
func NewClassifier(screener *safety.Screener) *Classifier {
	if screener == nil {
		screener = safety.NewScreener(nil)
	}
	return &Classifier{screener: screener, table: intentTable}
}

// Classify maps input to an intent. It never performs I/O.
func (c *Classifier) Classify(input string) Result {
	entities := ExtractEntities(input)

	if c.screener.DetectContraindications(input) {
		flags := c.screener.DetectSafetyFlags(input, safety.Treatment(strings.ToLower(entities.Service)))
		res := Render(IntentSafety, entities)
		res.Confidence = 1.0
		res.SafetyFlag = true
		res.FlagIDs = safety.FlagIDs(flags)
		return res
	}

	lowered := strings.ToLower(strings.TrimSpace(input))
	best := IntentUnknown
	bestScore := 0.0
	for _, entry := range c.table {
		score := scorePatterns(lowered, entry.patterns)
		if score > bestScore {
			best = entry.intent
			bestScore = score
		}
	}

	if bestScore < AcceptThreshold {
		res := Render(IntentUnknown, entities)
		res.Confidence = bestScore
		res.RequiresClarification = true
		res.UseAI = true
		return res
	}

	res := Render(best, entities)
	res.Confidence = bestScore
	return res
}

func scorePatterns(lowered string, patterns []string) float64 {
	if lowered == "" || len(patterns) == 0 {
		return 0
	}
	matches := 0
	for _, p := range patterns {
		if strings.Contains(lowered, p) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	score := float64(matches)/float64(len(patterns)) + matchBias
	if score > 1.0 {
		score = 1.0
	}
	return score
}
