// Package safety screens free text for treatment contraindications.
//
// Matching is English-only and case-insensitive over curated keyword
// patterns. It is intentionally biased toward false positives: "I'm not
// allergic to Botox" still raises the allergy flag. Negation handling is a
// known limitation, not an oversight.
package safety

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

var screenerTracer = otel.Tracer("medspa/safety-screener")

// Severity ranks how strongly a flag should gate the conversation.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Category groups flags for downstream display.
type Category string

const (
	CategoryMedical    Category = "medical"
	CategoryAllergy    Category = "allergy"
	CategoryMedication Category = "medication"
	CategoryCondition  Category = "condition"
)

// Treatment narrows screening to treatment-specific contraindications.
type Treatment string

const (
	TreatmentNone   Treatment = ""
	TreatmentBotox  Treatment = "botox"
	TreatmentFiller Treatment = "fillers"
	TreatmentLaser  Treatment = "laser"
)

// Flag is a single contraindication hit. Flags live for one turn; callers
// keep only the IDs.
type Flag struct {
	ID              string   `json:"id"`
	Severity        Severity `json:"severity"`
	Category        Category `json:"category"`
	Description     string   `json:"description"`
	Recommendation  string   `json:"recommendation"`
	RequiresConsult bool     `json:"requires_consult"`
	MatchedKeyword  string   `json:"matched_keyword"`
}

// Result is the traced screening outcome.
type Result struct {
	Flags           []Flag
	Contraindicated bool
}

// Screener evaluates text against the severity tiers and treatment lists.
type Screener struct {
	logger    *logging.Logger
	general   []rule
	treatment map[Treatment][]rule
}

// NewScreener creates a screener using the built-in keyword tables.
func NewScreener(logger *logging.Logger) *Screener {
	if logger == nil {
		logger = logging.Default()
	}
	general := make([]rule, 0, len(highRules)+len(mediumRules)+len(lowRules))
	general = append(general, highRules...)
	general = append(general, mediumRules...)
	general = append(general, lowRules...)
	return &Screener{
		logger:    logger,
		general:   general,
		treatment: treatmentRules,
	}
}

// DetectContraindications reports whether text contains any high-severity
// contraindication. A true result must end the booking flow.
func (s *Screener) DetectContraindications(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, r := range highRules {
		if r.match(text) != "" {
			return true
		}
	}
	return false
}

// DetectSafetyFlags returns every flag raised by text, high severity first.
// A treatment adds that treatment's specific contraindications.
func (s *Screener) DetectSafetyFlags(text string, treatment Treatment) []Flag {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	rules := s.general
	if extra := s.treatment[Treatment(strings.ToLower(string(treatment)))]; len(extra) > 0 {
		rules = append(append([]rule(nil), s.general...), extra...)
	}

	var flags []Flag
	seen := make(map[string]struct{})
	for _, r := range rules {
		kw := r.match(text)
		if kw == "" {
			continue
		}
		if _, dup := seen[r.id]; dup {
			continue
		}
		seen[r.id] = struct{}{}
		flags = append(flags, r.flag(kw))
	}
	sortBySeverity(flags)
	return flags
}

// Screen is DetectSafetyFlags with tracing and logging, for request paths
// that carry a context.
func (s *Screener) Screen(ctx context.Context, text string, treatment Treatment) Result {
	_, span := screenerTracer.Start(ctx, "safety.screen")
	defer span.End()

	flags := s.DetectSafetyFlags(text, treatment)
	res := Result{Flags: flags, Contraindicated: HasHighSeverity(flags)}

	span.SetAttributes(
		attribute.Int("safety.flag_count", len(flags)),
		attribute.Bool("safety.contraindicated", res.Contraindicated),
	)
	if len(flags) > 0 {
		s.logger.Info("safety flags raised",
			"flag_ids", FlagIDs(flags),
			"contraindicated", res.Contraindicated,
		)
	}
	return res
}

// HasHighSeverity reports whether any flag is high severity.
func HasHighSeverity(flags []Flag) bool {
	for _, f := range flags {
		if f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// FlagIDs extracts flag identifiers in order.
func FlagIDs(flags []Flag) []string {
	if len(flags) == 0 {
		return nil
	}
	ids := make([]string, len(flags))
	for i, f := range flags {
		ids[i] = f.ID
	}
	return ids
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

func sortBySeverity(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		return severityRank(flags[i].Severity) < severityRank(flags[j].Severity)
	})
}
