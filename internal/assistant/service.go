package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

var tracer = otel.Tracer("medspa/assistant")

// ErrEmptyMessage is returned for blank requests.
var ErrEmptyMessage = errors.New("assistant: message is required")

const (
	historyTurns      = 6
	maxChips          = 4
	defaultTimeout    = 8 * time.Second
	defaultMaxTokens  = 400
	defaultConfidence = 0.7
)

// FollowUpAction hints what the UI should offer next.
type FollowUpAction string

const (
	FollowUpBooking FollowUpAction = "booking"
	FollowUpPricing FollowUpAction = "pricing"
	FollowUpConsult FollowUpAction = "consult"
	FollowUpNone    FollowUpAction = "none"
)

func (a FollowUpAction) valid() bool {
	switch a {
	case FollowUpBooking, FollowUpPricing, FollowUpConsult, FollowUpNone:
		return true
	}
	return false
}

// Turn is one prior transcript entry. Type is "user" or "ai".
type Turn struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RequestContext describes where in the demo the question was asked.
type RequestContext struct {
	Mode          string         `json:"mode,omitempty"`
	CurrentIntent string         `json:"currentIntent,omitempty"`
	DemoData      map[string]any `json:"demoData,omitempty"`
}

// Request is the inbound contract.
type Request struct {
	Message             string         `json:"message"`
	ConversationHistory []Turn         `json:"conversationHistory,omitempty"`
	Context             RequestContext `json:"context"`
}

// Response is the outbound contract.
type Response struct {
	Response       string         `json:"response"`
	Chips          []string       `json:"chips,omitempty"`
	SafetyFlags    []string       `json:"safetyFlags,omitempty"`
	FollowUpAction FollowUpAction `json:"followUpAction,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	Fallback       bool           `json:"fallback,omitempty"`
}

// StandardChips are offered with canned replies.
var StandardChips = []string{"Book Botox", "See pricing", "Reschedule", "Ask a question"}

const (
	apologyReply = "Sorry, I'm having trouble answering that right now. I can still help you book, check pricing, or reschedule."
	blockedReply = "I'm here to help with appointments and questions about our treatments. What can I help you with?"
	consultReply = "Thanks for sharing that. For your safety, a licensed provider should review this with you before any treatment. I can set up a free consult."
)

// Service answers free-text questions through an LLMClient.
type Service struct {
	client     LLMClient
	model      string
	clinicName string
	timeout    time.Duration
	screener   *safety.Screener
	metrics    *metrics.DemoMetrics
	logger     *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithModel(model string) Option { return func(s *Service) { s.model = model } }

func WithClinicName(name string) Option { return func(s *Service) { s.clinicName = name } }

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithScreener(sc *safety.Screener) Option { return func(s *Service) { s.screener = sc } }

func WithMetrics(m *metrics.DemoMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService builds a Service. A nil client yields canned replies only.
func NewService(client LLMClient, opts ...Option) *Service {
	s := &Service{
		client:     client,
		clinicName: "Glow Med Spa",
		timeout:    defaultTimeout,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.screener == nil {
		s.screener = safety.NewScreener(s.logger)
	}
	return s
}

// Enabled reports whether a model backend is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Respond answers req. The only error is ErrEmptyMessage; every backend
// failure becomes a canned reply with Fallback set.
func (s *Service) Respond(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "assistant.respond")
	defer span.End()
	started := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		span.SetStatus(codes.Error, "empty message")
		return fallbackResponse(), ErrEmptyMessage
	}

	guard := ScanInput(message)
	if guard.Blocked {
		s.logger.Warn("assistant: blocked prompt injection", "reasons", guard.Reasons, "score", guard.Score)
		s.observe(span, "blocked", started)
		return Response{Response: blockedReply, Chips: copyChips(StandardChips), FollowUpAction: FollowUpNone, Confidence: 1.0}, nil
	}
	message = guard.Sanitized

	flags := s.screener.DetectSafetyFlags(message, safety.TreatmentNone)
	if safety.HasHighSeverity(flags) {
		s.observe(span, "safety", started)
		return Response{
			Response:       consultReply,
			Chips:          []string{"Book a consult", "Ask a question"},
			SafetyFlags:    safety.FlagIDs(flags),
			FollowUpAction: FollowUpConsult,
			Confidence:     1.0,
		}, nil
	}

	if s.client == nil {
		s.observe(span, "fallback", started)
		return fallbackResponse(), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.Complete(callCtx, s.buildRequest(message, req))
	if err != nil {
		s.logger.Error("assistant: completion failed", "error", err)
		span.RecordError(err)
		s.observe(span, "fallback", started)
		return fallbackResponse(), nil
	}

	resp, ok := parseReply(out.Text)
	if !ok || LeaksInternals(resp.Response) {
		s.logger.Warn("assistant: unusable model reply", "parsed", ok)
		s.observe(span, "fallback", started)
		return fallbackResponse(), nil
	}
	resp.SafetyFlags = mergeFlags(resp.SafetyFlags, safety.FlagIDs(flags))
	s.observe(span, "ok", started)
	return resp, nil
}

func (s *Service) observe(span trace.Span, outcome string, started time.Time) {
	span.SetAttributes(attribute.String("assistant.outcome", outcome))
	s.metrics.ObserveAssistant(outcome, time.Since(started).Seconds())
}

func (s *Service) buildRequest(message string, req Request) LLMRequest {
	history := req.ConversationHistory
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	msgs := make([]ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		role := RoleUser
		if turn.Type == "ai" || turn.Type == RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: turn.Text})
	}
	msgs = append(msgs, ChatMessage{Role: RoleUser, Content: message})

	return LLMRequest{
		Model:       s.model,
		System:      []string{systemPrompt(s.clinicName), contextPrompt(req.Context)},
		Messages:    msgs,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.4,
	}
}

func systemPrompt(clinic string) string {
	return fmt.Sprintf(`You are the front-desk receptionist for %s, a med spa offering Botox ($13/unit), fillers ($650/syringe), laser (from $150) and facials (from $175).
Answer in under 60 words, warmly and plainly. Never diagnose or give medical advice; suggest a free consult for anything medical.
Reply with JSON only:
{"response": string, "chips": [up to 4 of "Book Botox", "See pricing", "Reschedule", "Ask a question", "Book a consult"], "followUpAction": "booking"|"pricing"|"consult"|"none", "confidence": number between 0 and 1, "safetyFlags": [string]}`, clinic)
}

func contextPrompt(c RequestContext) string {
	var b strings.Builder
	b.WriteString("Demo context:")
	if c.Mode != "" {
		b.WriteString(" mode=" + c.Mode)
	}
	if c.CurrentIntent != "" {
		b.WriteString(" current_intent=" + c.CurrentIntent)
	}
	if len(c.DemoData) > 0 {
		if raw, err := json.Marshal(c.DemoData); err == nil {
			b.WriteString(" data=" + string(raw))
		}
	}
	return b.String()
}

type modelReply struct {
	Response       string   `json:"response"`
	Chips          []string `json:"chips"`
	SafetyFlags    []string `json:"safetyFlags"`
	FollowUpAction string   `json:"followUpAction"`
	Confidence     *float64 `json:"confidence"`
}

// parseReply accepts JSON (optionally fenced or surrounded by prose) or
// plain text.
func parseReply(text string) (Response, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, false
	}

	var reply modelReply
	if raw, ok := extractJSON(text); ok && json.Unmarshal([]byte(raw), &reply) == nil && strings.TrimSpace(reply.Response) != "" {
		resp := Response{
			Response:       strings.TrimSpace(reply.Response),
			Chips:          capChips(reply.Chips),
			SafetyFlags:    reply.SafetyFlags,
			FollowUpAction: FollowUpAction(strings.ToLower(strings.TrimSpace(reply.FollowUpAction))),
			Confidence:     defaultConfidence,
		}
		if !resp.FollowUpAction.valid() {
			resp.FollowUpAction = FollowUpNone
		}
		if reply.Confidence != nil {
			resp.Confidence = clamp01(*reply.Confidence)
		}
		if len(resp.Chips) == 0 {
			resp.Chips = copyChips(StandardChips)
		}
		return resp, true
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "```") {
		return Response{}, false
	}
	return Response{
		Response:       text,
		Chips:          copyChips(StandardChips),
		FollowUpAction: FollowUpNone,
		Confidence:     defaultConfidence,
	}, true
}

func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func capChips(chips []string) []string {
	out := make([]string, 0, maxChips)
	for _, c := range chips {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
		if len(out) == maxChips {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func mergeFlags(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range append(append([]string(nil), a...), b...) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func copyChips(chips []string) []string {
	return append([]string(nil), chips...)
}

func fallbackResponse() Response {
	return Response{
		Response:       apologyReply,
		Chips:          copyChips(StandardChips),
		FollowUpAction: FollowUpNone,
		Fallback:       true,
	}
}
