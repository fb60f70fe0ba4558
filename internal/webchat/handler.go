package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/medspa-demo-receptionist/internal/assistant"
	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
	"github.com/wolfman30/medspa-demo-receptionist/internal/scheduler"
	"github.com/wolfman30/medspa-demo-receptionist/internal/sequencer"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
	"golang.org/x/net/websocket"
)

// Responder answers free-text questions the classifier could not place.
type Responder interface {
	Enabled() bool
	Respond(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

// Handler serves the demo chat over HTTP and the guided demo over WebSocket.
type Handler struct {
	store      *SessionStore
	assistant  Responder
	provider   *schedule.Provider
	clinicName string
	logger     *logging.Logger
}

// NewHandler creates a demo chat handler. assistant may be nil.
func NewHandler(store *SessionStore, responder Responder, provider *schedule.Provider, clinicName string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if provider == nil {
		provider = schedule.NewProvider()
	}
	return &Handler{
		store:      store,
		assistant:  responder,
		provider:   provider,
		clinicName: clinicName,
		logger:     logger,
	}
}

// Routes mounts the demo endpoints, normally under /demo.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(api chi.Router) {
		api.Use(middleware.Compress(5, "application/json"))
		api.Post("/sessions", h.HandleCreateSession)
		api.Route("/sessions/{id}", func(s chi.Router) {
			s.Get("/", h.HandleGetSession)
			s.Post("/input", h.HandleInput)
			s.Post("/reset", h.HandleReset)
		})
		api.Post("/ask", h.HandleAsk)
		api.Get("/slots", h.HandleSlots)
	})
	// Frames must not sit in a compression buffer.
	r.Get("/guided/ws", h.HandleGuidedWebSocket)
	return r
}

// InputRequest is a visitor turn. Chip marks a tapped quick reply.
type InputRequest struct {
	Text string `json:"text"`
	Chip bool   `json:"chip"`
}

// SessionResponse is returned by every session endpoint.
type SessionResponse struct {
	SessionID       string         `json:"session_id"`
	State           chat.State     `json:"state"`
	Messages        []chat.Message `json:"messages"`
	BookingComplete bool           `json:"booking_complete"`
	CTA             chat.CTA       `json:"cta"`
}

// SlotsResponse lists the generated week and the two slots the demo offers.
type SlotsResponse struct {
	Slots     []schedule.TimeSlot      `json:"slots"`
	DemoSlots []schedule.TimeSlot      `json:"demo_slots"`
	Existing  schedule.ExistingBooking `json:"existing_booking"`
}

// HandleCreateSession starts a conversation and returns the greeting.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, machine := h.store.Create()
	h.logger.WithSession(id).Info("webchat: session started")
	writeJSON(w, http.StatusCreated, h.sessionResponse(id, machine, machine.Messages()))
}

// HandleGetSession returns a full snapshot of one conversation.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	machine, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, machine.Snapshot())
}

// HandleInput feeds one visitor turn to the state machine.
func (h *Handler) HandleInput(w http.ResponseWriter, r *http.Request) {
	machine, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	messages := machine.ProcessInput(req.Text, req.Chip)
	if !req.Chip {
		messages = append(messages, h.escalate(r.Context(), id, machine, req.Text)...)
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(id, machine, messages))
}

// HandleReset replays the conversation from the greeting.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	machine, ok := h.lookup(w, r)
	if !ok {
		return
	}
	messages := machine.Reset()
	writeJSON(w, http.StatusOK, h.sessionResponse(chi.URLParam(r, "id"), machine, messages))
}

// HandleAsk calls the assistant directly.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if h.assistant == nil {
		http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}
	resp, err := h.assistant.Respond(r.Context(), req)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("webchat: assistant failed", "error", err)
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSlots lists this week's mock availability.
func (h *Handler) HandleSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SlotsResponse{
		Slots:     h.provider.WeeklySlots(),
		DemoSlots: h.provider.DemoSlots(),
		Existing:  h.provider.MockExistingBooking(),
	})
}

// HandleGuidedWebSocket streams the scripted demo to one client.
func (h *Handler) HandleGuidedWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveGuided(conn)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveGuided(conn *websocket.Conn) {
	defer conn.Close()

	stream := newEventStream(conn, h.logger)
	seq, err := sequencer.New(
		sequencer.DefaultScript(h.clinicName),
		scheduler.NewTimer(h.logger),
		stream.Send,
		sequencer.WithLogger(h.logger),
	)
	if err != nil {
		h.logger.Error("webchat: invalid guided script", "error", err)
		stream.SendError(err.Error())
		return
	}
	defer seq.Stop()

	h.logger.Info("webchat: guided demo opened")
	seq.Start()

	for {
		var cmd GuidedCommand
		if err := websocket.JSON.Receive(conn, &cmd); err != nil {
			h.logger.Debug("webchat: guided demo closed", "error", err)
			return
		}
		switch cmd.Type {
		case CommandTap:
			if err := seq.Tap(cmd.Label); err != nil {
				stream.SendError(err.Error())
			}
		case CommandReplay:
			seq.Replay()
		case CommandPing:
			stream.SendControl(frameTypePong)
		default:
			stream.SendError("unknown command " + cmd.Type)
		}
	}
}

// Escalate asks the assistant when the classifier gave up on free text and
// appends its answer. It returns nil when nothing was escalated or the
// assistant fell back to a canned reply.
func Escalate(ctx context.Context, responder Responder, machine *chat.Machine, text string) ([]chat.Message, error) {
	if responder == nil || !responder.Enabled() {
		return nil, nil
	}
	if machine.State() != chat.StateClarificationNeeded {
		return nil, nil
	}
	result, ok := machine.LastClassification()
	if !ok || !result.UseAI {
		return nil, nil
	}

	resp, err := responder.Respond(ctx, assistant.Request{
		Message:             text,
		ConversationHistory: historyTurns(machine.Messages()),
		Context: assistant.RequestContext{
			Mode:          "live",
			CurrentIntent: string(result.Intent),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webchat: escalate: %w", err)
	}
	if resp.Fallback {
		return nil, nil
	}
	return machine.AppendAssistantReply(resp.Response, resp.Chips), nil
}

func (h *Handler) escalate(ctx context.Context, id string, machine *chat.Machine, text string) []chat.Message {
	msgs, err := Escalate(ctx, h.assistant, machine, text)
	if err != nil {
		h.logger.WithSession(id).Warn("webchat: assistant escalation failed", "error", err)
		return nil
	}
	return msgs
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chat.Machine, bool) {
	id := chi.URLParam(r, "id")
	machine, err := h.store.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return machine, true
}

func (h *Handler) sessionResponse(id string, machine *chat.Machine, messages []chat.Message) SessionResponse {
	if messages == nil {
		messages = []chat.Message{}
	}
	return SessionResponse{
		SessionID:       id,
		State:           machine.State(),
		Messages:        messages,
		BookingComplete: machine.IsBookingComplete(),
		CTA:             machine.CallToAction(),
	}
}

// historyTurns drops the trailing clarification so the assistant sees the
// conversation as it was before the classifier gave up.
func historyTurns(messages []chat.Message) []assistant.Turn {
	if n := len(messages); n > 0 && messages[n-1].Type == chat.SenderAI {
		messages = messages[:n-1]
	}
	if n := len(messages); n > 0 && messages[n-1].Type == chat.SenderUser {
		messages = messages[:n-1]
	}
	turns := make([]assistant.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, assistant.Turn{Type: string(m.Type), Text: m.Text})
	}
	return turns
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
