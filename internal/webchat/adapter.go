package webchat

import (
	"sync"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/sequencer"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
	"golang.org/x/net/websocket"
)

// Guided demo client commands.
const (
	CommandTap    = "tap"
	CommandReplay = "replay"
	CommandPing   = "ping"
)

const (
	frameTypeEvent = "event"
	frameTypeError = "error"
	frameTypePong  = "pong"
)

// GuidedCommand is what the guided demo client sends.
type GuidedCommand struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// GuidedFrame is what the guided demo client receives.
type GuidedFrame struct {
	Type      string           `json:"type"`
	Event     *sequencer.Event `json:"event,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// eventStream writes sequencer events to a WebSocket. Timer callbacks and
// the receive loop both send, so writes are serialized.
type eventStream struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *logging.Logger
	closed bool
}

func newEventStream(conn *websocket.Conn, logger *logging.Logger) *eventStream {
	if logger == nil {
		logger = logging.Default()
	}
	return &eventStream{conn: conn, logger: logger}
}

// Send matches the sequencer emit callback.
func (s *eventStream) Send(ev sequencer.Event) {
	s.write(GuidedFrame{Type: frameTypeEvent, Event: &ev})
}

func (s *eventStream) SendError(msg string) {
	s.write(GuidedFrame{Type: frameTypeError, Error: msg})
}

func (s *eventStream) SendControl(frameType string) {
	s.write(GuidedFrame{Type: frameType})
}

func (s *eventStream) write(frame GuidedFrame) {
	frame.Timestamp = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := websocket.JSON.Send(s.conn, frame); err != nil {
		s.closed = true
		s.logger.Debug("webchat: guided stream write failed", "error", err)
	}
}
