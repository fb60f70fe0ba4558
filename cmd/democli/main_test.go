package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-demo-receptionist/internal/assistant"
	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
	"github.com/wolfman30/medspa-demo-receptionist/internal/scheduler"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type stubResponder struct {
	reply string
	calls int
}

func (s *stubResponder) Enabled() bool { return true }

func (s *stubResponder) Respond(_ context.Context, req assistant.Request) (assistant.Response, error) {
	s.calls++
	return assistant.Response{Response: s.reply, Chips: []string{chat.LabelPricing}}, nil
}

func newTestREPL(responder *stubResponder) (*repl, *bytes.Buffer) {
	clock := func() time.Time { return testNow }
	machine := chat.New(
		chat.WithClock(clock),
		chat.WithProvider(schedule.NewProvider(schedule.WithClock(clock))),
		chat.WithClinicName("Radiance Aesthetics"),
		chat.WithLogger(logging.New("error")),
	)
	out := &bytes.Buffer{}
	r := &repl{machine: machine, out: out}
	if responder != nil {
		r.responder = responder
	}
	return r, out
}

func TestREPL_BookingFlow(t *testing.T) {
	r, out := newTestREPL(nil)
	input := strings.Join([]string{
		"#Book Botox",
		"No",
		"#Thursday 2:30 PM",
		"Jane",
		"5551234567",
		"/quit",
		"ignored after quit",
	}, "\n")

	require.NoError(t, r.run(context.Background(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "Radiance Aesthetics")
	assert.Contains(t, text, "[Book Botox] [See pricing] [Reschedule] [Ask a question]")
	assert.Contains(t, text, "(type your name)")
	assert.Contains(t, text, "(type your phone)")
	assert.Contains(t, text, "(555) 123-4567")
	assert.Equal(t, 1, strings.Count(text, ">> checkout ready: pilot plan"))
	assert.True(t, r.machine.IsBookingComplete())
}

func TestREPL_ResetAndState(t *testing.T) {
	r, out := newTestREPL(nil)

	require.NoError(t, r.run(context.Background(), strings.NewReader("#See pricing\n/state\n/reset\n/state\n")))

	text := out.String()
	assert.Contains(t, text, "state=pricing_response")
	assert.Contains(t, text, "state=greeting")
	assert.Equal(t, chat.StateGreeting, r.machine.State())
}

func TestREPL_EscalatesUnknownText(t *testing.T) {
	responder := &stubResponder{reply: "We have free parking out front."}
	r, out := newTestREPL(responder)

	require.NoError(t, r.run(context.Background(), strings.NewReader("asdkjhasd\n")))

	assert.Equal(t, 1, responder.calls)
	assert.Contains(t, out.String(), "ai> We have free parking out front.")
	assert.Equal(t, chat.StateIntentDetection, r.machine.State())
}

func TestREPL_NoResponderKeepsClarification(t *testing.T) {
	r, _ := newTestREPL(nil)

	require.NoError(t, r.run(context.Background(), strings.NewReader("asdkjhasd\n")))

	assert.Equal(t, chat.StateClarificationNeeded, r.machine.State())
}

func TestNewMachineUsesConfiguredClinic(t *testing.T) {
	m := newMachine(&appconfig.Config{ClinicName: "Radiance Aesthetics"}, logging.New("error"))

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Radiance Aesthetics")
}

// syncBuffer guards output written from timer callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunGuided_PlaysScriptToCompletion(t *testing.T) {
	sched := scheduler.NewManual()
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	done := make(chan error, 1)
	go func() {
		done <- runGuided(pr, out, "Radiance Aesthetics", sched, logging.New("error"))
	}()

	waitFor := func(substr string) {
		t.Helper()
		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), substr)
		}, 2*time.Second, 5*time.Millisecond, "waiting for %q", substr)
	}
	send := func(line string) {
		t.Helper()
		_, err := io.WriteString(pw, line+"\n")
		require.NoError(t, err)
	}

	waitFor("ai> Hi! I'm the virtual receptionist for Radiance Aesthetics.")
	sched.Advance(3 * time.Second)
	waitFor("[Botox] [Fillers] [Laser] [Facials]")

	send("Nope")
	waitFor("choice not offered")
	send("Fillers")
	waitFor("Is this your first visit")
	send("Touch-up")
	waitFor("You're booked for Thursday")

	sched.Advance(10 * time.Second)
	waitFor("Fillers, Touch-up, Thursday 2:30 PM")
	waitFor("Want this answering")

	send("Start pilot")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runGuided did not return after the demo finished")
	}

	text := out.String()
	assert.Contains(t, text, "* Added to Calendar: Thursday 2:30 PM")
	assert.Contains(t, text, ">> checkout ready")
	assert.Contains(t, text, "(demo finished)")
}

func TestRunGuided_ReturnsAtEndOfInput(t *testing.T) {
	out := &syncBuffer{}

	err := runGuided(strings.NewReader("/replay\n"), out, "Radiance Aesthetics", scheduler.NewManual(), logging.New("error"))
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out.String(), "virtual receptionist for Radiance Aesthetics"))
}

func TestReadLines_StopsWithoutConsumer(t *testing.T) {
	stop := make(chan struct{})
	close(stop)

	lines := readLines(strings.NewReader("Botox\nFillers\n"), stop)

	select {
	case _, ok := <-lines:
		assert.False(t, ok, "no line should be delivered after stop")
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine did not exit after stop")
	}
}

func TestReadLines_DeliversUntilEOF(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	var got []string
	for line := range readLines(strings.NewReader("Botox\nFillers\n"), stop) {
		got = append(got, line)
	}
	assert.Equal(t, []string{"Botox", "Fillers"}, got)
}
