package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/medspa-demo-receptionist/cmd/mainconfig"
	"github.com/wolfman30/medspa-demo-receptionist/internal/analytics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/app/bootstrap"
	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	appconfig "github.com/wolfman30/medspa-demo-receptionist/internal/config"
	"github.com/wolfman30/medspa-demo-receptionist/internal/scheduler"
	"github.com/wolfman30/medspa-demo-receptionist/internal/sequencer"
	"github.com/wolfman30/medspa-demo-receptionist/internal/webchat"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

const usage = `Type a message, "#<chip label>" to tap a chip, /reset to replay, /state to inspect, /quit to exit.`

func main() {
	_ = godotenv.Load()
	guided := flag.Bool("guided", false, "play the scripted guided demo instead of the live chat")
	useAI := flag.Bool("ai", false, "escalate unrecognized questions to the configured model backend")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New("error")
	if cfg.LogLevel == "debug" {
		logger = logging.NewWithWriter("debug", os.Stderr)
	}

	if *guided {
		sched := scheduler.NewTimer(logger)
		if err := runGuided(os.Stdin, os.Stdout, cfg.ClinicName, sched, logger); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var responder webchat.Responder
	if *useAI {
		ctx := context.Background()
		client, closeClient, err := bootstrap.BuildLLMClient(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
			return mainconfig.LoadAWSConfig(ctx, cfg)
		}, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer closeClient()
		responder = bootstrap.BuildAssistant(cfg, client, nil, logger)
	}

	r := &repl{machine: newMachine(cfg, logger), responder: responder, out: os.Stdout}
	if err := r.run(context.Background(), os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMachine(cfg *appconfig.Config, logger *logging.Logger) *chat.Machine {
	sink := analytics.NewLogSink(logger)
	return chat.New(
		chat.WithClinicName(cfg.ClinicName),
		chat.WithProvider(bootstrap.BuildSlotProvider(cfg)),
		chat.WithRecorder(analytics.RecorderFunc(func(e analytics.Event) {
			_ = sink.Write(context.Background(), e)
		})),
		chat.WithLogger(logger),
	)
}

// repl drives one live conversation from line-oriented input.
type repl struct {
	machine   *chat.Machine
	responder webchat.Responder
	out       io.Writer
	ctaShown  bool
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, usage)
	r.print(r.machine.Messages())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := r.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit" || line == "/exit":
		return true
	case line == "/reset":
		r.ctaShown = false
		r.print(r.machine.Reset())
	case line == "/state":
		snap := r.machine.Snapshot()
		fmt.Fprintf(r.out, "   state=%s intent=%s flags=%v booking=%+v\n", snap.State, snap.Intent, snap.FlagIDs, snap.Booking)
	case strings.HasPrefix(line, "#"):
		r.print(r.machine.ProcessInput(strings.TrimPrefix(line, "#"), true))
	default:
		msgs := r.machine.ProcessInput(line, false)
		extra, err := webchat.Escalate(ctx, r.responder, r.machine, line)
		if err != nil {
			fmt.Fprintf(r.out, "   (assistant unavailable: %v)\n", err)
		}
		r.print(append(msgs, extra...))
	}
	return false
}

func (r *repl) print(msgs []chat.Message) {
	for _, m := range msgs {
		if m.Type != chat.SenderAI {
			continue
		}
		fmt.Fprintf(r.out, "ai> %s\n", m.Text)
		for _, c := range m.Cards {
			fmt.Fprintln(r.out, cardLine(c))
		}
		if len(m.Chips) > 0 {
			fmt.Fprintf(r.out, "   %s\n", chipLine(m.Chips))
		}
		if m.RequiresInput != "" {
			fmt.Fprintf(r.out, "   (type your %s)\n", m.RequiresInput)
		}
	}
	if cta := r.machine.CallToAction(); cta.Ready && !r.ctaShown {
		r.ctaShown = true
		fmt.Fprintf(r.out, "   >> checkout ready: %s plan\n", cta.Plan)
	}
}

func chipLine(chips []chat.Chip) string {
	parts := make([]string, 0, len(chips))
	for _, c := range chips {
		parts = append(parts, "["+c.Label+"]")
	}
	return strings.Join(parts, " ")
}

func cardLine(c chat.Card) string {
	if c.Detail == "" {
		return "   * " + c.Title
	}
	return "   * " + c.Title + ": " + c.Detail
}

// runGuided plays the scripted demo. Each input line taps a chip by label;
// /replay restarts and /quit exits.
func runGuided(in io.Reader, out io.Writer, clinicName string, sched scheduler.Scheduler, logger *logging.Logger) error {
	var mu sync.Mutex
	done := make(chan struct{})
	var doneOnce sync.Once

	emit := func(ev sequencer.Event) {
		mu.Lock()
		defer mu.Unlock()
		printEvent(out, ev)
		if ev.Kind == sequencer.EventDone {
			doneOnce.Do(func() { close(done) })
		}
	}

	seq, err := sequencer.New(sequencer.DefaultScript(clinicName), sched, emit, sequencer.WithLogger(logger))
	if err != nil {
		return err
	}
	defer seq.Stop()
	seq.Start()

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(in, stop)

	for {
		select {
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/replay":
				seq.Replay()
			default:
				if err := seq.Tap(line); err != nil {
					mu.Lock()
					fmt.Fprintf(out, "   (%v)\n", err)
					mu.Unlock()
				}
			}
		}
	}
}

// readLines streams lines from in until EOF or until stop is closed. The
// returned channel is closed when the reader goroutine exits.
func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-stop:
				return
			default:
			}
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

func printEvent(out io.Writer, ev sequencer.Event) {
	switch ev.Kind {
	case sequencer.EventBubble:
		fmt.Fprintf(out, "ai> %s\n", ev.Text)
	case sequencer.EventChips:
		fmt.Fprintf(out, "   %s\n", chipLine(ev.Chips))
	case sequencer.EventPreview:
		fmt.Fprintf(out, "   (suggesting %s)\n", ev.Choice)
	case sequencer.EventCard:
		if ev.Card != nil {
			fmt.Fprintln(out, cardLine(*ev.Card))
		}
	case sequencer.EventRecap:
		fmt.Fprintf(out, "   %s\n", ev.Text)
	case sequencer.EventCTA:
		fmt.Fprintln(out, "   >> checkout ready")
	case sequencer.EventDone:
		fmt.Fprintln(out, "   (demo finished)")
	}
}
