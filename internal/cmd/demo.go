package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/permission"
	"github.com/GriffinCanCode/confbridge/internal/domain/router"
	"github.com/GriffinCanCode/confbridge/internal/domain/session"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
	"github.com/GriffinCanCode/confbridge/internal/simulator"
)

type demoOptions struct {
	profile string
	params  types.ConnectionParams
	roster  []string
	hold    time.Duration
	latency time.Duration
	deny    bool
	verbose bool
	timeout time.Duration
}

func newDemoCmd() *cobra.Command {
	opts := demoOptions{
		params: types.ConnectionParams{
			Portal:          "demo.platform.vidyo.io",
			RoomKey:         "demo",
			Name:            "Guest",
			MaxParticipants: types.DefaultMaxParticipants,
		},
	}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted call against the engine simulator",
		Long: `Open a conference, connect, hold the call, disconnect and close, printing
every event as a JSON line.

Room coordinates come from --profile (a YAML file) or the individual flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.profile != "" {
				params, err := config.LoadProfile(opts.profile)
				if err != nil {
					return err
				}
				opts.params = params
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", "", "YAML room profile")
	f.StringVar(&opts.params.Portal, "portal", opts.params.Portal, "Portal host")
	f.StringVar(&opts.params.RoomKey, "room", opts.params.RoomKey, "Room key")
	f.StringVar(&opts.params.Name, "name", opts.params.Name, "Display name")
	f.BoolVar(&opts.params.Debug, "debug", false, "Enable engine debug logging")
	f.StringSliceVar(&opts.roster, "roster", []string{"Alice"}, "Remote participants in the room")
	f.DurationVar(&opts.hold, "hold", 500*time.Millisecond, "How long to stay connected")
	f.DurationVar(&opts.latency, "latency", 100*time.Millisecond, "Simulated network latency")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Give up waiting for the engine after this long")
	f.BoolVar(&opts.deny, "deny", false, "Decline capture permissions")
	f.BoolVar(&opts.verbose, "verbose", false, "Log controller activity to stderr")

	return cmd
}

func runDemo(ctx context.Context, w io.Writer, opts demoOptions) error {
	out := &lockedWriter{w: w}
	logger := logging.NewNop()
	if opts.verbose {
		logger = logging.NewDevelopment()
	}

	rt := simulator.New(
		simulator.WithConnectLatency(opts.latency),
		simulator.WithRoster(opts.roster...),
		simulator.WithLogger(logger),
	)
	defer rt.Close()

	events := router.New(logger)
	defer events.Close()

	defaults := session.DefaultConfig()
	ctrl, err := session.NewController(session.Deps{
		Router:      events,
		Lifecycle:   engine.NewLifecycle(rt).WithLogger(logger),
		Permissions: permission.NewGate(permission.NewStaticPrompter(!opts.deny), logger),
		Logger:      logger,
	}, defaults)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown(context.Background())

	seen := make(chan types.Event, 64)
	ctrl.Subscribe(func(ev types.Event) {
		if line, err := sonic.MarshalString(ev); err == nil {
			fmt.Fprintln(out, line)
		}
		select {
		case seen <- ev:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if err := ctrl.Open(ctx, opts.params); err != nil {
		return flushed(events, fmt.Errorf("open: %w", err))
	}
	if err := ctrl.Connect(ctx); err != nil {
		return flushed(events, fmt.Errorf("connect: %w", err))
	}
	ev, err := waitFor(ctx, seen, types.EventConnected, types.EventFailed)
	if err != nil {
		return err
	}
	if ev.Type == types.EventFailed {
		return fmt.Errorf("connect failed: %s", ev.Reason)
	}

	select {
	case <-time.After(opts.hold):
	case <-ctx.Done():
		return ctx.Err()
	}

	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(snap.Participants))
	for i, p := range snap.Participants {
		names[i] = p.Name
	}
	fmt.Fprintf(out, "# %s with %d participant(s): %s\n", snap.State, len(names), strings.Join(names, ", "))

	if err := ctrl.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if _, err := waitFor(ctx, seen, types.EventDisconnected); err != nil {
		return err
	}
	return ctrl.Close(ctx)
}

// waitFor drains events until one of the wanted types arrives
func waitFor(ctx context.Context, seen <-chan types.Event, want ...types.EventType) (types.Event, error) {
	for {
		select {
		case ev := <-seen:
			for _, w := range want {
				if ev.Type == w {
					return ev, nil
				}
			}
		case <-ctx.Done():
			return types.Event{}, fmt.Errorf("waiting for %v: %w", want, ctx.Err())
		}
	}
}

// flushed lets the init event reach the output before err is reported
func flushed(events *router.Router, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = events.Flush(ctx)
	return err
}

// lockedWriter serializes writes from the delivery goroutine and the caller
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
