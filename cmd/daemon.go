package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/dedup"
	"github.com/cristianoliveira/ancs-intray/internal/feed"
	"github.com/cristianoliveira/ancs-intray/internal/hooks"
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/cristianoliveira/ancs-intray/internal/sim"
)

// errNoTransport is returned when no phone link is available to the daemon.
var errNoTransport = errors.New("no radio transport available in this build; use --simulate")

// startOptions configures one daemon session.
type startOptions struct {
	Simulate bool
	// Scenario is a TOML scenario file; empty uses the built-in scenario.
	Scenario string
	// TraceOut, when set, receives the debug-level engine trace instead of the log file.
	TraceOut io.Writer
	// Listen serves the websocket feed on this address; empty falls back to feed_listen.
	Listen string
	// Sinks receive every resolved notification after the inbox and hooks.
	Sinks []ancs.Sink
}

// daemonHandle is a running engine.
type daemonHandle interface {
	Snapshot(ctx context.Context) (ancs.Snapshot, error)
	Trigger(ctx context.Context, a ancs.Action) error
	// Wait blocks until the session has stopped and its sinks are flushed.
	Wait() error
}

type daemonStarter interface {
	Start(ctx context.Context, opts startOptions) (daemonHandle, error)
}

// simulationStarter runs the engine against a simulated phone.
type simulationStarter struct{}

func (simulationStarter) Start(ctx context.Context, opts startOptions) (daemonHandle, error) {
	if !opts.Simulate {
		return nil, errNoTransport
	}

	sc := sim.DefaultScenario()
	if opts.Scenario != "" {
		loaded, err := sim.LoadScenario(opts.Scenario)
		if err != nil {
			return nil, err
		}
		sc = loaded
	}

	logger := logging.GetGlobal()
	cfg := ancs.ConfigFromGlobal()
	if opts.TraceOut != nil {
		logger = logging.NewConsole(opts.TraceOut, "debug")
		cfg.Verbose = true
	}

	d := &daemon{}
	sinks := ancs.NewSinks(logger)
	if config.GetBool("inbox_enabled", true) {
		in, err := inbox.Open(config.Get("inbox_path", ""))
		if err != nil {
			return nil, fmt.Errorf("open inbox: %w", err)
		}
		d.inbox = in
		sinks.Add(in)
	}
	d.hooks = hooks.NewRunner(hooks.OptionsFromGlobal(), logger)
	if err := d.hooks.Init(); err != nil {
		colors.Warning("hooks disabled:", err.Error())
	} else {
		sinks.Add(hooks.NewSink(d.hooks))
	}
	listen := opts.Listen
	if listen == "" {
		listen = config.Get("feed_listen", "")
	}
	var hub *feed.Hub
	if listen != "" {
		hub = feed.NewHub(logger)
		srv, err := feed.Listen(listen, hub)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("feed: %w", err)
		}
		d.feed = srv
		sinks.Add(hub)
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Error("feed stopped", "error", err.Error())
			}
		}()
		colors.Info(fmt.Sprintf("streaming notifications on ws://%s%s", srv.Addr(), feed.Path))
	}
	// Caller sinks run after the inbox.
	for _, sink := range opts.Sinks {
		sinks.Add(sink)
	}

	peer, err := sim.NewPeer(sc, logger)
	if err != nil {
		d.close()
		return nil, err
	}
	d.dedup = dedup.New(sinks, dedup.OptionsFromGlobal(), logger)
	engine, err := ancs.New(cfg, ancs.Deps{Link: peer, Browser: peer, Clients: peer, Sink: d.dedup},
		ancs.WithLogger(logger))
	if err != nil {
		d.close()
		return nil, err
	}
	d.Engine = engine
	if hub != nil {
		hub.SetTrigger(engine)
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.runErr = engine.Run(ctx)
	}()
	go func() {
		defer d.wg.Done()
		// The peer stops with ErrEngineStopped once the engine is gone.
		_ = peer.Run(ctx, engine)
	}()

	if err := engine.Start(); err != nil {
		d.cancel()
		d.Wait()
		return nil, fmt.Errorf("start advertising: %w", err)
	}
	logger.Info("daemon started", "peer", sc.Peer, "notifications", len(sc.Notifications))
	return d, nil
}

type daemon struct {
	*ancs.Engine

	inbox  *inbox.Inbox
	hooks  *hooks.Runner
	dedup  *dedup.Filter
	feed   *feed.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
	runErr error
}

func (d *daemon) Wait() error {
	d.wg.Wait()
	d.cancel()
	d.close()
	if n := d.dedup.Suppressed(); n > 0 {
		colors.Info(fmt.Sprintf("suppressed %d duplicate notifications", n))
	}
	if errors.Is(d.runErr, context.Canceled) || errors.Is(d.runErr, context.DeadlineExceeded) {
		return nil
	}
	return d.runErr
}

func (d *daemon) close() {
	if d.feed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := d.feed.Shutdown(ctx); err != nil {
			colors.Warning("stop feed:", err.Error())
		}
		cancel()
	}
	if d.hooks != nil {
		d.hooks.Wait()
	}
	if d.inbox != nil {
		if err := d.inbox.Close(); err != nil {
			colors.Warning("close inbox:", err.Error())
		}
	}
}
