// Package runtime assembles a recording session from configuration and
// runs it until the context is cancelled or the user quits.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-scribe/internal/bus"
	"github.com/loqalabs/loqa-scribe/internal/config"
	"github.com/loqalabs/loqa-scribe/internal/controls"
	"github.com/loqalabs/loqa-scribe/internal/display"
	"github.com/loqalabs/loqa-scribe/internal/export"
	"github.com/loqalabs/loqa-scribe/internal/natsserver"
	"github.com/loqalabs/loqa-scribe/internal/notify"
	"github.com/loqalabs/loqa-scribe/internal/session"
	"github.com/loqalabs/loqa-scribe/internal/stt"
)

type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer

	httpServer  *http.Server
	tracerClose func(context.Context) error
	metrics     http.Handler
	embedded    *natsserver.EmbeddedServer
	bus         *bus.Client
	controller  *session.Controller
	ready       atomic.Bool
	wg          sync.WaitGroup
}

type Option func(*Runtime)

// WithIO replaces stdin and stdout for the controls and the terminal display.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Runtime) {
		r.in = in
		r.out = out
	}
}

func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:    cfg,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry
	r.metrics = metricHandler

	if r.cfg.HTTP.Enabled {
		r.startHTTP()
	}

	if err := r.startBus(ctx); err != nil {
		r.shutdown()
		return err
	}

	rec, err := stt.Open(r.cfg.STT, r.bus, r.logger)
	if err != nil {
		// The controller reports this to the user and leaves the controls inert.
		r.logger.Warn("speech recognizer unavailable", slog.String("error", err.Error()))
		rec = nil
	}

	r.controller = session.New(r.sessionDeps(rec), r.sessionOptions()...)
	if err := r.controller.Initialize(); err != nil {
		r.logger.Error("session not ready", slog.String("error", err.Error()))
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("session_id", r.controller.ID()),
		slog.Bool("recognizer_ready", r.controller.Ready()),
	)

	if r.cfg.Controls.Stdin {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			err := controls.New(r.controller, r.in, r.out).Run(ctx)
			switch {
			case errors.Is(err, controls.ErrQuit):
				r.logger.Info("quit requested")
				cancel()
			case err != nil && !errors.Is(err, context.Canceled):
				r.logger.Error("controls stopped", slog.String("error", err.Error()))
			}
		}()
	}

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.shutdown()
	return nil
}

func (r *Runtime) startHTTP() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()
	r.logger.Info("http server listening", slog.String("addr", addr))
}

// startBus brings up the bus only when the nats recognizer needs it.
func (r *Runtime) startBus(ctx context.Context) error {
	if !r.cfg.STT.Enabled || r.cfg.STT.Mode != "nats" {
		return nil
	}

	busCfg := r.cfg.Bus
	if busCfg.Embedded {
		server, err := natsserver.Start(busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		r.embedded = server
		busCfg.Servers = []string{server.ClientURL()}
	}

	client, err := bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	r.bus = client
	return nil
}

func (r *Runtime) sessionDeps(rec stt.Recognizer) session.Deps {
	var alerter notify.Alerter = notify.Log{Logger: r.logger}
	if r.cfg.Display.Notify {
		alerter = notify.Desktop{}
	}

	deps := session.Deps{
		Surface:  display.NewTerminal(r.out, r.cfg.Display.ANSI),
		Exporter: export.New(export.NewDir(r.cfg.Export.Directory), r.cfg.Session.TimestampLayout),
		Alerter:  alerter,
		Logger:   r.logger,
	}
	if rec != nil {
		deps.Recognizer = rec
	}
	return deps
}

func (r *Runtime) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithTimestampLayout(r.cfg.Session.TimestampLayout),
		session.WithLanguage(r.cfg.STT.Language),
	}
	if restart := r.cfg.Session.Restart; restart.Backoff {
		opts = append(opts, session.WithRestartBackoff(
			time.Duration(restart.InitialMS)*time.Millisecond,
			time.Duration(restart.MaxMS)*time.Millisecond,
			restart.Multiplier,
		))
	}
	return opts
}

func (r *Runtime) shutdown() {
	r.ready.Store(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if r.controller != nil {
		r.controller.Close()
	}
	if r.bus != nil {
		r.bus.Close()
	}
	r.embedded.Shutdown()

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && (r.bus == nil || r.bus.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
