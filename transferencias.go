// Package transferencias runs the store transfer service: a JSON API over a
// directory of per-record files plus the browser frontend that drives it.
//
// Example usage:
//
//	cfg := transferencias.DefaultConfig()
//	cfg.DataDir = "/var/lib/transferencias"
//	svc, err := transferencias.New(cfg, transferencias.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop()
package transferencias

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/Weatherlly/sr-transferencias/internal/adapters/clock"
	fsAdapter "github.com/Weatherlly/sr-transferencias/internal/adapters/fs"
	"github.com/Weatherlly/sr-transferencias/internal/app"
	"github.com/Weatherlly/sr-transferencias/internal/cliconfig"
	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/internal/httpapi"
	"github.com/Weatherlly/sr-transferencias/internal/metrics"
	"github.com/Weatherlly/sr-transferencias/internal/watcher"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
	"github.com/Weatherlly/sr-transferencias/web"
)

// Config holds the service configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// State is the run state reported by Status.
type State = app.State

const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Errors returned by Start and Stop.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// Service is the transfer service. Use New() to create an instance, then
// Start() to begin serving.
type Service struct {
	config    Config
	opts      options
	logger    log.Logger
	lifecycle *app.Lifecycle
	store     *fsAdapter.RecordStore
	transfers *app.TransferService
	handler   http.Handler
	watcher   *watcher.Watcher

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
	cancel context.CancelFunc
}

// New creates a Service in StateStopped.
// Returns an error if the configuration is invalid or the frontend cannot be loaded.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	clk := o.clock
	if clk == nil {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		clk = clock.NewSystem(loc)
	}

	static, err := resolveStatic(cfg, o)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config: cfg,
		opts:   o,
		logger: logger,
	}

	s.lifecycle = app.NewLifecycle(logger, o.onStateChange)
	s.store = fsAdapter.NewRecordStore(cfg.DataDir, logger)
	s.transfers = app.NewTransferService(s.store, clk, logger)

	if cfg.Watch {
		s.watcher = watcher.New(watcher.Config{
			Dir:    cfg.DataDir,
			Filter: fsAdapter.IsRecordFile,
		}, s.onDirChange, logger)
	}

	s.handler = httpapi.New(s.transfers, logger, httpapi.Options{
		MaxBodyBytes:   int64(cfg.MaxBodyBytes),
		RequestTimeout: cfg.WriteTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		Static:         static,
		Metrics:        cfg.Metrics,
		Status:         s.status,
	}).Handler()

	return s, nil
}

// resolveStatic picks the frontend: an explicit option, then StaticDir, then the embedded copy.
func resolveStatic(cfg Config, o options) (fs.FS, error) {
	if o.static != nil {
		return o.static, nil
	}
	if cfg.StaticDir != "" {
		info, err := os.Stat(cfg.StaticDir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: static dir %s is not a directory", domain.ErrInvalidConfig, cfg.StaticDir)
		}
		return os.DirFS(cfg.StaticDir), nil
	}
	static, err := web.Static()
	if err != nil {
		return nil, fmt.Errorf("embedded frontend: %w", err)
	}
	return static, nil
}

// Start binds the listener and serves in the background.
// Returns immediately once the listener is bound.
// ctx bounds the directory watcher; the HTTP server runs until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	ln := s.opts.listener
	s.opts.listener = nil
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.config.Address())
		if err != nil {
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "listen failed")
			return fmt.Errorf("listen %s: %w", s.config.Address(), err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	if s.watcher != nil {
		w := s.watcher
		s.lifecycle.Go(func() {
			if err := w.Run(runCtx); err != nil {
				s.logger.Error("directory watcher stopped", log.Err(err))
			}
		})
	}

	srv := s.server
	s.lifecycle.Go(func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", log.Err(err))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	s.logger.Info("serving transfers",
		log.String("addr", ln.Addr().String()),
		log.String("data_dir", s.config.DataDir),
		log.Bool("watch", s.watcher != nil),
	)
	return s.lifecycle.TransitionTo(app.StateRunning, "listener bound")
}

// Stop gracefully shuts down the HTTP server and the watcher.
// In-flight requests get up to ShutdownTimeout to finish.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (s *Service) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if s.lifecycle.State() != app.StateCrashed {
		if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()

	timeout := s.config.ShutdownTimeout
	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()

	var err error
	if srv != nil {
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			s.logger.Warn("graceful shutdown incomplete", log.Err(shutdownErr))
			_ = srv.Close()
			err = domain.ErrShutdownTimeout
		}
	}
	if cancel != nil {
		cancel()
	}
	if waitErr := s.lifecycle.WaitWithTimeout(timeout); waitErr != nil && err == nil {
		err = waitErr
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() State {
	return s.lifecycle.State()
}

// Addr returns the bound listen address, or nil before the first Start.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the HTTP handler, for mounting the service in another server.
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) status() httpapi.Status {
	snap := s.lifecycle.Snapshot()
	st := httpapi.Status{
		State:    snap.State.String(),
		Since:    snap.Since,
		DataDir:  s.store.Dir(),
		Watching: s.watcher != nil,
	}
	if s.watcher != nil {
		if last := s.watcher.LastChange(); !last.IsZero() {
			st.LastChange = &last
		}
	}
	return st
}

// onDirChange reports every record file added to or removed from the data directory,
// whether the change came through the API or from outside it.
func (s *Service) onDirChange(ev watcher.Event) {
	metrics.DirectoryChanges.WithLabelValues(string(ev.Op)).Inc()
	s.logger.Info("transfer directory changed",
		log.String("file", ev.File),
		log.String("op", string(ev.Op)),
		log.Time("at", ev.At),
	)
	if s.opts.onDirChange != nil {
		s.opts.onDirChange(ev.File, string(ev.Op), ev.At)
	}
}
