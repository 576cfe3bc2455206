package transferencias

import (
	"io/fs"
	"net"
	"time"

	"github.com/Weatherlly/sr-transferencias/internal/ports"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// Clock supplies the time used for record ids and timestamps.
type Clock = ports.Clock

// Option configures optional behavior of Service.
type Option func(*options)

type options struct {
	logger        log.Logger
	clock         ports.Clock
	static        fs.FS
	listener      net.Listener
	onStateChange func(previous, current State, reason string)
	onDirChange   func(file, op string, at time.Time)
}

func defaultOptions() options {
	return options{}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the system clock in the configured time zone.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithStaticFS serves the given file system at / instead of StaticDir or the embedded frontend.
func WithStaticFS(static fs.FS) Option {
	return func(o *options) {
		o.static = static
	}
}

// WithListener makes the first Start serve on ln instead of binding Host:Port.
func WithListener(ln net.Listener) Option {
	return func(o *options) {
		o.listener = ln
	}
}

// WithStateHandler is called synchronously on every lifecycle transition.
func WithStateHandler(fn func(previous, current State, reason string)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// WithDirChangeHandler is called for every debounced change in the data directory
// when watching is enabled. It runs on the watcher goroutine.
func WithDirChangeHandler(fn func(file, op string, at time.Time)) Option {
	return func(o *options) {
		o.onDirChange = fn
	}
}
