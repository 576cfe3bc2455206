package app

import (
	"sync"
	"time"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

// State is the run state of the service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Snapshot is a point-in-time view of the lifecycle, served by the status endpoint.
type Snapshot struct {
	State  State
	Since  time.Time
	Reason string
}

// Lifecycle guards the service state machine and tracks background workers
// (HTTP listener, directory watcher).
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	since    time.Time
	reason   string
	wg       sync.WaitGroup
	logger   log.Logger
	onChange func(previous, current State, reason string)
}

// NewLifecycle creates a lifecycle in StateStopped. onChange may be nil.
func NewLifecycle(logger log.Logger, onChange func(previous, current State, reason string)) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{
		state:    StateStopped,
		since:    time.Now(),
		logger:   logger,
		onChange: onChange,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Snapshot returns the state together with when and why it was entered.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{State: l.state, Since: l.since, Reason: l.reason}
}

// TransitionTo moves to newState if the transition is allowed.
//
//	Stopped  -> Starting
//	Starting -> Running | Stopping | Crashed
//	Running  -> Stopping | Crashed
//	Stopping -> Stopped | Crashed
//	Crashed  -> Starting | Stopped
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if err := checkTransition(oldState, newState); err != nil {
		l.mu.Unlock()
		return err
	}

	l.state = newState
	l.since = time.Now()
	l.reason = reason
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

func checkTransition(from, to State) error {
	allowed := false
	switch from {
	case StateStopped:
		allowed = to == StateStarting
	case StateStarting:
		allowed = to == StateRunning || to == StateStopping || to == StateCrashed
	case StateRunning:
		allowed = to == StateStopping || to == StateCrashed
	case StateStopping:
		allowed = to == StateStopped || to == StateCrashed
	case StateCrashed:
		allowed = to == StateStarting || to == StateStopped
	}
	if allowed {
		return nil
	}
	if from == StateStopped || from == StateCrashed {
		return domain.ErrNotRunning
	}
	return domain.ErrAlreadyRunning
}

// CanStart reports whether Start may be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop reports whether Stop may be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting || l.state == StateCrashed
}

// Go runs fn as a tracked worker.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// Returns domain.ErrShutdownTimeout if the timeout expires first.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit", log.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
