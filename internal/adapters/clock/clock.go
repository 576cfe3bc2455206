// Package clock provides the ports.Clock implementation.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// System reports time from a clockwork.Clock in a fixed location.
type System struct {
	base clockwork.Clock
	loc  *time.Location
}

// NewSystem returns the wall clock in loc; nil means the process local zone.
func NewSystem(loc *time.Location) *System {
	return New(clockwork.NewRealClock(), loc)
}

// New wraps base, which tests usually pass as a clockwork fake clock.
func New(base clockwork.Clock, loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{base: base, loc: loc}
}

// Now returns the current time in the configured location.
func (c *System) Now() time.Time {
	return c.base.Now().In(c.loc)
}
