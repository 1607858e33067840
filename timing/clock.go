// Package timing measures elapsed wall-clock time for build activities
// while excluding intervals in which the whole process was suspended.
//
// If the operator stops the process group (SIGTSTP) in the middle of a
// build, the time spent stopped must not count against the activity. The
// host installs the clock's Pause and Resume methods as suspend hooks;
// Resume shifts the reference instant forward by exactly the paused
// interval so Elapsed reads true working time.
package timing

import (
	"sync"
	"time"
)

// Clock measures suspend-adjusted elapsed time for one activity.
//
// Pause and Resume may be invoked from a signal-handling goroutine at any
// time relative to other calls, so all state is mutex guarded. Both are
// no-ops when they do not apply (not started, not paused), since suspend
// hooks fire whether or not an activity is currently timed.
type Clock struct {
	mu       sync.Mutex
	start    time.Time
	pausedAt time.Time
	running  bool
	paused   bool

	// now is replaceable for tests.
	now func() time.Time
}

// NewClock creates a stopped clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start captures the reference instant. Restarting resets the clock.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.now()
	c.running = true
	c.paused = false
}

// Pause marks the beginning of a suspended interval.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused {
		return
	}
	c.pausedAt = c.now()
	c.paused = true
}

// Resume ends a suspended interval, shifting the reference instant
// forward by the time spent paused.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.paused {
		return
	}
	c.start = c.start.Add(c.now().Sub(c.pausedAt))
	c.paused = false
}

// Elapsed returns the suspend-adjusted time since Start. While paused it
// reports the elapsed time up to the pause instant. A clock that was
// never started reports zero.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	if c.paused {
		return c.pausedAt.Sub(c.start)
	}
	return c.now().Sub(c.start)
}
