package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeNow provides a controllable time source.
type fakeNow struct {
	t time.Time
}

func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }
func (f *fakeNow) now() time.Time          { return f.t }

func newTestClock() (*Clock, *fakeNow) {
	fake := &fakeNow{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewClock()
	c.now = fake.now
	return c, fake
}

func TestClockExcludesPausedIntervals(t *testing.T) {
	c, now := newTestClock()
	c.Start()

	// First suspension.
	now.advance(2 * time.Second)
	c.Pause()
	now.advance(10 * time.Second)
	c.Resume()

	// Second suspension.
	now.advance(1 * time.Second)
	c.Pause()
	now.advance(30 * time.Second)
	c.Resume()

	now.advance(4 * time.Second)
	assert.Equal(t, 7*time.Second, c.Elapsed())
}

func TestClockWhilePaused(t *testing.T) {
	c, now := newTestClock()
	c.Start()

	now.advance(3 * time.Second)
	c.Pause()
	now.advance(time.Minute)

	// Elapsed is frozen at the pause instant.
	assert.Equal(t, 3*time.Second, c.Elapsed())
}

func TestClockHooksAreSafeWhenIdle(t *testing.T) {
	c := NewClock()

	// Suspend hooks may fire when no activity is timed.
	c.Pause()
	c.Resume()
	assert.Equal(t, time.Duration(0), c.Elapsed())

	c.Start()
	// Resume without a matching pause is a no-op.
	c.Resume()
	// Double pause keeps the first pause instant.
	c.Pause()
	c.Pause()
}

func TestClockRealTime(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(20 * time.Millisecond)

	elapsed := c.Elapsed()
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}
