package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/message"
	"github.com/forgebuild/forge/task"
)

func TestRenderThrottling(t *testing.T) {
	registry := task.NewRegistry()
	var renders int

	m, _ := newTestMessenger(
		WithRegistry(registry),
		WithRenderCallback(func() { renders++ }))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	err := m.Session().SimpleTask(context.Background(), "loading",
		func(ctx context.Context, tk *task.Task) error {
			// A burst of updates well inside the render interval fires the
			// callback at most once.
			for i := 0; i < 100; i++ {
				tk.Add(1)
			}
			assert.LessOrEqual(t, renders, 1)
			burst := renders

			// Once the deadline passes, the next update renders exactly once
			// more and reschedules from the render time.
			now = now.Add(1100 * time.Millisecond)
			tk.Add(1)
			assert.Equal(t, burst+1, renders)
			tk.Add(1)
			assert.Equal(t, burst+1, renders)
			return nil
		})
	require.NoError(t, err)
}

func TestRenderDeadlineLifecycle(t *testing.T) {
	registry := task.NewRegistry()
	m, _ := newTestMessenger(WithRegistry(registry), WithRenderCallback(func() {}))

	assert.True(t, m.nextRender.IsZero())

	err := m.Session().SimpleTask(context.Background(), "outer",
		func(ctx context.Context, tk *task.Task) error {
			assert.False(t, m.nextRender.IsZero())
			return m.Session().SimpleTask(ctx, "inner",
				func(ctx context.Context, tk *task.Task) error {
					return nil
				})
		})
	require.NoError(t, err)

	// Cleared again once the last task is removed.
	assert.True(t, m.nextRender.IsZero())
}

func TestRenderWithoutCallback(t *testing.T) {
	registry := task.NewRegistry()
	m, _ := newTestMessenger(WithRegistry(registry))

	err := m.Session().SimpleTask(context.Background(), "loading",
		func(ctx context.Context, tk *task.Task) error {
			tk.Add(1)
			return nil
		})
	require.NoError(t, err)
}

func TestTestSuiteEnvZeroesDisplayLimit(t *testing.T) {
	t.Setenv(EnvTestSuite, "1")
	m := New(WithHandler(func(*message.Message) {}))
	assert.Equal(t, time.Duration(0), m.displayLimit)
}

func TestRunID(t *testing.T) {
	a := New(WithHandler(func(*message.Message) {}))
	b := New(WithHandler(func(*message.Message) {}))

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
}

// countingObserver records observer notifications.
type countingObserver struct {
	messages map[message.Kind]int
	tasks    int
	renders  int
	jobs     int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{messages: make(map[message.Kind]int)}
}

func (o *countingObserver) MessageObserved(kind message.Kind) { o.messages[kind]++ }
func (o *countingObserver) TaskStarted()                      { o.tasks++ }
func (o *countingObserver) TaskStopped()                      { o.tasks-- }
func (o *countingObserver) StatusRendered()                   { o.renders++ }
func (o *countingObserver) JobOpened()                        { o.jobs++ }
func (o *countingObserver) JobClosed()                        { o.jobs-- }

func TestObserverNotifications(t *testing.T) {
	registry := task.NewRegistry()
	observer := newCountingObserver()
	m, _ := newTestMessenger(WithRegistry(registry), WithObserver(observer))
	s := m.Session()

	err := s.RecordedMessages("build/gcc/1", "", "build-gcc", t.TempDir(), func(string) error {
		return s.SimpleTask(context.Background(), "loading",
			func(ctx context.Context, tk *task.Task) error {
				return nil
			})
	})
	require.NoError(t, err)

	assert.Equal(t, 1, observer.messages[message.Start])
	assert.Equal(t, 1, observer.messages[message.Success])
	assert.Equal(t, 0, observer.tasks)
	assert.Equal(t, 0, observer.jobs)
}
