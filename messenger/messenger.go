// Package messenger multiplexes activity records from many concurrent
// build jobs into a single operator-facing stream.
//
// One Messenger is constructed by the process orchestrator and threaded
// explicitly into everything that reports progress; there is no hidden
// global. Each worker execution context obtains its own Session, which
// tracks the context's active job recording and silencing state. Records
// funnel through Session.Message: they are persisted to the active job
// log, stamped with job identity, and forwarded upstream unless silenced.
//
// The package also owns render throttling for task progress: however
// often tasks update, the render callback fires at most once per second.
package messenger

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgebuild/forge/message"
	"github.com/forgebuild/forge/task"
)

// renderInterval bounds how often the status render callback may fire.
const renderInterval = time.Second

// displayLimit is the elapsed time beyond which a finished task reports
// its progress summary. Zeroed under the test suite so tests are not
// timing sensitive.
const displayLimit = 3 * time.Second

// EnvTestSuite, when set in the environment, zeroes the progress summary
// display limit.
const EnvTestSuite = "FORGE_TEST_SUITE"

// Handler receives every record that survives silencing. It is installed
// once before concurrent use begins and must not block for long.
type Handler func(msg *message.Message)

// Observer receives lifecycle notifications for monitoring. All methods
// may be called concurrently.
type Observer interface {
	// MessageObserved is called for every record entering the funnel.
	MessageObserved(kind message.Kind)

	// TaskStarted and TaskStopped track the active simple task count.
	TaskStarted()
	TaskStopped()

	// StatusRendered is called each time the render callback fires.
	StatusRendered()

	// JobOpened and JobClosed track active job recordings.
	JobOpened()
	JobClosed()
}

// Messenger is the root of the reporting subsystem.
type Messenger struct {
	handler  Handler
	renderCB func()
	registry *task.Registry
	observer Observer
	runID    string

	displayLimit time.Duration

	// now is replaceable for tests.
	now func() time.Time

	// Shared across sessions, guarded by mu.
	mu            sync.Mutex
	globalSilence int
	activeTasks   int
	nextRender    time.Time
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithHandler installs the upstream handler. A Messenger without a
// handler panics on first use; the handler is mandatory in practice and
// an Option only so construction order stays flexible.
func WithHandler(h Handler) Option {
	return func(m *Messenger) { m.handler = h }
}

// WithRenderCallback installs the throttled status render callback.
func WithRenderCallback(cb func()) Option {
	return func(m *Messenger) { m.renderCB = cb }
}

// WithRegistry installs the task registry. Without one, simple task
// scopes degrade to plain timed activities.
func WithRegistry(r *task.Registry) Option {
	return func(m *Messenger) { m.registry = r }
}

// WithObserver installs a monitoring observer.
func WithObserver(o Observer) Option {
	return func(m *Messenger) { m.observer = o }
}

// New creates a Messenger.
func New(opts ...Option) *Messenger {
	m := &Messenger{
		runID:        uuid.NewString(),
		displayLimit: displayLimit,
		now:          time.Now,
	}
	if _, ok := os.LookupEnv(EnvTestSuite); ok {
		m.displayLimit = 0
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID returns the unique identifier of this messenger instance,
// suitable for labelling metrics and logs from one orchestrator run.
func (m *Messenger) RunID() string {
	return m.runID
}

// Session creates an execution context. Every worker goroutine hosting
// jobs gets its own Session; the coordinating goroutine uses one too,
// it simply never begins a job recording.
func (m *Messenger) Session() *Session {
	return &Session{m: m}
}

// taskAdded registers one more active simple task. The first task after
// a quiescent period schedules the next render one interval out.
func (m *Messenger) taskAdded() {
	m.mu.Lock()
	m.activeTasks++
	if m.nextRender.IsZero() {
		m.nextRender = m.now().Add(renderInterval)
	}
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.TaskStarted()
	}
}

// taskRemoved drops one active simple task, clearing the render deadline
// when the last task goes away.
func (m *Messenger) taskRemoved() {
	m.mu.Lock()
	m.activeTasks--
	if m.activeTasks == 0 {
		m.nextRender = time.Time{}
	}
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.TaskStopped()
	}
}

// renderStatus invokes the render callback if the shared deadline has
// passed, then reschedules one interval from the actual render time so
// slow consumers do not cause catch-up bursts.
func (m *Messenger) renderStatus() {
	m.mu.Lock()
	now := m.now()
	if m.renderCB == nil || m.nextRender.IsZero() || now.Before(m.nextRender) {
		m.mu.Unlock()
		return
	}
	m.nextRender = now.Add(renderInterval)
	cb := m.renderCB
	m.mu.Unlock()

	cb()
	if m.observer != nil {
		m.observer.StatusRendered()
	}
}

// silenceGlobally increments the global silence depth, used when no job
// context is active.
func (m *Messenger) silenceGlobally() {
	m.mu.Lock()
	m.globalSilence++
	m.mu.Unlock()
}

// unsilenceGlobally decrements the global silence depth.
func (m *Messenger) unsilenceGlobally() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalSilence <= 0 {
		panic("unbalanced silence scope exit")
	}
	m.globalSilence--
}

// globallySilenced reports whether the global silence depth is nonzero.
func (m *Messenger) globallySilenced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalSilence > 0
}
