package messenger

import (
	"context"
	"fmt"

	"github.com/forgebuild/forge/fault"
	"github.com/forgebuild/forge/message"
	"github.com/forgebuild/forge/recorder"
	"github.com/forgebuild/forge/signals"
	"github.com/forgebuild/forge/task"
	"github.com/forgebuild/forge/timing"
)

// Session is the per-execution-context face of the Messenger.
//
// A Session is exclusively owned by one goroutine and carries that
// context's active job recording, replacing the thread-local state a
// host with real threads would use. Sessions are cheap; create one per
// worker.
type Session struct {
	m   *Messenger
	job *recorder.Job
}

// activityOptions collects the optional arguments of the scope entry
// points.
type activityOptions struct {
	elementName  string
	elementKey   string
	detail       string
	fullName     string
	silentNested bool
}

// ActivityOption configures a timed activity or simple task scope.
type ActivityOption func(*activityOptions)

// WithElementName attaches the owning element's full name to the scope's
// records.
func WithElementName(name string) ActivityOption {
	return func(o *activityOptions) { o.elementName = name }
}

// WithElementKey attaches the owning element's cache key to the scope's
// records.
func WithElementKey(key string) ActivityOption {
	return func(o *activityOptions) { o.elementKey = key }
}

// WithDetail attaches multi-line detail to the START record.
func WithDetail(detail string) ActivityOption {
	return func(o *activityOptions) { o.detail = detail }
}

// WithFullName sets the disambiguating task name for SimpleTask,
// defaulting to the activity name.
func WithFullName(name string) ActivityOption {
	return func(o *activityOptions) { o.fullName = name }
}

// SilentNested silences all but unconditional records emitted inside the
// scope's body.
func SilentNested(silent bool) ActivityOption {
	return func(o *activityOptions) { o.silentNested = silent }
}

// Message routes one record. This is the single funnel every record
// passes through.
//
// With a job recording active, the record is stamped with the job's
// identity, persisted to the job log, and, unless it is a pure Log
// record, forwarded upstream. Silencing is evaluated against the job's
// depth when a job is active and against the global depth otherwise;
// unconditional kinds always get through.
func (s *Session) Message(msg *message.Message) error {
	if s.m.handler == nil {
		panic("no message handler has been installed")
	}
	if s.m.observer != nil {
		s.m.observer.MessageObserved(msg.Kind)
	}

	if s.job != nil {
		s.stamp(msg)
		if err := s.job.Record(msg); err != nil {
			return err
		}
		// Log records exist only for the job's own log.
		if msg.Kind == message.Log {
			return nil
		}
	}

	if s.silenced() && !msg.Kind.Unconditional() {
		return nil
	}
	s.m.handler(msg)
	return nil
}

// stamp attaches job identity to a record, never overwriting fields the
// record already carries.
func (s *Session) stamp(msg *message.Message) {
	if msg.ActionName == "" {
		msg.ActionName = s.job.ActionName()
	}
	if msg.LogPath == "" {
		msg.LogPath = s.job.LogPath()
	}
	if msg.ElementKey == "" {
		msg.ElementKey = s.job.ElementKey()
	}
}

// silenced evaluates the effective silencing state for this context.
func (s *Session) silenced() bool {
	if s.job != nil {
		return s.job.Silenced()
	}
	return s.m.globallySilenced()
}

// Silence enters a silencing scope and returns its release function,
// which must run on every exit path (normally via defer). When
// actuallySilence is false the scope is a no-op, letting callers silence
// conditionally without branching. Releasing twice, like releasing a
// scope that was never entered, is a fatal logic error.
func (s *Session) Silence(actuallySilence bool) (release func()) {
	if !actuallySilence {
		return func() {}
	}

	if job := s.job; job != nil {
		job.Silence()
		released := false
		return func() {
			if released {
				panic("silence scope released twice")
			}
			released = true
			job.Unsilence()
		}
	}

	s.m.silenceGlobally()
	released := false
	return func() {
		if released {
			panic("silence scope released twice")
		}
		released = true
		s.m.unsilenceGlobally()
	}
}

// TimedActivity runs body as a named, timed, reported activity.
//
// A START record is emitted on entry and the body runs under a
// conditional silencing scope. On a recognized domain failure a FAIL
// record carrying the suspend-adjusted elapsed time is emitted and the
// error returned unchanged; the caller decides recovery. Any other error
// propagates without a FAIL record. On success a SUCCESS record with
// elapsed time is emitted.
func (s *Session) TimedActivity(ctx context.Context, activityName string, body func(ctx context.Context) error, opts ...ActivityOption) error {
	var o activityOptions
	for _, opt := range opts {
		opt(&o)
	}

	clock := timing.NewClock()
	clock.Start()
	releaseClock := signals.Suspendable(clock.Pause, clock.Resume)
	defer releaseClock()

	start := message.New(message.Start, activityName,
		message.WithDetail(o.detail),
		message.WithElementName(o.elementName),
		message.WithElementKey(o.elementKey))
	if err := s.Message(start); err != nil {
		return err
	}

	if err := s.runSilenced(ctx, o.silentNested, body); err != nil {
		if fault.Is(err) {
			_ = s.Message(message.New(message.Fail, activityName,
				message.WithElapsed(clock.Elapsed()),
				message.WithElementName(o.elementName),
				message.WithElementKey(o.elementKey)))
		}
		return err
	}

	return s.Message(message.New(message.Success, activityName,
		message.WithElapsed(clock.Elapsed()),
		message.WithElementName(o.elementName),
		message.WithElementKey(o.elementKey)))
}

// SimpleTask runs body as a timed activity that additionally tracks
// progress for status display.
//
// The body receives the registered task and updates its progress at
// will; every update drives the throttled render callback. The final
// SUCCESS record carries a progress summary when the activity ran longer
// than the display limit. Without a configured registry this degrades
// transparently to TimedActivity and the body receives a nil task.
func (s *Session) SimpleTask(ctx context.Context, activityName string, body func(ctx context.Context, t *task.Task) error, opts ...ActivityOption) error {
	var o activityOptions
	for _, opt := range opts {
		opt(&o)
	}

	if s.m.registry == nil {
		// The bypass keeps the element identity and nesting silence;
		// task-only options like detail do not apply to the plain
		// activity.
		return s.TimedActivity(ctx, activityName, func(ctx context.Context) error {
			return body(ctx, nil)
		}, WithElementName(o.elementName), WithElementKey(o.elementKey), SilentNested(o.silentNested))
	}

	fullName := o.fullName
	if fullName == "" {
		fullName = activityName
	}

	clock := timing.NewClock()
	clock.Start()
	releaseClock := signals.Suspendable(clock.Pause, clock.Resume)
	defer releaseClock()

	start := message.New(message.Start, activityName,
		message.WithElementName(o.elementName),
		message.WithElementKey(o.elementKey))
	if err := s.Message(start); err != nil {
		return err
	}

	t := s.m.registry.Add(activityName, fullName)
	t.SetRenderCallback(s.m.renderStatus)
	s.m.taskAdded()
	defer func() {
		s.m.registry.Remove(fullName)
		s.m.taskRemoved()
	}()

	if err := s.runSilenced(ctx, o.silentNested, func(ctx context.Context) error {
		return body(ctx, t)
	}); err != nil {
		if fault.Is(err) {
			_ = s.Message(message.New(message.Fail, activityName,
				message.WithElapsed(clock.Elapsed()),
				message.WithElementName(o.elementName),
				message.WithElementKey(o.elementKey)))
		}
		return err
	}

	elapsed := clock.Elapsed()
	success := message.New(message.Success, activityName,
		message.WithElapsed(elapsed),
		message.WithElementName(o.elementName),
		message.WithElementKey(o.elementKey))
	if current, ok := t.Current(); ok && elapsed > s.m.displayLimit {
		if maximum, ok := t.Maximum(); ok {
			success.Detail = fmt.Sprintf("%d of %d subtasks processed", current, maximum)
		} else {
			success.Detail = fmt.Sprintf("%d subtasks processed", current)
		}
	}
	return s.Message(success)
}

// RecordedMessages opens a job recording scope around body.
//
// Every record observed by this session while body runs is appended to
// logdir/filename.<pid>.log. The log handle is closed on every exit
// path, after which the session may host another job. Beginning a second
// recording while one is active is a fatal precondition violation.
func (s *Session) RecordedMessages(actionName, elementKey, filename, logdir string, body func(logPath string) error) (err error) {
	if s.job != nil {
		panic("job recording is already active in this execution context")
	}

	job, err := recorder.Begin(actionName, elementKey, filename, logdir)
	if err != nil {
		return err
	}
	s.job = job
	if s.m.observer != nil {
		s.m.observer.JobOpened()
	}

	defer func() {
		s.job = nil
		closeErr := job.Close()
		if err == nil {
			err = closeErr
		}
		if s.m.observer != nil {
			s.m.observer.JobClosed()
		}
	}()

	return body(job.LogPath())
}

// RecordingPath returns the log path of the active job recording.
// Calling it with no recording active is a fatal logic error.
func (s *Session) RecordingPath() string {
	if s.job == nil {
		panic("no job recording is active in this execution context")
	}
	return s.job.LogPath()
}

// runSilenced runs body under a conditional silencing scope.
func (s *Session) runSilenced(ctx context.Context, silent bool, body func(ctx context.Context) error) error {
	release := s.Silence(silent)
	defer release()
	return body(ctx)
}
