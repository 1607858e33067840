// Package task tracks named, possibly long-running activities and their
// optional numeric progress for status display.
//
// A Registry is owned by the process orchestrator and shared by all
// sessions. Tasks are keyed by a disambiguating full name (typically the
// element name) so the same activity name may run concurrently for many
// elements. Every progress update invokes a render callback; throttling
// of actual redraws is the messenger's concern, not the registry's.
package task

import (
	"fmt"
	"sync"
	"time"
)

// Task is one tracked activity. Progress values are optional: a task
// that never reports progress simply renders as running.
type Task struct {
	// ActivityName is the short human name, e.g. "Loading elements".
	ActivityName string

	// FullName disambiguates concurrent instances of the same activity.
	FullName string

	// StartTime is when the task was registered.
	StartTime time.Time

	mu         sync.Mutex
	current    int
	maximum    int
	hasCurrent bool
	hasMaximum bool
	renderCB   func()
}

// SetRenderCallback installs the hook invoked after every progress
// change. The messenger uses this to drive throttled status redraws.
func (t *Task) SetRenderCallback(cb func()) {
	t.mu.Lock()
	t.renderCB = cb
	t.mu.Unlock()
}

// SetMaximum reports the total number of subtasks, when known.
func (t *Task) SetMaximum(n int) {
	t.mu.Lock()
	t.maximum = n
	t.hasMaximum = true
	cb := t.renderCB
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetCurrent reports absolute progress.
func (t *Task) SetCurrent(n int) {
	t.mu.Lock()
	t.current = n
	t.hasCurrent = true
	cb := t.renderCB
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Add advances progress by n.
func (t *Task) Add(n int) {
	t.mu.Lock()
	t.current += n
	t.hasCurrent = true
	cb := t.renderCB
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Current returns the reported progress and whether any was reported.
func (t *Task) Current() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasCurrent
}

// Maximum returns the reported total and whether one was reported.
func (t *Task) Maximum() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maximum, t.hasMaximum
}

// Registry is the process-wide set of active tasks, keyed by full name.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Add registers a task. Registering a full name that is already active
// is a programming error.
func (r *Registry) Add(activityName, fullName string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[fullName]; exists {
		panic(fmt.Sprintf("task %q is already registered", fullName))
	}
	t := &Task{
		ActivityName: activityName,
		FullName:     fullName,
		StartTime:    time.Now(),
	}
	r.tasks[fullName] = t
	return t
}

// Remove unregisters a task. Removing an unknown task is a no-op so that
// scope exit paths need not track whether registration succeeded.
func (r *Registry) Remove(fullName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, fullName)
}

// Get returns the task for fullName, or nil.
func (r *Registry) Get(fullName string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[fullName]
}

// All returns a snapshot of the active tasks, for renderers.
func (r *Registry) All() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}
