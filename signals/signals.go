// Package signals routes host suspend/resume and termination events to
// interested scopes.
//
// Scopes register hook pairs for the duration of a protected region and
// release them on exit. The host environment (normally the Watch
// goroutine, or a test) may fire Suspend, Resume or Terminate at any time
// relative to any other code path; firing with nothing registered is a
// no-op. Hooks must therefore be safe to call concurrently with the code
// they protect.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SuspendHooks is a stop/resume callback pair protecting one scope.
type SuspendHooks struct {
	Stop   func()
	Resume func()
}

type terminatorEntry struct {
	fn func()
}

var (
	mu          sync.Mutex
	suspendable []*SuspendHooks
	terminators []*terminatorEntry
)

// Suspendable registers a stop/resume hook pair and returns a release
// function. The release function must be called exactly once, normally
// via defer, when the protected region exits.
func Suspendable(stop, resume func()) (release func()) {
	h := &SuspendHooks{Stop: stop, Resume: resume}

	mu.Lock()
	suspendable = append(suspendable, h)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		for i, reg := range suspendable {
			if reg == h {
				suspendable = append(suspendable[:i], suspendable[i+1:]...)
				return
			}
		}
	}
}

// Terminator registers a best-effort cleanup hook to run if the process
// is asked to terminate, and returns a release function for scope exit.
func Terminator(fn func()) (release func()) {
	entry := &terminatorEntry{fn: fn}

	mu.Lock()
	terminators = append(terminators, entry)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		for i, reg := range terminators {
			if reg == entry {
				terminators = append(terminators[:i], terminators[i+1:]...)
				return
			}
		}
	}
}

// Suspend fires the stop hook of every registered scope, outermost first.
func Suspend() {
	mu.Lock()
	hooks := make([]*SuspendHooks, len(suspendable))
	copy(hooks, suspendable)
	mu.Unlock()

	for _, h := range hooks {
		if h.Stop != nil {
			h.Stop()
		}
	}
}

// Resume fires the resume hook of every registered scope, innermost
// first, mirroring Suspend.
func Resume() {
	mu.Lock()
	hooks := make([]*SuspendHooks, len(suspendable))
	copy(hooks, suspendable)
	mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i].Resume != nil {
			hooks[i].Resume()
		}
	}
}

// Terminate fires every registered termination hook, innermost first, so
// the most recently opened resources are flushed before their owners.
func Terminate() {
	mu.Lock()
	hooks := make([]*terminatorEntry, len(terminators))
	copy(hooks, terminators)
	mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i].fn()
	}
}

// signalOps abstracts the process-level signal calls so the handler
// logic can be exercised without actually stopping the test process.
type signalOps struct {
	armStop   func()
	resetStop func()
	resetTerm func()
	sendSelf  func(sig syscall.Signal)
}

// handleSignal dispatches one delivered signal to the hook registries.
// It reports whether watching should end.
func handleSignal(sig os.Signal, ops signalOps) (done bool) {
	switch sig {
	case syscall.SIGTSTP:
		Suspend()
		// Actually stop, as the user asked. The stop handler is
		// re-armed on SIGCONT rather than here, otherwise the runtime
		// could re-install it before the pending SIGTSTP is delivered
		// and the process would catch its own stop signal in a loop.
		ops.resetStop()
		ops.sendSelf(syscall.SIGTSTP)
	case syscall.SIGCONT:
		ops.armStop()
		Resume()
	case syscall.SIGTERM:
		Terminate()
		ops.resetTerm()
		ops.sendSelf(syscall.SIGTERM)
		return true
	}
	return false
}

// Watch installs OS signal handlers that drive the hook registries:
// SIGTSTP suspends, SIGCONT resumes, SIGTERM runs termination hooks.
// It returns once handlers are installed and stops watching when ctx is
// cancelled. After running termination hooks the SIGTERM is re-delivered
// with the default disposition so the process still dies.
func Watch(ctx context.Context) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGTERM)

	ops := signalOps{
		armStop:   func() { signal.Notify(ch, syscall.SIGTSTP) },
		resetStop: func() { signal.Reset(syscall.SIGTSTP) },
		resetTerm: func() { signal.Reset(syscall.SIGTERM) },
		sendSelf:  func(sig syscall.Signal) { _ = syscall.Kill(os.Getpid(), sig) },
	}

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				if handleSignal(sig, ops) {
					return
				}
			}
		}
	}()
}
