// Package message defines the activity record that flows through the
// messenger: an immutable description of one reportable event produced
// while running build jobs.
//
// Records are created by the code performing the work and routed through
// a messenger session, which stamps job identity onto them before they
// reach the operator-facing handler and any active job log.
package message

import "time"

// Kind classifies a message.
type Kind string

const (
	// Debug is detail the operator normally never sees.
	Debug Kind = "debug"

	// Status is an informative message, silenced by nested scopes.
	Status Kind = "status"

	// Info is an informative message, never silenced.
	Info Kind = "info"

	// Warn is a warning about a non-fatal condition.
	Warn Kind = "warning"

	// Error is an error that does not abort the enclosing activity.
	Error Kind = "error"

	// Bug reports an unexpected internal condition.
	Bug Kind = "bug"

	// Log is output captured from a job, recorded to the job log only.
	Log Kind = "log"

	// Start marks the beginning of a timed activity.
	Start Kind = "start"

	// Success marks a completed activity and carries the elapsed time.
	Success Kind = "success"

	// Fail marks a failed activity and carries the elapsed time.
	Fail Kind = "failure"

	// Skipped marks an activity that was not run at all.
	Skipped Kind = "skipped"
)

// Message is one activity record. The zero value is not useful; build
// records with New and the With* setters.
type Message struct {
	// Kind classifies the record.
	Kind Kind

	// Text is the single-line human readable message.
	Text string

	// Detail optionally carries multi-line supplementary text.
	Detail string

	// ElementName and ElementKey identify the build element the record
	// belongs to, when known. They are attached by the emitting context,
	// not by the caller.
	ElementName string
	ElementKey  string

	// ActionName and LogPath identify the enclosing job. They are stamped
	// by the job recorder when a job context is active and are never
	// overwritten once set.
	ActionName string
	LogPath    string

	// Elapsed is the measured activity duration. Only Success and Fail
	// records carry one.
	Elapsed time.Duration

	// HasElapsed reports whether Elapsed is meaningful.
	HasElapsed bool
}

// Option configures an optional field on a new Message.
type Option func(*Message)

// WithDetail attaches multi-line supplementary text.
func WithDetail(detail string) Option {
	return func(m *Message) { m.Detail = detail }
}

// WithElementName attaches the full name of the owning element.
func WithElementName(name string) Option {
	return func(m *Message) { m.ElementName = name }
}

// WithElementKey attaches the cache key of the owning element.
func WithElementKey(key string) Option {
	return func(m *Message) { m.ElementKey = key }
}

// WithElapsed attaches a measured duration. Meaningful only for Success
// and Fail records.
func WithElapsed(d time.Duration) Option {
	return func(m *Message) {
		m.Elapsed = d
		m.HasElapsed = true
	}
}

// New creates a Message of the given kind and text.
func New(kind Kind, text string, opts ...Option) *Message {
	m := &Message{
		Kind: kind,
		Text: text,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Unconditional reports whether records of this kind must reach the
// operator handler even inside a silenced scope. A failure is never
// hidden.
func (k Kind) Unconditional() bool {
	switch k {
	case Info, Fail, Bug:
		return true
	}
	return false
}

// String returns the upper-case display form used in job logs.
func (k Kind) String() string {
	return string(k)
}
