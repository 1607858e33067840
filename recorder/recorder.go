// Package recorder owns the private log file of one build job.
//
// A job is one unit of concurrent execution, normally hosted in its own
// worker. Every record observed while the job is active is appended to
// the job's log in a fixed line format and flushed immediately, since
// this file is the primary forensic artifact when a job fails. The
// recorder also carries the job's own silence depth and registers a
// termination hook so a killed process still leaves a readable trailer.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgebuild/forge/message"
	"github.com/forgebuild/forge/signals"
)

const (
	indent    = "    "
	emptyTime = "--:--:--"
)

// Job records all messages for one unit of build work.
//
// A Job is exclusively owned by the execution context that began it and
// must not be shared, so no locking guards its fields. The silence depth
// is local to the job and independent of the messenger's global depth.
type Job struct {
	actionName string
	elementKey string
	logPath    string
	file       *os.File

	silenceDepth int
	releaseTerm  func()
}

// Begin creates the job log and opens it for append.
//
// The log path is logdir/filename.<pid>.log; the directory is created if
// missing. A termination hook is installed for the lifetime of the job
// which writes a best-effort trailer, so the log is still conclusive if
// the process is killed mid-job.
func Begin(actionName, elementKey, filename, logdir string) (*Job, error) {
	logPath := filepath.Join(logdir, fmt.Sprintf("%s.%d.log", filename, os.Getpid()))

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening job log %q: %w", logPath, err)
	}

	j := &Job{
		actionName: actionName,
		elementKey: elementKey,
		logPath:    logPath,
		file:       file,
	}
	j.releaseTerm = signals.Terminator(j.flushOnTerminate)
	return j, nil
}

// ActionName returns the job's action name.
func (j *Job) ActionName() string { return j.actionName }

// ElementKey returns the cache key of the element the job works on.
func (j *Job) ElementKey() string { return j.elementKey }

// LogPath returns the fully qualified path of the job log.
func (j *Job) LogPath() string { return j.logPath }

// Silence increments the job's silence depth.
func (j *Job) Silence() {
	j.silenceDepth++
}

// Unsilence decrements the job's silence depth. Decrementing below zero
// is a programming error.
func (j *Job) Unsilence() {
	if j.silenceDepth <= 0 {
		panic("unbalanced silence scope exit on job recorder")
	}
	j.silenceDepth--
}

// Silenced reports whether the job is inside a silenced scope.
func (j *Job) Silenced() bool {
	return j.silenceDepth > 0
}

// Record appends one message to the job log and flushes it to disk.
func (j *Job) Record(msg *message.Message) error {
	if _, err := j.file.WriteString(Format(msg) + "\n"); err != nil {
		return fmt.Errorf("writing job log %q: %w", j.logPath, err)
	}
	return nil
}

// Close releases the termination hook and closes the log handle. The
// owning scope must call it on every exit path.
func (j *Job) Close() error {
	j.releaseTerm()
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("closing job log %q: %w", j.logPath, err)
	}
	return nil
}

// flushOnTerminate writes the termination trailer. I/O errors are not
// propagated here; at SIGTERM time the best we can do is force the file
// descriptor down to disk.
func (j *Job) flushOnTerminate() {
	if _, err := j.file.WriteString("\n\nForcefully terminated\n"); err != nil {
		_ = j.file.Sync()
		return
	}
	_ = j.file.Sync()
}

// Format renders one message in the job log line format:
//
//	[--:--:--] START   element: message
//	[00:00:05] SUCCESS element: message
//
// The timecode is only filled in for kinds that carry an elapsed time.
// Detail text, when present, follows after a blank line with each line
// indented.
func Format(msg *message.Message) string {
	timecode := emptyTime
	if msg.HasElapsed && (msg.Kind == message.Success || msg.Kind == message.Fail) {
		timecode = formatElapsed(msg.Elapsed)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%-8s] %-7s", timecode, strings.ToUpper(msg.Kind.String()))
	if msg.ElementName != "" {
		fmt.Fprintf(&b, " %s", msg.ElementName)
	}
	fmt.Fprintf(&b, ": %s", msg.Text)

	if msg.Detail != "" {
		detail := strings.TrimRight(msg.Detail, "\n")
		b.WriteString("\n\n")
		for i, line := range strings.Split(detail, "\n") {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(indent + line)
		}
	}
	return b.String()
}

func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
