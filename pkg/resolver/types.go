package resolver

import (
	"errors"
	"fmt"
)

// ErrFatalIO is returned when listing a directory fails for any reason other
// than the directory not existing.
var ErrFatalIO = errors.New("fatal filesystem error")

// IOError describes a failed filesystem operation. It matches both
// ErrFatalIO and the underlying error under errors.Is.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrFatalIO, e.Err}
}

// Kind is the terminal state of one target's search.
type Kind string

const (
	// Resolved means a calibrated directory was found.
	Resolved Kind = "resolved"
	// NotFound means the cursor did not exist as a directory.
	NotFound Kind = "notFound"
	// Ambiguous means the cursor had zero, or two or more, subdirectories
	// and none of them was the calibrated directory.
	Ambiguous Kind = "ambiguous"
	// CycleDetected means the descent revisited a directory or went deeper
	// than the configured bound.
	CycleDetected Kind = "cycleDetected"
)

// Outcome is the result of searching one target.
type Outcome struct {
	Target string `json:"target"`
	Kind   Kind   `json:"kind"`
	// Path is set only when Kind is Resolved.
	Path string `json:"path,omitempty"`
	// Cursor is the directory the search stopped at.
	Cursor   string `json:"cursor"`
	Descents int    `json:"descents"`
	// Subdirs holds the children seen on an Ambiguous cursor.
	Subdirs []string `json:"subdirs,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Kind == Resolved
}

// Report holds the outcomes of a full run in target order.
type Report struct {
	Root     string    `json:"root"`
	Outcomes []Outcome `json:"outcomes"`
}

// Paths returns the resolved paths in target order. Unresolved targets leave
// no placeholder.
func (r *Report) Paths() []string {
	paths := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			paths = append(paths, o.Path)
		}
	}
	return paths
}

// Unresolved returns the outcomes of targets that were not resolved.
func (r *Report) Unresolved() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Lookup returns the outcome for target, if it was searched.
func (r *Report) Lookup(target string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Target == target {
			return o, true
		}
	}
	return Outcome{}, false
}
