package merge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies merge failures.
type ErrorKind int

const (
	// ReadFailure: a page could not be re-derived from its source bytes.
	ReadFailure ErrorKind = iota + 1
	// WriteFailure: the merged document could not be assembled or written.
	WriteFailure
	// Cancelled: the merge context ended before the document was written.
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ReadFailure:
		return "read_failure"
	case WriteFailure:
		return "write_failure"
	case Cancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// MergeError reports why a merge was aborted.
type MergeError struct {
	Kind   ErrorKind
	Page   string // label of the failing page, for read failures
	Output string
	Err    error
}

func (e *MergeError) Error() string {
	if e.Kind == ReadFailure && e.Page != "" {
		return fmt.Sprintf("read %s: %v", e.Page, e.Err)
	}
	if e.Kind == Cancelled {
		return fmt.Sprintf("merge into %s cancelled: %v", e.Output, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Output, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// ErrBusy is returned by Runner.Start while a merge is already running.
var ErrBusy = errors.New("a merge is already running")

// KindOf returns the MergeError kind of err, or 0.
func KindOf(err error) ErrorKind {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Kind
	}
	return 0
}
