package pages

import "fmt"

// ScanErrorKind classifies scan failures.
type ScanErrorKind int

const (
	// NotFound: the folder is missing, not a directory, or cannot be listed.
	NotFound ScanErrorKind = iota + 1
	// FileUnreadable: one file could not be read or parsed; the scan skips it.
	FileUnreadable
)

func (k ScanErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case FileUnreadable:
		return "file_unreadable"
	default:
		return "unknown"
	}
}

// ScanError reports a folder or per-file scan failure.
type ScanError struct {
	Kind ScanErrorKind
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("input folder not found: %s: %v", e.Path, e.Err)
	case FileUnreadable:
		return fmt.Sprintf("cannot read pdf %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
	}
}

func (e *ScanError) Unwrap() error { return e.Err }
