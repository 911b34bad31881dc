// Package sync implements the two-party store synchronization protocol:
// summary exchange, timestamp diffing, payload construction and
// application, and the full-transfer fallback.
package sync

import "fmt"

// Status categorizes the outcome of a sync exchange.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidCredentials
	StatusClockUnsynced
	StatusTooBusy
	StatusOldClient
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidCredentials:
		return "invalid credentials"
	case StatusClockUnsynced:
		return "clock unsynced"
	case StatusTooBusy:
		return "server busy"
	case StatusOldClient:
		return "client too old"
	default:
		return "error"
	}
}

// SyncError carries the categorized status of a failed exchange. The
// local store is left unmodified when one is returned.
type SyncError struct {
	Code Status
	Err  error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("sync failed (%s)", e.Code)
}

func (e *SyncError) Unwrap() error { return e.Err }

func errStatus(code Status, err error) *SyncError {
	return &SyncError{Code: code, Err: err}
}
