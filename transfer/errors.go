package transfer

import (
	"errors"
	"fmt"
)

// ErrStopped is returned when an advisory stop request interrupts a download.
var ErrStopped = errors.New("transfer stopped by request")

// ConnectionError reports that connecting and authenticating exhausted its
// retry budget. Err carries the attempt count and last transport error.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a listing or other control-command failure after
// retries were exhausted.
type ProtocolError struct {
	Op   string
	Path string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransferError reports a download that exhausted its retry budget. The
// partial local file is left on disk for a future resume.
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PartialFailure reports a segmented download where at least one segment
// exhausted its retries. Temp files of succeeded segments are left on disk;
// nothing is merged.
type PartialFailure struct {
	Path   string
	Failed []int
	Err    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("segmented download %s: segments %v failed: %v", e.Path, e.Failed, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
