package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start while a scan is starting or running.
	ErrAlreadyStarted = errors.New("scanner already started")
	// ErrStopped is returned by Start when Stop was called during acquisition.
	ErrStopped = errors.New("scanner stopped during acquisition")
	// ErrClosed is returned by Start once Close has been called.
	ErrClosed = errors.New("scanner closed")
)

// AcquisitionError means no camera could be granted. The scan loop never starts.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("camera acquisition failed: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

func asAcquisitionError(err error) *AcquisitionError {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr
	}
	return &AcquisitionError{Err: err}
}
