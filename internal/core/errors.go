package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoTargets      = errors.New("no printer targets configured")
	ErrTransmitFailed = errors.New("transmit failed")
)

// TransmitError reports the copy that failed against one target.
type TransmitError struct {
	Target string
	Copy   int
	Err    error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("copy %d to %s: %v", e.Copy, e.Target, e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

func (e *TransmitError) Is(target error) bool {
	return target == ErrTransmitFailed
}

// AllTargetsExhaustedError is returned when every candidate target failed.
// It unwraps to the last underlying failure.
type AllTargetsExhaustedError struct {
	Attempts int
	Last     error
}

func (e *AllTargetsExhaustedError) Error() string {
	return fmt.Sprintf("all %d printer targets failed, last error: %v", e.Attempts, e.Last)
}

func (e *AllTargetsExhaustedError) Unwrap() error {
	return e.Last
}
