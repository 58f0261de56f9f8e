package entity

import "errors"

// Reconciliation and scheduling errors abort the current file only; batch
// processing continues with the next message.
var (
	ErrNoDuration         = errors.New("no usable duration reported by any identifier")
	ErrNoDimensions       = errors.New("no usable video dimensions reported by any identifier")
	ErrLengthUnmeasurable = errors.New("reachable stream length not found within rewind budget")
	ErrOffsetTooLarge     = errors.New("requested end offset leaves no usable span")
	ErrIntervalTooLarge   = errors.New("capture interval exceeds stream length")
	ErrIntervalTooSmall   = errors.New("capture interval rounds to zero at adapter precision")
	ErrCaptureFailed      = errors.New("capture adapter invocation failed")
	ErrAdapterUnavailable = errors.New("requested adapter is not available")
)
