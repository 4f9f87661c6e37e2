package ledger

import (
	"fmt"
)

// AdmissionRejectedError means the gate turned the candidate down. The chain
// is unchanged.
type AdmissionRejectedError struct {
	Index     uint64
	Pattern   string
	Accuracy  float64
	Threshold float64
}

func (e AdmissionRejectedError) Error() string {
	return fmt.Sprintf("block %d rejected: accuracy %.2f%% for pattern %s below threshold %.2f%%",
		e.Index, e.Accuracy, e.Pattern, e.Threshold)
}

// KeyAgreementError wraps a failure to encrypt the payload, typically an
// exchange in which no position survived sifting.
type KeyAgreementError struct {
	Index    uint64
	Protocol string
	Cause    error
}

func (e KeyAgreementError) Error() string {
	return fmt.Sprintf("block %d: %s key agreement: %v", e.Index, e.Protocol, e.Cause)
}

func (e KeyAgreementError) Unwrap() error { return e.Cause }

// IndexMismatchError is returned for a candidate whose index is not the
// current chain height.
type IndexMismatchError struct {
	Index  uint64
	Height uint64
}

func (e IndexMismatchError) Error() string {
	return fmt.Sprintf("candidate index %d does not match chain height %d", e.Index, e.Height)
}
