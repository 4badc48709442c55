package engineclient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClaimRejected is returned when the engine refuses a claim.
	ErrClaimRejected = errors.New("claim rejected")
	// ErrUnclaimRejected is returned when the engine refuses an unclaim.
	ErrUnclaimRejected = errors.New("unclaim rejected")
	// ErrCompleteRejected is returned when the engine refuses a completion.
	ErrCompleteRejected = errors.New("complete rejected")
)

// Operation names a task-mutating call.
type Operation string

const (
	OpClaim    Operation = "claim"
	OpUnclaim  Operation = "unclaim"
	OpComplete Operation = "complete"
)

// RejectionError is returned when the engine refuses a task action. Message
// is the engine's own explanation and should be shown to the operator as is.
type RejectionError struct {
	Op         Operation
	TaskID     string
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s of task %s rejected with status %d", e.Op, e.TaskID, e.StatusCode)
	}
	return fmt.Sprintf("%s of task %s rejected: %s", e.Op, e.TaskID, e.Message)
}

// Unwrap returns the sentinel matching the operation.
func (e *RejectionError) Unwrap() error {
	switch e.Op {
	case OpClaim:
		return ErrClaimRejected
	case OpUnclaim:
		return ErrUnclaimRejected
	case OpComplete:
		return ErrCompleteRejected
	default:
		return nil
	}
}

// IsRejection reports whether err is an engine refusal of a task action.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// rejectionMessage returns the engine's error body unchanged apart from
// surrounding whitespace.
func rejectionMessage(body []byte) string {
	return strings.TrimSpace(string(body))
}
