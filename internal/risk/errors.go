package risk

import "errors"

var (
	// ErrLockTimeout means the per-identity update lock could not be
	// acquired within the bounded wait. Retryable: the caller must retry
	// outcome recording rather than drop it, or the rolling profile used
	// for future decisions diverges from reality.
	ErrLockTimeout = errors.New("timed out waiting for identity update lock")

	// ErrStepUpNotFound means no step-up session exists for the session ID.
	ErrStepUpNotFound = errors.New("step-up session not found")

	// ErrStepUpNotPending means the session is not awaiting verification.
	ErrStepUpNotPending = errors.New("step-up session is not pending")
)
