package models

import "errors"

// Sentinel errors for the analysis pipeline.
// Check with errors.Is(); wrap with fmt.Errorf("...: %w", Err...).
var (
	// ErrInvalidInput indicates a malformed target endpoint URL. Rejected
	// synchronously; no job record is created.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates invalid generator parameters (count or
	// feature schema). Rejected before the pipeline starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelUnreachable indicates the target endpoint failed or returned
	// unusable responses for too many records to analyze the remainder.
	ErrModelUnreachable = errors.New("model endpoint unreachable")

	// ErrInsufficientData indicates a protected category had no successfully
	// paired record, so fairness metrics cannot be computed.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrTimeout indicates the job exceeded its wall-clock ceiling.
	ErrTimeout = errors.New("analysis timed out")

	// ErrNotFound indicates an unknown job id.
	ErrNotFound = errors.New("analysis not found")

	// ErrNotReady indicates a report was requested for a job that has not
	// completed.
	ErrNotReady = errors.New("analysis not completed")
)
