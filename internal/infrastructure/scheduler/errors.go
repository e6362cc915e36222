package scheduler

import "errors"

// Sentinel errors of the job runner. Callers match them with errors.Is.
var (
	ErrSchedulerNotRunning = errors.New("fee job runner is stopped")
	ErrJobQueueFull        = errors.New("fee job queue is at capacity")
	ErrUnknownJob          = errors.New("no handler registered for job")
	ErrInvalidConfig       = errors.New("bad job schedule configuration")
)
