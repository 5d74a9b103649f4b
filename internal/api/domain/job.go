package domain

import (
	"errors"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

const (
	JobTypeSTT       = "stt"
	JobTypeTranslate = "translate"
)

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidState is returned when an operation targets a job in a
	// terminal status (completed, failed, cancelled).
	ErrInvalidState = errors.New("job is in a terminal status")
)

// IsTerminal reports whether a job status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
