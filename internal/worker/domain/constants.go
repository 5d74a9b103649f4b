package domain

// Job statuses as stored in the jobs table.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// Job types the worker knows how to execute.
const (
	JobTypeSTT       = "stt"
	JobTypeTranslate = "translate"
)
