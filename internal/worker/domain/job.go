package domain

// Job is the slice of a jobs row the worker needs to execute it.
type Job struct {
	JobID   string
	JobType string
	Payload string // JSON string
	Status  string
}

// JobMessage represents a job message from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
