package model

import (
	"database/sql"
	"time"
)

type Job struct {
	JobID        string         `db:"job_id"`
	JobType      string         `db:"job_type"`
	Status       string         `db:"status"`
	Progress     int            `db:"progress"`
	InputData    string         `db:"input_data"`
	Payload      string         `db:"payload"`
	YoutubeURL   sql.NullString `db:"youtube_url"`
	OutputFiles  sql.NullString `db:"output_files"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
