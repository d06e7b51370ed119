package models

import "time"

// JobResult is the outcome of one job run, published to the message
// broker when event publishing is enabled.
type JobResult struct {
	JobID      int64     `json:"job_id"`
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
