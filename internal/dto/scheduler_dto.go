package dto

import "time"

// JobStatusResponse reports the run state and last-run statistics of one
// scheduler job.
type JobStatusResponse struct {
	Name         string     `json:"name"`
	Running      bool       `json:"running"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Processed    int        `json:"processed"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Skipped      int        `json:"skipped"`
}

// SchedulerStatusResponse aggregates all job statuses.
type SchedulerStatusResponse struct {
	Jobs []JobStatusResponse `json:"jobs"`
}
