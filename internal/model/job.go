package model

import "time"

// JobStatus is the terminal state of a batch job run.
type JobStatus string

const (
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// Job names for the scheduled maintenance jobs.
const (
	JobBadgeSweep     = "badge-sweep"
	JobScoreRecompute = "score-recompute"
)

// JobRun records one execution of a scheduled batch job for observability.
type JobRun struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Status     JobStatus `json:"status"`
	Pages      int       `json:"pages"`
	Processed  int       `json:"processed"`
	Expired    int       `json:"expired"`
	Granted    int       `json:"granted"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
