package domain

import "time"

const (
	JobQueued   = "queued"
	JobRunning  = "running"
	JobDone     = "done"
	JobFailed   = "failed"
	JobCanceled = "canceled"
)

// Job tracks one machine fill run over a catalog.
type Job struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"` // fill_catalog
	Status    string    `json:"status"`
	Locale    string    `json:"locale"`
	Model     string    `json:"model"`
	Progress  int       `json:"progress"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobItem struct {
	JobID   int64  `json:"job_id"`
	Context string `json:"context"`
	Source  string `json:"source"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}
