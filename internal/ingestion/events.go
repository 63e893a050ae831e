package ingestion

import "time"

const submissionEventType = "submission.accepted"

// SubmissionEvent is published after the endpoint accepts a record.
type SubmissionEvent struct {
	ID          string    `json:"id"`
	Index       int       `json:"index"`
	Code        string    `json:"code"`
	Version     string    `json:"version"`
	Length      string    `json:"length"`
	Artist      string    `json:"artist"`
	Track       string    `json:"track"`
	Endpoint    string    `json:"endpoint"`
	StatusCode  int       `json:"status_code"`
	SubmittedAt time.Time `json:"submitted_at"`
}
