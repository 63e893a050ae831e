package receiver

import (
	"sync"
	"time"
)

// Submission is one accepted ingest post.
type Submission struct {
	ID         string    `json:"track_id"`
	Code       string    `json:"code"`
	Version    string    `json:"version"`
	Length     string    `json:"length"`
	Artist     string    `json:"artist"`
	Track      string    `json:"track"`
	Codes      int       `json:"codes,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Log keeps accepted submissions in arrival order.
type Log struct {
	mu          sync.Mutex
	submissions []Submission
}

func (l *Log) Append(s Submission) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions = append(l.submissions, s)
}

// List returns a copy of the submissions received so far.
func (l *Log) List() []Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Submission, len(l.submissions))
	copy(out, l.submissions)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.submissions)
}
