package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEndpoint is where a local echoprint server accepts ingest posts.
const DefaultEndpoint = "http://localhost:37760/ingest"

// Submitter posts records to an ingest endpoint, one blocking request each.
type Submitter struct {
	client   *http.Client
	endpoint string
}

// NewSubmitter returns a Submitter for endpoint. A nil client gets a
// dedicated one rather than http.DefaultClient.
func NewSubmitter(client *http.Client, endpoint string) *Submitter {
	if client == nil {
		client = &http.Client{}
	}
	return &Submitter{client: client, endpoint: endpoint}
}

// Endpoint returns the URL records are posted to.
func (s *Submitter) Endpoint() string {
	return s.endpoint
}

// Submit posts rec as a form body and returns the response status. Any
// non-2xx status is returned as a *StatusError.
func (s *Submitter) Submit(ctx context.Context, rec Record) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(rec.Encode()))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

// Close releases idle connections held by the client.
func (s *Submitter) Close() {
	s.client.CloseIdleConnections()
}
