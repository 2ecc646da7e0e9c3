// Package summarize calls the external text-completion collaborator that
// turns a chat transcript into a prose summary. The collaborator is opaque:
// one POST with the transcript, one summary or an error back.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable is returned when the collaborator cannot be reached or
// answers with a non-200 status.
var ErrUnavailable = errors.New("summarizer unavailable")

// Client talks to the summarization endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given endpoint base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type summarizeRequest struct {
	Transcript string `json:"transcript"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Summarize sends the transcript and returns the summary text.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	body, err := json.Marshal(summarizeRequest{Transcript: transcript})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}
	return out.Summary, nil
}
