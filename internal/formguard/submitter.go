package formguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultSimulatedDelay is how long SimulatedSubmitter pretends delivery takes.
const DefaultSimulatedDelay = 1500 * time.Millisecond

// SimulatedSubmitter accepts every submission after a fixed delay without sending anything.
type SimulatedSubmitter struct {
	Delay time.Duration
	Log   *zap.Logger
}

// Submit implements Submitter.
func (s SimulatedSubmitter) Submit(ctx context.Context, f Fields) error {
	delay := s.Delay
	if delay < 0 {
		delay = 0
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	if s.Log != nil {
		s.Log.Info("contact_form_submitted",
			zap.Bool("simulated", true),
			zap.Int("message_length", len(f.Message)),
		)
	}
	return nil
}

// ServerError is a non-accepted response from the contact endpoint.
type ServerError struct {
	Status     int
	Message    string
	Fields     Errors
	RetryAfter time.Duration
}

func (e *ServerError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("contact endpoint returned %d: %s (retry after %s)", e.Status, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("contact endpoint returned %d: %s", e.Status, e.Message)
}

// HTTPSubmitter posts submissions as JSON to the site's contact endpoint.
type HTTPSubmitter struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPSubmitter creates a submitter for endpoint with a 10 second client timeout.
func NewHTTPSubmitter(endpoint string) *HTTPSubmitter {
	return &HTTPSubmitter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Fields  Errors `json:"fields"`
}

// Submit implements Submitter. Only 202 Accepted counts as delivered.
func (s *HTTPSubmitter) Submit(ctx context.Context, f Fields) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach contact endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	serr := &ServerError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
		if eb.Message != "" {
			serr.Message = eb.Message
		}
		serr.Fields = eb.Fields
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		serr.RetryAfter = time.Duration(secs) * time.Second
	}
	return serr
}
