// Package upstream holds the typed HTTP clients for the backend services
// the orchestrator coordinates: the prediction engine, the doctor
// directory, the booking backend, the auth provider, and the chat engine.
// All calls share one transport with a fixed timeout; failures are mapped
// into the orchestrator's error taxonomy so callers never see raw
// transport errors.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/domain"
)

// Client talks to the care-pathway backend. One instance is shared by all
// domain services; it is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// APIError is a non-2xx response from the backend. Services translate the
// statuses they understand into domain errors; anything else is passed
// through to the handler layer with its original status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// do performs one JSON round trip. A transport failure or timeout becomes
// a domain network error; a non-2xx status becomes an *APIError carrying
// the backend's error message. No call is ever retried.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("upstream call failed")
		return domain.NewNetworkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewNetworkError(method+" "+path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeErrorMessage pulls the "error" field out of a failure body. The
// backend is not always consistent, so a missing or unparsable body falls
// back to a generic message.
func decodeErrorMessage(r io.Reader) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return "request failed"
	}
	if body.Error != "" {
		return body.Error
	}
	if body.Message != "" {
		return body.Message
	}
	return "request failed"
}
