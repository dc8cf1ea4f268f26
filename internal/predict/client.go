// Package predict sends synthetic feature records to a caller-supplied
// prediction endpoint and extracts scalar decision scores from its responses.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/raphaelgruber/fairprobe/internal/models"
)

// maxResponseBytes caps how much of a response body is read and persisted.
// Bodies past the cap fail JSON decoding and the record is dropped.
const maxResponseBytes = 1 << 20

// ErrUnusableResponse marks a response that arrived but carried no
// extractable decision score. The record is dropped, never defaulted.
var ErrUnusableResponse = errors.New("no usable prediction in response")

// Recorder receives per-call statistics. Implemented by metrics.Collector.
type Recorder interface {
	RecordModelCall(duration time.Duration, retries int64, dropped bool)
}

// Config holds invocation client settings.
type Config struct {
	// Timeout bounds each HTTP attempt. Defaults to 10s.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after the first,
	// applied to transient failures only.
	MaxRetries int
	// Recorder, when set, is told about every finished call.
	Recorder Recorder
}

// Client invokes a prediction endpoint over HTTP.
type Client struct {
	http       *http.Client
	maxRetries int
	recorder   Recorder

	// initialBackoff is the first retry delay; tests shorten it.
	initialBackoff time.Duration
}

// NewClient creates an invocation client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		http:           &http.Client{Timeout: timeout},
		maxRetries:     retries,
		recorder:       cfg.Recorder,
		initialBackoff: 300 * time.Millisecond,
	}
}

// Invoke posts one feature record to the endpoint and extracts its decision
// score. Transient failures (timeouts, connection resets, 5xx) are retried
// with exponential backoff up to MaxRetries; 4xx responses and unusable
// bodies are permanent and returned immediately.
func (c *Client) Invoke(ctx context.Context, endpoint string, record models.FeatureRecord) (models.OutcomeRecord, error) {
	payload, err := json.Marshal(record.Features)
	if err != nil {
		return models.OutcomeRecord{}, fmt.Errorf("encode features: %w", err)
	}

	var outcome models.OutcomeRecord
	var attempts int64
	start := time.Now()

	op := func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("http status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("http status %d", resp.StatusCode))
		}

		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: invalid json", ErrUnusableResponse))
		}

		score, ok := extractScore(parsed)
		if !ok {
			return backoff.Permanent(fmt.Errorf("%w: response fields %v", ErrUnusableResponse, responseKeys(parsed)))
		}

		outcome = models.OutcomeRecord{
			RecordID:      record.RecordID,
			RawResponse:   parsed,
			DecisionScore: score,
			ReceivedAt:    time.Now().UTC(),
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx))
	if c.recorder != nil {
		// The retry count excludes the first attempt.
		c.recorder.RecordModelCall(time.Since(start), attempts-1, err != nil)
	}
	if err != nil {
		return models.OutcomeRecord{}, err
	}
	return outcome, nil
}

// isTransient reports whether a transport-level error is worth retrying.
// Server 5xx responses are classified at the call site.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return strings.Contains(msg, "client.timeout")
}
