package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/openzug/openzug/internal/logging"
)

const (
	// defaultAttempts is the retry budget for read commands.
	defaultAttempts = 5
	// mutationAttempts is the short budget for non-idempotent commands:
	// a failed mutation should surface quickly, not be masked by a long
	// retry cascade.
	mutationAttempts = 2
	// defaultRetryDelay is the linear backoff unit between attempts.
	defaultRetryDelay = 2 * time.Second
)

// expectation declares the JSON shape a command's response must have.
type expectation int

const (
	expectAny expectation = iota
	expectObject
	expectArray
)

// commandSpec is one logical command against the device plus the
// caller's validation and retry policy for it.
type commandSpec struct {
	Component string // ComponentAI or ComponentHH
	Command   string
	Params    map[string]string

	// Raw skips JSON decoding and yields the response text verbatim.
	Raw bool
	// Expect asserts the decoded value's shape. expectArray also
	// coerces a null response to an empty array (device quirk: some
	// endpoints return null instead of []).
	Expect expectation
	// RejectEmpty treats an empty result as a validation failure.
	RejectEmpty bool

	// Attempts overrides the retry budget; 0 means defaultAttempts.
	Attempts int
	// RetryDelay overrides the backoff unit; 0 means the client default.
	RetryDelay time.Duration
	// ValueOnErr, when set, produces a fallback result after the retry
	// budget is exhausted by retryable errors. Authentication failures
	// and other non-retryable errors bypass it.
	ValueOnErr func() any
}

// command executes one command with retries and linear backoff:
// attempt i (0-indexed) is preceded by a sleep of i*delay, so the
// first attempt is immediate. HTTP 401 aborts immediately with an
// authentication error; other 4xx abort immediately; 5xx, transport,
// validation and decode failures are retried.
func (c *Client) command(ctx context.Context, spec commandSpec) (any, error) {
	attempts := spec.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := spec.RetryDelay
	if delay == 0 {
		delay = c.retryDelay
	}

	var lastErr error = newValidationError(spec, "no attempts made")
	for attempt := 0; attempt < attempts; attempt++ {
		if err := sleepContext(ctx, time.Duration(attempt)*delay); err != nil {
			return nil, err
		}

		data, err := c.once(ctx, spec)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable {
			if apiErr.Kind == KindAuth {
				logging.Warn("authentication failed",
					zap.String("component", spec.Component),
					zap.String("command", spec.Command),
					zap.String("base_url", c.baseURL))
			} else {
				logging.Warn("command rejected",
					zap.String("component", spec.Component),
					zap.String("command", spec.Command),
					zap.String("base_url", c.baseURL),
					zap.Error(err))
			}
			return nil, err
		}

		lastErr = err
		logging.Debug("command attempt failed",
			zap.String("component", spec.Component),
			zap.String("command", spec.Command),
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}

	if spec.ValueOnErr != nil {
		logging.Warn("command failed after all attempts, using default value",
			zap.String("component", spec.Component),
			zap.String("command", spec.Command),
			zap.Int("attempts", attempts),
			zap.Error(lastErr))
		return spec.ValueOnErr(), nil
	}
	return nil, lastErr
}

// once performs a single request/decode/validate pass.
func (c *Client) once(ctx context.Context, spec commandSpec) (any, error) {
	q := url.Values{}
	for k, v := range spec.Params {
		q.Set(k, v)
	}
	q.Set("command", spec.Command)
	q.Set("_", c.cacheBuster())

	reqURL := c.baseURL + "/" + spec.Component + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, newTransportError(spec, err)
	}

	logging.Debug("running command",
		zap.String("component", spec.Component),
		zap.String("command", spec.Command),
		zap.Any("params", spec.Params),
		zap.String("base_url", c.baseURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(spec, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(spec, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(spec, resp.StatusCode, string(body))
	}

	if spec.Raw {
		return string(body), nil
	}

	var data any
	if len(bytes.TrimSpace(body)) == 0 {
		// An empty body is an explicit absence marker, not an error.
		data = nil
	} else if decodeErr := json.Unmarshal(body, &data); decodeErr != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(body))
		if repairErr != nil || json.Unmarshal([]byte(repaired), &data) != nil {
			// Repair failed too; report the original decode error.
			return nil, newDecodeError(spec, decodeErr)
		}
		logging.Debug("repaired malformed json payload",
			zap.String("component", spec.Component),
			zap.String("command", spec.Command),
			zap.ByteString("payload", body))
	}

	if spec.Expect == expectArray && data == nil {
		data = []any{}
	}
	switch spec.Expect {
	case expectObject:
		if _, ok := data.(map[string]any); !ok {
			return nil, newValidationError(spec, "expected a JSON object")
		}
	case expectArray:
		if _, ok := data.([]any); !ok {
			return nil, newValidationError(spec, "expected a JSON array")
		}
	}
	if spec.RejectEmpty && emptyValue(data) {
		return nil, newValidationError(spec, "empty response rejected")
	}
	return data, nil
}

// commandAs runs a command and decodes the result into T.
func commandAs[T any](ctx context.Context, c *Client, spec commandSpec) (T, error) {
	var zero T
	data, err := c.command(ctx, spec)
	if err != nil {
		return zero, err
	}
	out, err := decodeAs[T](data)
	if err != nil {
		return zero, &APIError{
			Kind:      KindDecode,
			Component: spec.Component,
			Command:   spec.Command,
			Err:       err,
		}
	}
	return out, nil
}

func emptyValue(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
