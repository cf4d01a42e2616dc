package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/chatlink/internal/version"
)

// HeaderAccessToken carries the session token on every request.
const HeaderAccessToken = "access-token"

// Envelope codes.
const (
	CodeSuccess = 200
	CodeExpired = 401
)

// Result is the response envelope.
type Result[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK reports whether the envelope carries a success code. A missing code
// counts as success.
func (r Result[T]) OK() bool {
	return r.Code == 0 || r.Code == CodeSuccess
}

// ResultError is a non-success envelope code.
type ResultError struct {
	Code    int
	Message string
	Path    string
}

func (e *ResultError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("chat api %s: code %d: %s", e.Path, e.Code, msg)
}

// Expired reports whether the session token was rejected.
func (e *ResultError) Expired() bool {
	return e.Code == CodeExpired
}

// APIError represents an HTTP-level error from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsExpired reports whether err means the session must be renewed.
func IsExpired(err error) bool {
	var resErr *ResultError
	if errors.As(err, &resErr) {
		return resErr.Expired()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(HeaderAccessToken, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Check if error is retryable
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs a request and unwraps the envelope into T.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values) (T, error) {
	var zero T

	body, err := c.doWithRetry(ctx, method, path, query)
	if err != nil {
		return zero, err
	}

	var res Result[T]
	if err := json.Unmarshal(body, &res); err != nil {
		return zero, fmt.Errorf("unmarshal response: %w", err)
	}

	if !res.OK() {
		resErr := &ResultError{Code: res.Code, Message: res.Message, Path: path}
		if resErr.Expired() {
			c.logger.Warn("session expired", "path", path)
		}
		return zero, resErr
	}

	return res.Data, nil
}

// get performs a GET request with retries.
func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, query)
}

// post performs a body-less POST request with retries.
func post[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return call[T](ctx, c, http.MethodPost, path, query)
}
