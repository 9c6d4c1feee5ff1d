package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// requestTimeout bounds every outbound call to the provider.
const requestTimeout = 15 * time.Second

// ErrTransport marks any failure of an outbound HTTP request, whether the
// request never completed or the provider answered with an error status.
var ErrTransport = errors.New("transport request failed")

// StatusError carries the detail behind an ErrTransport failure.
type StatusError struct {
	Status int   // HTTP status code, 0 when the request never completed
	Err    error // underlying cause, nil for plain status failures
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport request failed: %v", e.Err)
	}
	return fmt.Sprintf("transport request failed: status %d", e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Is lets callers match any transport failure with errors.Is(err, ErrTransport).
func (e *StatusError) Is(target error) bool { return target == ErrTransport }

// Transport performs outbound requests against the OAuth provider.
type Transport interface {
	Request(ctx context.Context, method, rawURL string, params url.Values, headers map[string]string) ([]byte, error)
}

// HTTPTransport is the production Transport backed by net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTP returns an HTTPTransport with the fixed request timeout applied.
func NewHTTP() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Request issues the call and returns the raw response body. For POST the
// params travel form-encoded in the body; otherwise they are appended to the
// query string.
func (t *HTTPTransport) Request(ctx context.Context, method, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(params.Encode())
	} else if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse request url: %w", err)
		}
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &StatusError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StatusError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{Status: resp.StatusCode}
	}
	return payload, nil
}
