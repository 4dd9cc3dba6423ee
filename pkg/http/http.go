// Package http is the fluent, retry-aware client used for every outbound
// call that is not made through a vendor SDK (scheduling service, remote
// image imports).
//
//	resp, err := http.Post(base + "/scheduled_events/" + id + "/cancellation").
//	    WithContext(ctx).
//	    Bearer(token).
//	    Body(map[string]string{"reason": reason}).
//	    Timeout(10 * time.Second).
//	    Send()
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/studio/pkg/logger"
)

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is shared by all requests. Tests can swap its Transport:
//
//	http.DefaultClient.Transport = fake
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{
	Transport: defaultTransport,
}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// ErrTooLarge is returned when a response body exceeds MaxBytes.
var ErrTooLarge = errors.New("http: response body too large")

// Request is a fluent HTTP request builder.
type Request struct {
	method    string
	url       string
	headers   map[string]string
	body      interface{}
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	maxBytes  int64
	ctx       context.Context
}

func Get(url string) *Request    { return newRequest(gohttp.MethodGet, url) }
func Post(url string) *Request   { return newRequest(gohttp.MethodPost, url) }
func Put(url string) *Request    { return newRequest(gohttp.MethodPut, url) }
func Delete(url string) *Request { return newRequest(gohttp.MethodDelete, url) }

func newRequest(method, url string) *Request {
	return &Request{
		method:    method,
		url:       url,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   10 * time.Second,
		retries:   1,
		retryWait: 250 * time.Millisecond,
		ctx:       context.Background(),
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Bearer sets the Authorization: Bearer <token> header.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the request body. Values other than string and []byte are sent
// as JSON.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts (1 = no retry) and the initial
// backoff, which doubles after each failed attempt. Network errors and 5xx
// answers are retried.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.retries = n
	r.retryWait = wait
	return r
}

// MaxBytes caps the response body; larger bodies fail with ErrTooLarge.
func (r *Request) MaxBytes(n int64) *Request {
	r.maxBytes = n
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Send executes the request.
func (r *Request) Send() (*Response, error) {
	var lastErr error
	backoff := r.retryWait

	for attempt := 1; attempt <= r.retries; attempt++ {
		resp, err := r.do()
		if err == nil && resp.StatusCode < gohttp.StatusInternalServerError {
			return resp, nil
		}
		if err == nil {
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		lastErr = err

		if attempt < r.retries {
			logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
				"url", r.url, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-r.ctx.Done():
				return nil, r.ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w", r.retries, r.method, r.url, lastErr)
}

func (r *Request) do() (*Response, error) {
	body, ct, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if r.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, r.maxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	if r.maxBytes > 0 && int64(len(raw)) > r.maxBytes {
		return nil, ErrTooLarge
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Raw:        raw,
	}, nil
}

func (r *Request) buildBody() (io.Reader, string, error) {
	if r.body == nil {
		return nil, "", nil
	}
	switch v := r.body.(type) {
	case string:
		return bytes.NewBufferString(v), "text/plain", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// Throw returns an error if the response status is not 2xx.
func (r *Response) Throw() error {
	if !r.OK() {
		body := r.Raw
		if len(body) > 512 {
			body = body[:512]
		}
		return fmt.Errorf("http: request failed with status %d: %s", r.StatusCode, string(body))
	}
	return nil
}
