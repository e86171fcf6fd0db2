package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/tokenzk/api"
	"github.com/vocdoni/tokenzk/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of a request that fails to
	// reach the server or gets a gateway error.
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client. Proof
	// verification is synchronous, so it must leave room for it.
	DefaultTimeout = 30 * time.Second
	// retryDelay is the wait before the first retry, doubled on every
	// attempt.
	retryDelay = 250 * time.Millisecond
	// maxLoggedBody is the size of the request bodies printed on debug.
	maxLoggedBody = 512
)

// HTTPclient is the tokenzk API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New returns a client for the API host provided, checking that the host
// answers the ping endpoint.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	if hostURL.Scheme == "" || hostURL.Host == "" {
		return nil, fmt.Errorf("invalid API host %q", host)
	}
	tr := &http.Transport{
		IdleConnTimeout: DefaultTimeout,
		WriteBufferSize: 1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:  1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(context.Background(), HTTPGET, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of attempts of every request.
func (c *HTTPclient) SetRetries(n int) {
	if n < 1 {
		n = 1
	}
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// retryable returns true for the statuses of a server that is not ready
// yet or of a proxy that lost it.
func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Request performs a raw request of the method provided to the endpoint
// built by joining urlPath. If jsonBody is not nil, it is sent JSON
// encoded. It returns the response body and the status code. Requests that
// do not reach the server, or that get a gateway error, are retried until
// the retries run out or the context is done.
func (c *HTTPclient) Request(ctx context.Context, method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	logBody := body
	if len(logBody) > maxLoggedBody {
		logBody = append(logBody[:maxLoggedBody:maxLoggedBody], "..."...)
	}
	log.Debugw("http client request", "type", method, "url", u.String(), "body", string(logBody))

	var (
		data   []byte
		status int
		err    error
	)
	delay := retryDelay
	for attempt := 1; attempt <= c.retries; attempt++ {
		data, status, err = c.do(ctx, method, u.String(), body)
		if err == nil && !retryable(status) {
			return data, status, nil
		}
		if attempt == c.retries {
			break
		}
		log.Warnw("http request failed, retrying",
			"url", u.String(),
			"status", status,
			"error", err,
			"attempt", attempt,
			"retries", c.retries)
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed after %d attempts: %w", c.retries, err)
	}
	return data, status, nil
}

// do sends a single request and reads the whole response.
func (c *HTTPclient) do(ctx context.Context, method, u string, body []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}
