// Package httpbackend stores repositories on a remote HTTP service.
//
// The protocol is minimal:
//
//	GET {endpoint}/{key}  -> 200 with the JSON document, 404 if unknown
//	PUT {endpoint}/{key}  <- JSON document, answered with 204
//
// where key is the path escaped repository.Handle.Key. Server implements the
// service side for any repository.IBackend, the CLI serves it with "prepo serve".
package httpbackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/pRepo/lib/backend"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("backend")

// MaxDocumentSize limits request and response bodies.
const MaxDocumentSize = 1 << 20

// ClientConfig configures NewClient.
type ClientConfig struct {
	// Endpoints are used round-robin. At least one is required.
	Endpoints []string
	// RetryCount is the number of attempts per request (values < 1 mean 1).
	RetryCount int
	// Timeout per attempt, 0 disables it.
	Timeout time.Duration
	// CreateMissing makes Fetch return an empty repository if the server answers 404.
	CreateMissing bool
}

// Client is a repository.IBackend talking to a remote service.
type Client struct {
	endpoints     []*url.URL
	client        *http.Client
	counter       uint32
	retryCount    int
	createMissing bool
}

// statusError is returned for unexpected status codes.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "http error: " + e.status
}

// NewClient validates the endpoints and creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if len(config.Endpoints) == 0 {
		return nil, errors.New("httpbackend: no endpoints configured")
	}

	parsed := make([]*url.URL, len(config.Endpoints))
	for i, endpoint := range config.Endpoints {
		u, err := url.Parse(strings.TrimRight(endpoint, "/"))
		if err != nil {
			return nil, fmt.Errorf("httpbackend: invalid endpoint %q: %w", endpoint, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("httpbackend: endpoint %q must be an http(s) URL", endpoint)
		}
		parsed[i] = u
	}

	retries := config.RetryCount
	if retries < 1 {
		retries = 1
	}

	return &Client{
		endpoints: parsed,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryCount:    retries,
		createMissing: config.CreateMissing,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see repository.IBackend)
// --------------------------------------------------------------------------

func (c *Client) Fetch(ctx context.Context, handle repository.Handle) (path.Values, error) {
	body, err := c.do(ctx, http.MethodGet, handle, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			if c.createMissing {
				return path.Values{}, nil
			}
			return nil, backend.UnknownHandle(handle)
		}
		return nil, err
	}
	return backend.Unmarshal(body)
}

func (c *Client) Write(ctx context.Context, handle repository.Handle, data path.Values) error {
	raw, err := backend.Marshal(data)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, handle, raw)
	return err
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// do sends one request. The endpoint is selected round-robin per attempt.
// Transport errors and 5xx answers are retried, everything else is final.
func (c *Client) do(ctx context.Context, method string, handle repository.Handle, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := atomic.AddUint32(&c.counter, 1) % uint32(len(c.endpoints))
		requestURL := c.endpoints[idx].String() + "/" + url.PathEscape(handle.Key())

		resp, err := c.attempt(ctx, method, requestURL, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			return nil, err
		}
		log.Debugf("%s %s failed (attempt %d/%d): %v", method, requestURL, attempt+1, c.retryCount, err)
	}
	return nil, fmt.Errorf("httpbackend: %s %s: %w", method, handle, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, requestURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxDocumentSize))
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}
