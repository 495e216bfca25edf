package taskapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tasklist/internal/model"
)

const (
	tasksPath       = "/tasks"
	maxErrorBodyLen = 512
	headerRequestID = "X-Request-ID"
)

// Client talks to the remote task service over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes request logs to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		clone := *c.http
		clone.Timeout = c.timeout
		c.http = &clone
	}
	return c
}

// List fetches the whole collection in server order.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, &tasks, http.StatusOK); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create posts a new task and returns the server's copy.
func (c *Client) Create(ctx context.Context, task model.Task) (model.Task, error) {
	var created model.Task
	if err := c.do(ctx, http.MethodPost, tasksPath, task, &created, http.StatusOK, http.StatusCreated); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// Update replaces the task with the same id and returns the server's copy.
func (c *Client) Update(ctx context.Context, task model.Task) (model.Task, error) {
	var updated model.Task
	if err := c.do(ctx, http.MethodPut, taskPath(task.ID), task, &updated, http.StatusOK); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

// Delete removes a task. Any response body is ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, http.StatusOK, http.StatusNoContent)
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, okStatus ...int) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	fields := log.Fields{"method": method, "path": path, "request_id": requestID}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("task service request failed")
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["duration"] = time.Since(start).String()

	if !slices.Contains(okStatus, resp.StatusCode) {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		c.logger.WithFields(fields).Warn("task service rejected request")
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	c.logger.WithFields(fields).Debug("task service request done")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrDecode, err)
	}
	return nil
}
