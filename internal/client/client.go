// Package client talks to the task API and keeps a local, sorted mirror of
// the task list.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/s1natex/task-tracker/internal/tasks"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Patch is a partial update. Nil fields are not sent.
type Patch struct {
	Title     *string
	Completed *bool

	dueDate    *string
	setDueDate bool
}

// SetDueDate includes dueDate in the patch; "" clears the due date.
func (p *Patch) SetDueDate(dueDate string) {
	p.setDueDate = true
	if dueDate == "" {
		p.dueDate = nil
		return
	}
	p.dueDate = &dueDate
}

func (p Patch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.setDueDate {
		m["dueDate"] = p.dueDate
	}
	return json.Marshal(m)
}

type createRequest struct {
	Title   string  `json:"title"`
	DueDate *string `json:"dueDate"`
}

// DeleteAck is the body of a successful delete.
type DeleteAck struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for the API served at baseURL, e.g.
// http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]tasks.Task, error) {
	var out []tasks.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create sends title and dueDate; an empty dueDate is sent as null.
func (c *Client) Create(ctx context.Context, title, dueDate string) (tasks.Task, error) {
	req := createRequest{Title: title}
	if dueDate != "" {
		req.DueDate = &dueDate
	}
	var out tasks.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", req, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id int64, p Patch) (tasks.Task, error) {
	var out tasks.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id), p, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int64) (DeleteAck, error) {
	var out DeleteAck
	err := c.do(ctx, http.MethodDelete, taskPath(id), nil, &out)
	return out, err
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := fmt.Sprintf("request failed with status %d", resp.StatusCode)
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
