// Package remote is the HTTP client for the todo remote store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client talks to the remote store over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option tunes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for the store rooted at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL reports the store root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Patch carries the fields of an update. Nil fields are left out of the body.
type Patch struct {
	Description *string       `json:"description,omitempty"`
	Status      *model.Status `json:"status,omitempty"`
}

type createRequest struct {
	Description string       `json:"description"`
	Status      model.Status `json:"status"`
}

// List fetches every todo, or only those matching the filter's status.
func (c *Client) List(ctx context.Context, f model.Filter) ([]model.Todo, error) {
	path := "/todos"
	if s, ok := f.Status(); ok {
		path = "/todos/filter?status=" + url.QueryEscape(string(s))
	}
	var todos []model.Todo
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new pending todo and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, description string) (model.Todo, error) {
	var out model.Todo
	req := createRequest{Description: description, Status: model.StatusPending}
	err := c.doJSON(ctx, http.MethodPost, "/todos", req, &out)
	return out, err
}

// Update sets the patch fields on the todo identified by id.
func (c *Client) Update(ctx context.Context, id string, p Patch) (model.Todo, error) {
	var out model.Todo
	err := c.doJSON(ctx, http.MethodPut, todoPath(id), p, &out)
	return out, err
}

// Replace sends the whole todo back; the store overwrites every field.
func (c *Client) Replace(ctx context.Context, t model.Todo) (model.Todo, error) {
	var out model.Todo
	err := c.doJSON(ctx, http.MethodPut, todoPath(t.ID), t, &out)
	return out, err
}

// Delete removes the todo. The confirmation body is ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

// Import uploads a CSV file as multipart field "file".
func (c *Client) Import(ctx context.Context, name string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/todos/upload", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	_, err = c.do(req)
	return err
}

// Export downloads the CSV payload.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/todos/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, application/octet-stream")
	return c.do(req)
}

// -------------- plumbing --------------

func todoPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	path := req.URL.RequestURI()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed", "method", req.Method, "path", path, "error", err)
		return nil, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("remote request",
		"method", req.Method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Method: req.Method, Path: path, Code: resp.StatusCode, Message: errorMessage(body)}
		c.logger.Warn("remote request rejected", "method", req.Method, "path", path, "status", resp.StatusCode, "error", serr.Message)
		return nil, serr
	}
	return body, nil
}
