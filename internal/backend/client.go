package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gokatarajesh/tarea-editor/internal/auth"
	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

// Operation names passed to the observer.
const (
	OpListVersions     = "list_versions"
	OpGetDocument      = "get_document"
	OpPutDocument      = "put_document"
	OpDeleteDocument   = "delete_document"
	OpProcessingStatus = "processing_status"
)

// StatusError is a non-success answer from the listening backend.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("listening backend returned %d", e.Status)
	}
	return fmt.Sprintf("listening backend returned %d: %s", e.Status, e.Detail)
}

// Observer is told how long every backend call took.
type Observer func(operation string, status int, elapsed time.Duration)

// Client talks to the listening admin API. The operator's bearer token is read from
// the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observe    Observer
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		observe:    func(string, int, time.Duration) {},
	}
}

// WithObserver installs a latency observer and returns the client.
func (c *Client) WithObserver(o Observer) *Client {
	if o != nil {
		c.observe = o
	}
	return c
}

var _ editor.Store = (*Client)(nil)

func (c *Client) questionsPath(tareaID int) string {
	return fmt.Sprintf("%s/listening/admin/tareas/%d/questions", c.baseURL, tareaID)
}

// ListVersions returns the stored version numbers. The backend answers with a bare array.
func (c *Client) ListVersions(ctx context.Context, tareaID int) ([]int, error) {
	var versions []int
	if err := c.do(ctx, OpListVersions, http.MethodGet, c.questionsPath(tareaID)+"/versions", nil, &versions); err != nil {
		return nil, err
	}
	if versions == nil {
		return []int{}, nil
	}
	return versions, nil
}

func (c *Client) GetDocument(ctx context.Context, tareaID, version int) (document.Document, error) {
	values := url.Values{}
	values.Set("version", strconv.Itoa(version))

	var doc document.Document
	if err := c.do(ctx, OpGetDocument, http.MethodGet, c.questionsPath(tareaID)+"?"+values.Encode(), nil, &doc); err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

// PutDocument replaces the stored version named by doc.Version.
func (c *Client) PutDocument(ctx context.Context, tareaID int, doc document.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return c.do(ctx, OpPutDocument, http.MethodPut, c.questionsPath(tareaID), body, nil)
}

func (c *Client) DeleteDocument(ctx context.Context, tareaID, version int) error {
	values := url.Values{}
	values.Set("version", strconv.Itoa(version))
	return c.do(ctx, OpDeleteDocument, http.MethodDelete, c.questionsPath(tareaID)+"?"+values.Encode(), nil, nil)
}

// ProcessingStatus fetches the state of an audio transcoding task.
func (c *Client) ProcessingStatus(ctx context.Context, taskID string) (ProcessingStatus, error) {
	var st ProcessingStatus
	path := fmt.Sprintf("%s/listening/admin/audio/processing/%s", c.baseURL, url.PathEscape(taskID))
	if err := c.do(ctx, OpProcessingStatus, http.MethodGet, path, nil, &st); err != nil {
		return ProcessingStatus{}, err
	}
	return st, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return editor.ErrAuthExpired
	case resp.StatusCode == http.StatusNotFound:
		return editor.ErrNotFound
	case resp.StatusCode >= 300:
		return &StatusError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readDetail extracts the {"detail": ...} message the backend attaches to errors.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}
	return string(payload.Detail)
}
