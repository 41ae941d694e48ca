// Package backend talks to the lab REST API that owns the inventory records.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/labstock/labstock/internal/platform/httpx"
)

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Unwrap maps well known statuses onto the shared sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusConflict:
		return httpx.ErrDuplicate
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return httpx.ErrValidation
	}
	return httpx.ErrUpstream
}

// File is one attachment sent with a create or update.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type tokenKey struct{}

// ContextWithToken attaches a bearer token forwarded on every request.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Client wraps the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client. A zero timeout means 15 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List fetches a collection and decodes the JSON array into dest.
func (c *Client) List(ctx context.Context, path string, dest any) error {
	raw, err := c.ListRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("backend decode %s: %w", path, err)
	}
	return nil
}

// ListRaw fetches a collection and returns the response body untouched.
func (c *Client) ListRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, path)
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, path string, body any, files ...File) error {
	return c.send(ctx, http.MethodPost, path, body, files)
}

// Update replaces an existing record.
func (c *Client) Update(ctx context.Context, path string, body any, files ...File) error {
	return c.send(ctx, http.MethodPut, path, body, files)
}

func (c *Client) send(ctx context.Context, method, path string, body any, files []File) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend encode %s: %w", path, err)
	}
	if len(files) == 0 {
		req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		_, err = c.do(req, path)
		return err
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.WriteField("body", string(payload)); err != nil {
		return err
	}
	field := "file"
	if len(files) > 1 {
		field = "files"
	}
	for _, f := range files {
		part, err := createFilePart(writer, field, f)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, err = c.do(req, path)
	return err
}

func createFilePart(w *multipart.Writer, field string, f File) (io.Writer, error) {
	if f.ContentType == "" {
		return w.CreateFormFile(field, f.Name)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", f.ContentType)
	return w.CreatePart(h)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, err
	}
	if token, ok := TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", req.Method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Method: req.Method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return io.ReadAll(resp.Body)
}
