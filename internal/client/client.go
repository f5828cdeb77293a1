// Package client drives a preflight server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/sessions"
	"github.com/JaimeStill/preflight/internal/validation"
)

// ErrInvalidServer indicates an unusable server address.
var ErrInvalidServer = errors.New("invalid server address")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the API mounted at base, e.g. http://localhost:8080/api.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client. A nil httpClient uses http.DefaultClient.
func New(base string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServer, base)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
	}, nil
}

// Catalog returns the rule definitions.
func (c *Client) Catalog(ctx context.Context) ([]rules.Definition, error) {
	var out []rules.Definition
	err := c.do(ctx, http.MethodGet, "/rules", nil, "", &out)
	return out, err
}

// CreateSession starts a session.
func (c *Client) CreateSession(ctx context.Context) (sessions.Snapshot, error) {
	var out sessions.Snapshot
	err := c.do(ctx, http.MethodPost, "/sessions", nil, "", &out)
	return out, err
}

// DeleteSession tears a session down.
func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id.String(), nil, "", nil)
}

// Upload sends the PDF at path into slot and waits for it to become ready.
func (c *Client) Upload(ctx context.Context, id uuid.UUID, slot artifacts.Slot, path string) (artifacts.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return artifacts.Artifact{}, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", artifacts.MediaTypePDF)
	part, err := w.CreatePart(h)
	if err != nil {
		return artifacts.Artifact{}, err
	}
	if _, err := part.Write(data); err != nil {
		return artifacts.Artifact{}, err
	}
	if err := w.Close(); err != nil {
		return artifacts.Artifact{}, err
	}

	var out artifacts.Artifact
	p := fmt.Sprintf("/sessions/%s/artifacts/%s?wait=true", id, slot)
	err = c.do(ctx, http.MethodPut, p, &body, w.FormDataContentType(), &out)
	return out, err
}

// Submit confirms both artifacts are ready.
func (c *Client) Submit(ctx context.Context, id uuid.UUID) (sessions.Snapshot, error) {
	var out sessions.Snapshot
	err := c.do(ctx, http.MethodPost, "/sessions/"+id.String()+"/submit", nil, "", &out)
	return out, err
}

// Session returns the session's current state.
func (c *Client) Session(ctx context.Context, id uuid.UUID) (sessions.Snapshot, error) {
	var out sessions.Snapshot
	err := c.do(ctx, http.MethodGet, "/sessions/"+id.String(), nil, "", &out)
	return out, err
}

// Validate runs one rule and returns its committed state.
func (c *Client) Validate(ctx context.Context, id uuid.UUID, rule rules.ID) (rules.Rule, error) {
	var out rules.Rule
	p := fmt.Sprintf("/sessions/%s/rules/%s/validate?wait=true", id, url.PathEscape(string(rule)))
	err := c.do(ctx, http.MethodPost, p, nil, "", &out)
	return out, err
}

// ValidateAll re-runs every rule and returns the session once the run ends.
func (c *Client) ValidateAll(ctx context.Context, id uuid.UUID) (sessions.Snapshot, error) {
	var out sessions.Snapshot
	err := c.do(ctx, http.MethodPost, "/sessions/"+id.String()+"/validate?wait=true", nil, "", &out)
	return out, err
}

// Summary returns the session's aggregate result.
func (c *Client) Summary(ctx context.Context, id uuid.UUID) (validation.Summary, error) {
	var out validation.Summary
	err := c.do(ctx, http.MethodGet, "/sessions/"+id.String()+"/summary", nil, "", &out)
	return out, err
}

// Report returns the validation report.
func (c *Client) Report(ctx context.Context, id uuid.UUID) (validation.Report, error) {
	var out validation.Report
	err := c.do(ctx, http.MethodGet, "/sessions/"+id.String()+"/report", nil, "", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
