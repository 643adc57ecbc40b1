// Package client talks to the thread-dump analyzer service: it uploads a
// dump file and decodes the analyzed thread collection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraitsura/tdv/pkg/model"
)

const (
	// AnalyzePath is the analyzer's upload endpoint.
	AnalyzePath = "/api/analyze"
	// HealthPath is the analyzer's liveness endpoint.
	HealthPath = "/health"
	// FormField is the multipart field carrying the dump.
	FormField = "dumpfile"

	// DefaultEndpoint is where the analyzer listens unless configured.
	DefaultEndpoint = "http://localhost:8080"
	// DefaultTimeout bounds one analysis round trip.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps the decoded response body (256MB).
	MaxResponseSize = 256 << 20
)

// Client uploads dumps to the analyzer.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the analyzer at endpoint (scheme://host:port).
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be http or https", endpoint)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the analyzer base URL.
func (c *Client) Endpoint() string {
	return c.base.String()
}

// Port returns the analyzer port, defaulting from the scheme.
func (c *Client) Port() string {
	if p := c.base.Port(); p != "" {
		return p
	}
	if c.base.Scheme == "https" {
		return "443"
	}
	return "80"
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.base.String(), "/") + path
}

// Analyze uploads the dump at path and returns the analyzed threads.
// An empty path is a *ValidationError and sends nothing. Network failures
// are *TransportError; failures reported by the analyzer are
// *ApplicationError.
func (c *Client) Analyze(ctx context.Context, path string) ([]model.ThreadRecord, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Msg: "Please select a file."}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("Cannot open %s: %v", path, err)}
	}
	defer f.Close()

	return c.AnalyzeReader(ctx, filepath.Base(path), f)
}

// AnalyzeReader uploads dump content read from r under the given file name.
func (c *Client) AnalyzeReader(ctx context.Context, name string, r io.Reader) ([]model.ThreadRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(FormField, name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(AnalyzePath), &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("analyzer unreachable", "endpoint", c.Endpoint(), "error", err)
		return nil, &TransportError{Port: c.Port(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &TransportError{Port: c.Port(), Err: err}
	}

	threads, err := decodeAnalysis(resp.StatusCode, data)
	if err != nil {
		c.logger.Warn("analysis failed", "status", resp.StatusCode, "error", err)
		return nil, err
	}
	c.logger.Info("analysis received", "file", name, "threads", len(threads), "elapsed", time.Since(start))
	return threads, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// decodeAnalysis interprets an analyzer response. A success status carries
// either a thread array or an error object; any other status is an error
// whose message comes from the body when present.
func decodeAnalysis(status int, data []byte) ([]model.ThreadRecord, error) {
	trimmed := bytes.TrimSpace(data)

	if status < 200 || status > 299 {
		var eb errorBody
		if err := json.Unmarshal(trimmed, &eb); err == nil && eb.Error != "" {
			return nil, &ApplicationError{StatusCode: status, Msg: eb.Error}
		}
		return nil, &ApplicationError{StatusCode: status, Msg: GenericServerError}
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var eb errorBody
		if err := json.Unmarshal(trimmed, &eb); err == nil && eb.Error != "" {
			return nil, &ApplicationError{StatusCode: status, Msg: eb.Error}
		}
		return nil, &ApplicationError{StatusCode: status, Msg: GenericServerError}
	}

	var threads []model.ThreadRecord
	if err := json.Unmarshal(trimmed, &threads); err != nil {
		return nil, &ApplicationError{StatusCode: status, Msg: fmt.Sprintf("Malformed analyzer response: %v", err)}
	}
	if threads == nil {
		threads = []model.ThreadRecord{}
	}
	return threads, nil
}

// HealthStatus is the analyzer liveness answer.
type HealthStatus struct {
	Status string `json:"status"`
}

// Health checks the analyzer's liveness endpoint. It uses a short timeout
// so start-up is never held up by a dead service.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(HealthPath), nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, &TransportError{Port: c.Port(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthStatus{}, fmt.Errorf("analyzer health returned status: %s", resp.Status)
	}

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health: %w", err)
	}
	return hs, nil
}

// UserMessage converts any submission error into the text shown to the
// user. Validation, transport and application errors are shown verbatim;
// anything else is prefixed so it reads as a failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		te *TransportError
		ae *ApplicationError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &te):
		return te.Error()
	case errors.As(err, &ae):
		return ae.Error()
	default:
		return "Error: " + err.Error()
	}
}
