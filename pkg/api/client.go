// Package api implements the HTTP client for the notebook service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/nbctl/pkg/log"
	"github.com/dukex/nbctl/pkg/otelhelper"
	"github.com/moogar0880/problems"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 64 << 10
	userAgent       = "nbctl"
	webhookEndpoint = "webhook"
)

// Client talks to the notebook service over HTTP.
type Client struct {
	baseURL     string
	token       string
	workspaceID string
	httpClient  *http.Client
	tracer      trace.Tracer
	logger      *slog.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithWorkspace(workspaceID string) Option {
	return func(c *Client) { c.workspaceID = workspaceID }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otelhelper.Tracer(),
		logger:     log.WithModule("api_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NormalizeBaseURL returns baseURL with exactly one trailing slash.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/"
}

// BaseURL returns the normalized base URL, ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WorkspaceID returns the workspace the client is scoped to.
func (c *Client) WorkspaceID() string {
	return c.workspaceID
}

// Authenticated reports whether the client carries credentials.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// NotebookURL returns the browser URL of a notebook.
func (c *Client) NotebookURL(id string) string {
	return c.baseURL + "notebook/" + url.PathEscape(id)
}

// TemplatesURL returns the prefix of the workspace template URLs.
func (c *Client) TemplatesURL() string {
	return c.baseURL + "api/workspaces/" + url.PathEscape(c.workspaceID) + "/templates/"
}

// TriggerWebhookURL returns the public invocation URL of a trigger.
func (c *Client) TriggerWebhookURL(id string) string {
	return c.TriggerSecretURL(id, webhookEndpoint)
}

// TriggerSecretURL returns the invocation URL of a trigger that carries its secret.
func (c *Client) TriggerSecretURL(id, secret string) string {
	return c.baseURL + "api/triggers/" + url.PathEscape(id) + "/" + url.PathEscape(secret)
}

type request struct {
	op        string
	method    string
	path      string
	url       string
	body      any
	anonymous bool
	workspace bool
	notFound  error
	attrs     []attribute.KeyValue
}

func (c *Client) workspacePath(elem ...string) string {
	parts := []string{"api", "workspaces", url.PathEscape(c.workspaceID)}
	for _, e := range elem {
		parts = append(parts, url.PathEscape(e))
	}

	return strings.Join(parts, "/")
}

// do executes r and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	raw, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &NetworkError{
			Method: r.method,
			URL:    c.target(r),
			Err:    fmt.Errorf("%w: decoding response: %w", ErrNetwork, err),
		}
	}

	return nil
}

func (c *Client) target(r request) string {
	if r.url != "" {
		return r.url
	}

	return c.baseURL + r.path
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	target := c.target(r)

	if r.workspace && c.workspaceID == "" {
		return nil, ErrWorkspaceRequired
	}

	attrs := append(otelhelper.HTTPAttributes(r.method, target), r.attrs...)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "api."+r.op, attrs...)
	defer span.End()

	logger := c.logger.With("op", r.op, "method", r.method, "url", target)

	var body io.Reader

	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to encode %s request: %w", r.op, err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &NetworkError{Method: r.method, URL: target, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !r.anonymous && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.DebugContext(ctx, "sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &NetworkError{Method: r.method, URL: target, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	otelhelper.SetStatusCode(span, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &NetworkError{
			Method:  r.method,
			URL:     target,
			Status:  resp.StatusCode,
			Problem: decodeProblem(io.LimitReader(resp.Body, maxErrorBody)),
			Err:     statusError(resp.StatusCode, r.notFound),
		}

		otelhelper.SetError(span, netErr)
		logger.DebugContext(ctx, "request failed", "status", resp.StatusCode)

		return nil, netErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &NetworkError{Method: r.method, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}

	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "bytes", len(raw))

	return raw, nil
}

func decodeProblem(body io.Reader) *problems.Problem {
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var problem problems.Problem
	if err := json.Unmarshal(raw, &problem); err != nil {
		return &problems.Problem{Detail: strings.TrimSpace(string(raw))}
	}

	if problem.Title == "" && problem.Detail == "" {
		return nil
	}

	return &problem
}
