// Package api is the HTTP client every resource service goes through. It
// attaches the bearer token, normalizes failures into *Error and ends the
// session on a 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"nourish/middlewares"
	"nourish/session"
)

// Client issues JSON requests against the backend base URL.
type Client struct {
	baseURL   string
	store     session.Store
	log       *zap.Logger
	http      *http.Client
	base      http.RoundTripper
	timeout   time.Duration
	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout bounds every request by d. Requests are unbounded by default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTransport replaces the underlying round tripper. The bearer, request
// id and logging middlewares still wrap it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// OnSessionExpired registers fn to run once per 401, after the store has
// been cleared. The caller decides where the user goes next.
func OnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New returns a client for baseURL, e.g. "http://localhost:5001/api".
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{
		Timeout: c.timeout,
		Transport: middlewares.Chain(c.base,
			middlewares.RequestID(),
			middlewares.Bearer(store),
			middlewares.Logging(c.log),
		),
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the token store the client authenticates from.
func (c *Client) Store() session.Store { return c.store }

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

// Get decodes the JSON response of GET endpoint?params into out.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.URL(endpoint)
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, "", out)
}

// Post sends body as JSON. A nil body is sent as "{}".
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, endpoint, body, out)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, endpoint, body, out)
}

// Delete issues DELETE endpoint. out may be nil.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodDelete, c.URL(endpoint), nil, "", out)
}

// PostMultipart sends form as multipart/form-data.
func (c *Client) PostMultipart(ctx context.Context, endpoint string, form *Multipart, out any) error {
	body, contentType, err := form.Encode()
	if err != nil {
		return &Error{Kind: KindGeneral, Message: err.Error(), Err: err}
	}
	return c.do(ctx, http.MethodPost, c.URL(endpoint), body, contentType, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, body, out any) error {
	if body == nil {
		body = struct{}{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindGeneral, Message: fmt.Sprintf("encode request: %v", err), Err: err}
	}
	return c.do(ctx, method, c.URL(endpoint), bytes.NewReader(raw), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Kind: KindGeneral, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return &Error{Kind: KindNetwork, Message: "Request canceled", Err: ctxErr}
		}
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		e := c.Expire()
		e.Detail = parseError(raw, resp.StatusCode).Message
		return e
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(raw, resp.StatusCode)
		c.log.Debug("request rejected",
			zap.String("method", method),
			zap.String("url", u),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind.String()),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Kind:       KindGeneral,
			Message:    fmt.Sprintf("decode response: %v", err),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return nil
}

// Expire ends the session after a 401 seen outside Client, e.g. on a
// websocket dial. It clears the credential, notifies the registered hook
// and returns the error the caller should surface.
func (c *Client) Expire() *Error {
	if err := c.store.Clear(); err != nil {
		c.log.Warn("failed to clear session", zap.Error(err))
	}
	c.log.Info("session expired")
	if c.onExpired != nil {
		c.onExpired()
	}
	return sessionExpired()
}
