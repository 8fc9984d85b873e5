// internal/gateway/client.go
//
// Backend Gateway: uniform request execution against the hosted data
// service.
//
// Context
// -------
// The backend exposes several API groups ("content", "design", "site",
// "live", "ai", "analytics"), each under its own base URL.  Callers name a
// group and a path; the gateway resolves the URL, attaches a credential,
// enforces the per-call timeout, and turns the response into either raw
// JSON or an *apperr.Error of one of three failure classes:
//
//   - TransportError  → dial, timeout, or context cancellation.
//   - UpstreamError   → non-2xx.  The backend's own message is surfaced,
//     and 404 is reported as NotFound.
//   - ParseError      → the body is not JSON.
//
// Credential precedence is Request.Token, then the token relayed in ctx,
// then the server-held TokenSource.  When none yields a credential the
// request is sent without Authorization.
//
// Notes
// -----
// • No retries here.  Retry policy belongs to callers that know which
//   calls are idempotent.
// • Oxford commas, two spaces after periods.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/auth"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/config"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
)

// Logical resource groups.
const (
	GroupContent   = "content"
	GroupDesign    = "design"
	GroupSite      = "site"
	GroupLive      = "live"
	GroupAI        = "ai"
	GroupAnalytics = "analytics"
)

const maxBody = 8 << 20

// Request describes one backend call.
type Request struct {
	Group  string
	Method string // defaults to GET
	Path   string
	Query  url.Values
	Body   any    // JSON-encoded when non-nil
	Token  string // overrides every other credential source
}

// Caller is the narrow interface consumers depend on.  *Client satisfies
// it; tests may substitute their own.
type Caller interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client executes Requests.  Safe for concurrent use.
type Client struct {
	http    *http.Client
	groups  map[string]*url.URL
	timeout time.Duration
	tokens  TokenSource
	log     *zap.SugaredLogger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTokenSource sets the server-held credential fallback.
func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

// WithLogger attaches a logger.  zap.S() is used otherwise.
func WithLogger(l *zap.SugaredLogger) Option { return func(c *Client) { c.log = l } }

// New builds a Client from the backend section of the configuration.
func New(cfg config.Backend, opts ...Option) (*Client, error) {
	c := &Client{
		http:    &http.Client{},
		groups:  make(map[string]*url.URL, len(cfg.Groups)),
		timeout: cfg.Timeout,
		log:     zap.S(),
	}
	for name, raw := range cfg.Groups {
		u, err := url.Parse(strings.TrimRight(raw, "/"))
		if err != nil {
			return nil, fmt.Errorf("backend group %q: %w", name, err)
		}
		c.groups[name] = u
	}
	if cfg.APIToken != "" {
		c.tokens = StaticToken(cfg.APIToken)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Do executes req and returns the response body.  A 2xx response with an
// empty body yields a nil RawMessage.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	op := "gateway." + req.Group
	start := time.Now()

	raw, err := c.do(ctx, op, req)

	metrics.GatewayRequestDuration.WithLabelValues(req.Group).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues(req.Group, string(apperr.KindOf(err))).Inc()
		c.log.Debugw("backend call failed", "group", req.Group, "path", req.Path, "err", err)
	}
	return raw, err
}

func (c *Client) do(ctx context.Context, op string, req Request) (json.RawMessage, error) {
	base, ok := c.groups[req.Group]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, op, fmt.Sprintf("unknown backend group %q", req.Group))
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *base
	u.Path = base.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, err)
		}
		body = bytes.NewReader(b)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if tok := c.credential(ctx, req); tok != "" {
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := apperr.KindUpstream
		if resp.StatusCode == http.StatusNotFound {
			kind = apperr.KindNotFound
		}
		return nil, &apperr.Error{
			Kind:    kind,
			Op:      op,
			Status:  resp.StatusCode,
			Message: upstreamMessage(resp.StatusCode, b),
		}
	}

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, apperr.New(apperr.KindParse, op, "response body is not valid JSON")
	}
	return json.RawMessage(b), nil
}

// credential applies the precedence rule.  A failing token source is
// logged and the call goes out unauthenticated, leaving the backend to
// decide what an anonymous caller may see.
func (c *Client) credential(ctx context.Context, req Request) string {
	if req.Token != "" {
		return req.Token
	}
	if tok, ok := auth.Token(ctx); ok {
		return tok
	}
	if c.tokens == nil {
		return ""
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warnw("backend token unavailable, sending unauthenticated", "group", req.Group, "err", err)
		return ""
	}
	return tok
}

// upstreamMessage pulls the backend's own error text out of b when it has
// one, falling back to the status line.
func upstreamMessage(status int, b []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("backend returned %d %s", status, http.StatusText(status))
}
