// Package client provides a Go client for the ledgerworkd admin API.
//
// Usage:
//
//	c, err := client.New("http://localhost:8080")
//
//	// Register a ledger node.
//	n, err := c.CreateNode(ctx, client.CreateNodeRequest{
//	    Ledger:    "ledger_main",
//	    Consensus: "continuity",
//	})
//
//	// Run a scheduling pass now and inspect the report.
//	rep, err := c.RunPass(ctx)
//
// Error responses are mapped back to the ledgerwork sentinel errors, so
// errors.Is(err, ledgerwork.ErrNodeNotFound) works across the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/api"
	"github.com/xraph/ledgerwork/engine"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/scheduler"
)

// CreateNodeRequest is the body of CreateNode.
type CreateNodeRequest = api.CreateNodeRequest

// Client talks to one ledgerworkd instance.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New creates a client for the admin API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ledgerwork/client: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health checks that the instance and its store are reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// CreateNode registers a ledger node and returns it with its assigned ID.
func (c *Client) CreateNode(ctx context.Context, req CreateNodeRequest) (*node.Node, error) {
	var n node.Node
	if err := c.do(ctx, http.MethodPost, "/v1/nodes", nil, req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNode fetches one ledger node.
func (c *Client) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	var n node.Node
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/"+nodeID.String(), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNode tombstones a ledger node.
func (c *Client) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	return c.do(ctx, http.MethodDelete, "/v1/nodes/"+nodeID.String(), nil, nil, nil)
}

// ListNodes lists ledger nodes. A zero Limit uses the server default page.
func (c *Client) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Ledger != "" {
		q.Set("ledger", opts.Ledger)
	}
	if opts.IncludeDeleted {
		q.Set("include_deleted", "true")
	}

	var nodes []*node.Node
	if err := c.do(ctx, http.MethodGet, "/v1/nodes", q, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Stats returns the instance's scheduling statistics.
func (c *Client) Stats(ctx context.Context) (*engine.Stats, error) {
	var st engine.Stats
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// RunPass asks the instance to run one scheduling pass now.
func (c *Client) RunPass(ctx context.Context) (*scheduler.Report, error) {
	var rep scheduler.Report
	if err := c.do(ctx, http.MethodPost, "/v1/passes", nil, nil, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// ── Internal helpers ────────────────────────────────

// do sends one request. body is JSON-encoded when non-nil and the response
// is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledgerwork/client: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("ledgerwork/client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledgerwork/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("ledgerwork client request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledgerwork/client: decode response: %w", err)
	}
	return nil
}

// Error is a non-2xx response that maps to no sentinel error.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledgerwork/client: status %d: %s", e.StatusCode, e.Message)
}

// decodeError maps an error response back to a ledgerwork sentinel when the
// server message carries one.
func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	for _, sentinel := range []error{
		ledgerwork.ErrNodeNotFound,
		ledgerwork.ErrNodeAlreadyExists,
		ledgerwork.ErrNodeDeleted,
		ledgerwork.ErrPassInProgress,
		ledgerwork.ErrShuttingDown,
		ledgerwork.ErrDisabled,
	} {
		if strings.Contains(body.Error, sentinel.Error()) {
			return sentinel
		}
	}
	return &Error{StatusCode: resp.StatusCode, Message: body.Error}
}
