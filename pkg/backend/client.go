// Package backend is the HTTP client for the relationship service.
//
// [Client] implements both expansion.NeighborSource and views.Repository,
// so the explorer can run against a remote server exactly as it runs
// against a local dataset:
//
//	GET  /neighbors?node_id=<id>&limit=<n>  -> [{from, to, rel, weight?}]
//	POST /views {name,nodes,edges,positions} -> {id}
//	GET  /views                              -> [{id, name}]
//	GET  /views/{id}                         -> {id,name,nodes,edges,positions}
//
// Neighbor responses are cached on disk through httputil.Cache unless the
// client is created with Refresh set. View calls are never cached.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/linkscope/pkg/cache"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/httputil"
	"github.com/matzehuels/linkscope/pkg/observability"
	"github.com/matzehuels/linkscope/pkg/views"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// Options configures a Client.
type Options struct {
	// Cache stores neighbor responses. Nil disables caching.
	Cache *httputil.Cache
	// Refresh bypasses cached neighbor responses but still writes fresh
	// ones.
	Refresh bool
	// Timeout per request. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Headers are sent with every request.
	Headers map[string]string
	// HTTPClient overrides the transport. Its Timeout is left alone.
	HTTPClient *http.Client
}

// Client talks to a linkscope-compatible backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	cache   *httputil.Cache
	keyer   cache.Keyer
	refresh bool
	headers map[string]string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	if err := lserrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, lserrors.Wrap(lserrors.ErrCodeValidation, err, "invalid backend url")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:    u,
		http:    hc,
		cache:   opts.Cache,
		keyer:   cache.NewDefaultKeyer(),
		refresh: opts.Refresh,
		headers: opts.Headers,
	}, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.base.String() }

// =============================================================================
// Neighbors
// =============================================================================

// Neighbors implements expansion.NeighborSource.
func (c *Client) Neighbors(ctx context.Context, nodeID string, limit int) ([]graph.RelationTriple, error) {
	key := c.keyer.NeighborKey(c.base.String(), nodeID, limit)
	var triples []graph.RelationTriple

	if c.cache != nil && !c.refresh {
		if ok, _ := c.cache.Get(key, &triples); ok {
			observability.Cache().OnCacheHit(ctx, "neighbors")
			return triples, nil
		}
		observability.Cache().OnCacheMiss(ctx, "neighbors")
	}

	q := url.Values{}
	q.Set("node_id", nodeID)
	q.Set("limit", strconv.Itoa(limit))
	if err := c.do(ctx, http.MethodGet, "/neighbors", q, nil, &triples); err != nil {
		return nil, err
	}
	if triples == nil {
		triples = []graph.RelationTriple{}
	}

	if c.cache != nil {
		if err := c.cache.Set(key, triples); err == nil {
			observability.Cache().OnCacheSet(ctx, "neighbors", len(triples))
		}
	}
	return triples, nil
}

// =============================================================================
// Views
// =============================================================================

type createViewRequest struct {
	Name      string          `json:"name"`
	Nodes     []graph.Node    `json:"nodes"`
	Edges     []graph.Edge    `json:"edges"`
	Positions graph.Positions `json:"positions"`
}

type createViewResponse struct {
	ID viewID `json:"id"`
}

// viewID accepts ids encoded as JSON strings or numbers.
type viewID string

func (v *viewID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = viewID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("view id must be a string or number: %w", err)
	}
	*v = viewID(n.String())
	return nil
}

type viewResponse struct {
	ID        viewID          `json:"id"`
	Name      string          `json:"name"`
	Nodes     []graph.Node    `json:"nodes"`
	Edges     []graph.Edge    `json:"edges"`
	Positions graph.Positions `json:"positions"`
	CreatedAt time.Time       `json:"created_at,omitzero"`
}

type summaryResponse struct {
	ID        viewID    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Create implements views.Repository.
func (c *Client) Create(ctx context.Context, rec views.Record) (string, error) {
	req := createViewRequest{Name: rec.Name, Nodes: rec.Nodes, Edges: rec.Edges, Positions: rec.Positions}
	var resp createViewResponse
	if err := c.do(ctx, http.MethodPost, "/views", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", lserrors.New(lserrors.ErrCodeMalformedData, "server returned no view id")
	}
	return string(resp.ID), nil
}

// Get implements views.Repository. A 404 wraps views.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (views.Record, error) {
	var resp viewResponse
	err := c.do(ctx, http.MethodGet, "/views/"+url.PathEscape(id), nil, nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return views.Record{}, fmt.Errorf("%w: %s", views.ErrNotFound, id)
	}
	if err != nil {
		return views.Record{}, err
	}
	if resp.ID == "" {
		resp.ID = viewID(id)
	}
	return views.Record{
		ID:        string(resp.ID),
		Name:      resp.Name,
		Nodes:     resp.Nodes,
		Edges:     resp.Edges,
		Positions: resp.Positions,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// List implements views.Repository.
func (c *Client) List(ctx context.Context) ([]views.Summary, error) {
	var resp []summaryResponse
	if err := c.do(ctx, http.MethodGet, "/views", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]views.Summary, len(resp))
	for i, s := range resp {
		out[i] = views.Summary{ID: string(s.ID), Name: s.Name, CreatedAt: s.CreatedAt}
	}
	return out, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// =============================================================================
// Transport
// =============================================================================

// errorBody is the JSON error envelope written by the reference server.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return lserrors.Wrap(lserrors.ErrCodeInternal, err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return lserrors.Wrap(lserrors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, path, err)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return lserrors.Wrap(lserrors.ErrCodeTimeout, err, "%s %s timed out", method, path)
		}
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return lserrors.Wrap(lserrors.ErrCodeMalformedData, err, "decode %s response", path)
	}
	return nil
}

// checkStatus maps a non-2xx response to an error. Codes the server put in
// the error body survive, so a rejected request is not mistaken for a
// network failure. INTERNAL_ERROR and NETWORK_ERROR bodies, and 5xx
// responses without a code, are retryable network errors.
func checkStatus(resp *http.Response) error {
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&eb)
	msg := eb.Error
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}

	switch code := lserrors.Code(eb.Code); code {
	case lserrors.ErrCodeValidation, lserrors.ErrCodeMalformedData, lserrors.ErrCodeUnsupported:
		return lserrors.New(code, "%s", msg)
	case lserrors.ErrCodeTimeout:
		return &httputil.RetryableError{Err: lserrors.New(code, "%s", msg)}
	case lserrors.ErrCodePersistenceConflict:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}

	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %s", ErrNetwork, msg)}
	}
	return fmt.Errorf("%w: %s", ErrNetwork, msg)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var (
	_ expansion.NeighborSource = (*Client)(nil)
	_ views.Repository         = (*Client)(nil)
)
