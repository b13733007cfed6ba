// Package ipc is the request/response bridge to the native search daemon.
package ipc

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

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/viant/rescache/internal/httpx"
	"github.com/viant/rescache/query"
)

// SearchChannel is the channel answering cached resource searches.
const SearchChannel = "searchCache"

// Invoker sends payload on channel and returns the raw reply.
type Invoker interface {
	Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, channel string, payload any) (json.RawMessage, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error) {
	return f(ctx, channel, payload)
}

// SearchRequest is the payload of SearchChannel. Paging and recursion never
// travel to the daemon.
type SearchRequest struct {
	Resource string        `json:"resource"`
	Plural   string        `json:"plural"`
	Token    string        `json:"token"`
	Filters  query.Filters `json:"filters,omitempty"`
	Search   string        `json:"search,omitempty"`
	Sort     query.Sort    `json:"sort,omitempty"`
	ScopeID  string        `json:"scope_id,omitempty"`
}

// HTTPInvoker posts payloads to {base}/invoke/{channel}.
type HTTPInvoker struct {
	base   string
	client *retryablehttp.Client
}

// HTTPOption configures an HTTPInvoker.
type HTTPOption func(*HTTPInvoker)

// WithClient replaces the retrying client.
func WithClient(c *retryablehttp.Client) HTTPOption {
	return func(h *HTTPInvoker) { h.client = c }
}

// NewHTTPInvoker creates an invoker for the daemon at base.
func NewHTTPInvoker(base string, opts ...HTTPOption) *HTTPInvoker {
	h := &HTTPInvoker{
		base:   strings.TrimSuffix(base, "/"),
		client: httpx.NewRetryClient(2, 50*time.Millisecond),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke implements Invoker.
func (h *HTTPInvoker) Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ipc: encode %s payload: %w", channel, err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		h.base+"/invoke/"+url.PathEscape(channel), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpx.RequestIDHeader, uuid.NewString())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipc: invoke %s: %w", channel, err)
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("ipc: invoke %s: %w", channel, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ipc: read %s reply: %w", channel, err)
	}
	return data, nil
}
