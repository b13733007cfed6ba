// Package liveapi lists resources from the live controller API.
package liveapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/viant/rescache/internal/httpx"
	"github.com/viant/rescache/query"
	"github.com/viant/rescache/session"
)

// HTTPError is a non-2xx API response.
type HTTPError = httpx.HTTPError

// ListResult is one list response: the current items and the ids the API
// reports as removed since they were last listed.
type ListResult struct {
	Items      []json.RawMessage `json:"items"`
	RemovedIDs []string          `json:"removed_ids,omitempty"`
}

// Fetcher lists resources of one type.
type Fetcher interface {
	List(ctx context.Context, plural string, spec *query.Spec) (*ListResult, error)
}

// Client is the HTTP Fetcher.
type Client struct {
	base     string
	identity session.Identity
	client   *retryablehttp.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetryClient replaces the retrying HTTP client.
func WithRetryClient(c *retryablehttp.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// New creates a Client for the API at base. identity may be nil for
// unauthenticated listings.
func New(base string, identity session.Identity, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimSuffix(base, "/"),
		identity: identity,
		client:   httpx.NewRetryClient(3, 100*time.Millisecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List implements Fetcher.
func (c *Client) List(ctx context.Context, plural string, spec *query.Spec) (*ListResult, error) {
	endpoint := c.base + "/v1/" + url.PathEscape(plural)
	if params := listParams(spec).Encode(); params != "" {
		endpoint += "?" + params
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(httpx.RequestIDHeader, uuid.NewString())
	if c.identity != nil {
		token, err := c.identity.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("liveapi: list %s: %w", plural, err)
		}
		httpx.AddAuthHeader(req, token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("liveapi: list %s: %w", plural, err)
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("liveapi: list %s: %w", plural, err)
	}
	result := &ListResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("liveapi: decode %s: %w", plural, err)
	}
	return result, nil
}

func listParams(spec *query.Spec) url.Values {
	params := url.Values{}
	if spec == nil {
		return params
	}
	if spec.ScopeID != "" {
		params.Set("scope_id", spec.ScopeID)
	}
	if spec.Recursive {
		params.Set("recursive", "true")
	}
	if filter := FilterExpression(spec.Filters); filter != "" {
		params.Set("filter", filter)
	}
	if spec.Search != "" {
		params.Set("search", spec.Search)
	}
	if spec.PageSize > 0 {
		params.Set("page", strconv.Itoa(max(spec.Page, 1)))
		params.Set("page_size", strconv.Itoa(spec.PageSize))
	}
	return params
}

// FilterExpression renders filters in the API's item filter syntax: clauses
// of one attribute are or-ed, attributes are and-ed.
func FilterExpression(filters query.Filters) string {
	attrs := filters.Attributes()
	sort.Strings(attrs)
	var groups []string
	for _, attr := range attrs {
		var ors []string
		for _, c := range filters[attr] {
			value := strconv.Quote(fmt.Sprint(c.Value()))
			if c.IsContains() {
				ors = append(ors, fmt.Sprintf(`"/item/%s" matches %s`, attr, value))
			} else {
				ors = append(ors, fmt.Sprintf(`"/item/%s" == %s`, attr, value))
			}
		}
		switch len(ors) {
		case 0:
		case 1:
			groups = append(groups, ors[0])
		default:
			groups = append(groups, "("+strings.Join(ors, " or ")+")")
		}
	}
	return strings.Join(groups, " and ")
}
