package api

//go:generate $MOCKGEN -source=client.go -destination=mocks/requester_mock.go

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"

	"github.com/oshokin/apifetch/internal/fetch"
	"github.com/oshokin/apifetch/internal/logger"
)

// Requester runs one call through the fetch pipeline.
// *fetch.Fetcher implements it.
type Requester interface {
	// Request sends method to path with body and per-call options.
	Request(ctx context.Context, method fetch.Method, path string, body any, opts *fetch.Options) (*fetch.Response, error)
}

// Options are the per-call API settings.
type Options struct {
	// Fields restricts the returned fields; sent comma-joined.
	Fields []string `url:"fields,comma,omitempty"`
	// Limit caps the number of returned items.
	Limit *int `url:"limit,omitempty"`
	// Offset skips items for pagination.
	Offset *int `url:"offset,omitempty"`
	// Query holds additional query parameters.
	Query url.Values `url:"-"`
	// Headers override the default headers.
	Headers map[string]string `url:"-"`
	// BypassBaseURL makes the path be used as the full URL.
	BypassBaseURL bool `url:"-"`
}

// Client is an API client bound to a Requester.
type Client struct {
	// requester performs the calls.
	requester Requester
}

// NewClient creates a Client sending calls through requester.
func NewClient(requester Requester) *Client {
	return &Client{requester: requester}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *Options) (*fetch.Response, error) {
	return c.request(ctx, fetch.MethodGet, path, nil, opts)
}

// Post issues a POST request with body.
func (c *Client) Post(ctx context.Context, path string, body any, opts *Options) (*fetch.Response, error) {
	return c.request(ctx, fetch.MethodPost, path, body, opts)
}

// Put issues a PUT request with body.
func (c *Client) Put(ctx context.Context, path string, body any, opts *Options) (*fetch.Response, error) {
	return c.request(ctx, fetch.MethodPut, path, body, opts)
}

// Patch issues a PATCH request with body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts *Options) (*fetch.Response, error) {
	return c.request(ctx, fetch.MethodPatch, path, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts *Options) (*fetch.Response, error) {
	return c.request(ctx, fetch.MethodDelete, path, nil, opts)
}

func (c *Client) request(
	ctx context.Context,
	method fetch.Method,
	path string,
	body any,
	opts *Options,
) (*fetch.Response, error) {
	fetchOptions, err := opts.toFetchOptions()
	if err != nil {
		return nil, err
	}

	response, err := c.requester.Request(ctx, method, path, body, fetchOptions)
	if err != nil {
		// There is no point in continuing once the API limit is reached.
		if fetch.IsRateLimited(err) {
			logger.ErrorKV(ctx, "Too many requests", "method", method, "path", path, "error", err)
		}

		return nil, err
	}

	return response, nil
}

// QueryParams returns the query parameters for the options.
func (o *Options) QueryParams() (url.Values, error) {
	if o == nil {
		return nil, nil //nolint:nilnil // No options means no query parameters.
	}

	values, err := query.Values(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode API options: %w", err)
	}

	for key, items := range o.Query {
		for _, item := range items {
			values.Add(key, item)
		}
	}

	return values, nil
}

func (o *Options) toFetchOptions() (*fetch.Options, error) {
	if o == nil {
		return nil, nil //nolint:nilnil // The pipeline treats nil options as empty.
	}

	values, err := o.QueryParams()
	if err != nil {
		return nil, err
	}

	return &fetch.Options{
		QueryParams:   values,
		Headers:       o.Headers,
		BypassBaseURL: o.BypassBaseURL,
	}, nil
}

// Int returns a pointer to v, for Limit and Offset.
func Int(v int) *int {
	return &v
}
