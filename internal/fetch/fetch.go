package fetch

import (
	"context"
	"io"
	"maps"
	"net/http"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/apifetch/internal/logger"
)

// Method is an HTTP method supported by the pipeline.
type Method string

// Supported HTTP methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// DefaultMaxErrorBodySize caps how much of a non-JSON error body is kept in a RequestError.
const DefaultMaxErrorBodySize int64 = 64 * 1024

// Options are the per-call settings shared by every verb.
type Options struct {
	// QueryParams are encoded with the fetcher's QueryEncoder and appended to the URL.
	QueryParams any
	// Headers override the default headers.
	Headers map[string]string
	// BypassBaseURL makes the path be used as the full URL.
	BypassBaseURL bool
}

// ResolvedRequest is the URL, body and headers computed for a call.
type ResolvedRequest struct {
	// Method is the HTTP method.
	Method Method
	// URL is the fully assembled URL.
	URL string
	// Body is the encoded payload, nil when there is none.
	Body *EncodedBody
	// Headers are the merged headers.
	Headers map[string]string
}

// Fetcher issues requests against a base URL.
// Its base URL and default headers are fixed at construction, so a Fetcher
// is safe for concurrent use as long as its Transport is.
type Fetcher struct {
	// baseURL is prepended to every path unless bypassed.
	baseURL string
	// headers are the default headers sent with every request.
	headers map[string]string
	// transport performs the network exchange.
	transport Transport
	// encodeQuery serializes query parameters.
	encodeQuery QueryEncoder
	// clock provides request timestamps.
	clock clock.Clock
	// maxErrorBodySize caps non-JSON error bodies.
	maxErrorBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDefaultHeaders adds headers sent with every request.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		mergeHeadersInto(f.headers, headers)
	}
}

// WithQueryEncoder replaces EncodeQuery.
func WithQueryEncoder(encoder QueryEncoder) Option {
	return func(f *Fetcher) {
		if encoder != nil {
			f.encodeQuery = encoder
		}
	}
}

// WithClock sets the clock used for request timestamps.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithMaxErrorBodySize caps how many bytes of a non-JSON error body are kept.
func WithMaxErrorBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxErrorBodySize = size
		}
	}
}

// New creates a Fetcher for baseURL that sends requests through transport.
func New(baseURL string, transport Transport, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:          baseURL,
		headers:          make(map[string]string),
		transport:        transport,
		encodeQuery:      EncodeQuery,
		clock:            clock.New(),
		maxErrorBodySize: DefaultMaxErrorBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// BaseURL returns the base URL.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// DefaultHeaders returns a copy of the default headers.
func (f *Fetcher) DefaultHeaders() map[string]string {
	return maps.Clone(f.headers)
}

// Get issues a GET request.
func (f *Fetcher) Get(ctx context.Context, path string, opts *Options) (*Response, error) {
	return f.Request(ctx, MethodGet, path, nil, opts)
}

// Post issues a POST request with body.
func (f *Fetcher) Post(ctx context.Context, path string, body any, opts *Options) (*Response, error) {
	return f.Request(ctx, MethodPost, path, body, opts)
}

// Put issues a PUT request with body.
func (f *Fetcher) Put(ctx context.Context, path string, body any, opts *Options) (*Response, error) {
	return f.Request(ctx, MethodPut, path, body, opts)
}

// Patch issues a PATCH request with body.
func (f *Fetcher) Patch(ctx context.Context, path string, body any, opts *Options) (*Response, error) {
	return f.Request(ctx, MethodPatch, path, body, opts)
}

// Delete issues a DELETE request.
func (f *Fetcher) Delete(ctx context.Context, path string, opts *Options) (*Response, error) {
	return f.Request(ctx, MethodDelete, path, nil, opts)
}

// Resolve computes the URL, encoded body and merged headers for a call without sending it.
func (f *Fetcher) Resolve(method Method, path string, body any, opts *Options) (*ResolvedRequest, error) {
	if opts == nil {
		opts = &Options{}
	}

	requestURL, err := buildURL(f.encodeQuery, f.baseURL, path, opts.QueryParams, opts.BypassBaseURL)
	if err != nil {
		return nil, err
	}

	encodedBody, err := EncodeBody(body)
	if err != nil {
		return nil, err
	}

	return &ResolvedRequest{
		Method:  method,
		URL:     requestURL,
		Body:    encodedBody,
		Headers: MergeHeaders(f.headers, opts.Headers, body),
	}, nil
}

// Request runs the whole pipeline for one call.
//
// On success it returns the decoded response untouched. A non-success status
// or a transport failure is returned as a *RequestError. A JSON body that fails
// to parse is returned as a plain error wrapping ErrInvalidJSON.
// Nothing is retried, including 429 responses.
func (f *Fetcher) Request(
	ctx context.Context,
	method Method,
	path string,
	body any,
	opts *Options,
) (*Response, error) {
	resolved, err := f.Resolve(method, path, body, opts)
	if err != nil {
		return nil, err
	}

	requestedAt := f.clock.Now()

	transportResponse, err := f.transport.Do(ctx, &TransportRequest{
		Method:  string(resolved.Method),
		URL:     resolved.URL,
		Headers: resolved.Headers,
		Body:    resolved.Body,
	})
	if err != nil {
		logger.DebugKV(ctx, "Transport failed", "method", method, "url", resolved.URL, "error", err)

		return nil, newTransportError(string(method), resolved.URL, requestedAt, err)
	}

	response, err := Decode(transportResponse)
	if err != nil {
		return nil, err
	}

	if !transportResponse.OK {
		logger.DebugKV(ctx, "Request failed", "method", method, "url", resolved.URL, "status", response.Status)

		return nil, newStatusError(
			string(method),
			resolved.URL,
			requestedAt,
			response.Status,
			response.StatusText,
			f.describeBody(ctx, response),
		)
	}

	return response, nil
}

// describeBody renders a failed response body for a RequestError.
// Raw streams are read as text up to maxErrorBodySize and closed.
// A read failure keeps whatever was read before it.
func (f *Fetcher) describeBody(ctx context.Context, response *Response) string {
	if !response.IsJSON() {
		defer response.Close() //nolint:errcheck // The body is discarded after reading.

		data, err := io.ReadAll(io.LimitReader(response.Body, f.maxErrorBodySize))
		if err != nil {
			logger.DebugKV(ctx, "Failed to read error response body", "read_bytes", len(data), "error", err)
		}

		return string(data)
	}

	if text, ok := response.Value.(string); ok {
		return text
	}

	pretty, err := prettyJSON(response.Raw())
	if err != nil {
		return string(response.Raw())
	}

	return pretty
}
