package http

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/oshokin/apifetch/internal/config"
	"github.com/oshokin/apifetch/internal/fetch"
	"github.com/oshokin/apifetch/internal/utils"
	"github.com/oshokin/apifetch/internal/version"
)

// Transport implements fetch.Transport on top of an *http.Client.
type Transport struct {
	// client performs the exchanges.
	client *http.Client
}

// NewTransport wraps client, or http.DefaultClient when it is nil.
func NewTransport(client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}

	return &Transport{client: client}
}

// NewHTTPClient builds the client used by the pipeline:
// User-Agent injection over debug logging over http.DefaultTransport.
func NewHTTPClient(cfg *config.Config) *http.Client {
	var (
		timeout      = DefaultTimeout
		userAgent    string
		maxLogLength uint64
	)

	if cfg != nil {
		if cfg.ParsedTimeout > 0 {
			timeout = cfg.ParsedTimeout
		}

		userAgent = strings.TrimSpace(cfg.UserAgent)
		maxLogLength = cfg.ParsedMaxLogLength
	}

	return &http.Client{
		Transport: NewUserAgentInjector(
			NewLogTransport(http.DefaultTransport, maxLogLength),
			utils.NewSimpleUserAgentProvider(userAgent, DefaultUserAgent())),
		Timeout: timeout,
	}
}

// DefaultUserAgent returns the User-Agent sent when none is configured.
func DefaultUserAgent() string {
	return userAgentProduct + "/" + version.Short()
}

// Do sends the request and maps the outcome onto a fetch.TransportResponse.
// Any failure before a status line is received is returned as an error.
func (t *Transport) Do(ctx context.Context, request *fetch.TransportRequest) (*fetch.TransportResponse, error) {
	httpRequest, err := newHTTPRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(httpRequest)
	if err != nil {
		return nil, err
	}

	return &fetch.TransportResponse{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		OK:         resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

func newHTTPRequest(ctx context.Context, request *fetch.TransportRequest) (*http.Request, error) {
	var body io.Reader = http.NoBody

	if request.Body != nil {
		payload, err := request.Body.Reader()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}

		body = payload
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, request.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	setHeaders(httpRequest, request.Headers)

	return httpRequest, nil
}

// setHeaders applies headers in sorted order so requests are reproducible in dumps.
func setHeaders(httpRequest *http.Request, headers map[string]string) {
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		httpRequest.Header.Set(name, headers[name])
	}
}

// statusText extracts the reason phrase from the status line,
// falling back to the standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text != "" {
		return text
	}

	return http.StatusText(resp.StatusCode)
}
