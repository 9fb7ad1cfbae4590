package fetch

//go:generate $MOCKGEN -source=transport.go -destination=mocks/transport_mock.go

import (
	"context"
	"io"
	"net/http"
)

// Transport performs the network exchange for a resolved request.
// Connection management, TLS and redirects are the transport's concern.
type Transport interface {
	// Do sends the request and returns the response, or an error when the
	// exchange could not complete (DNS failure, refused connection, timeout).
	Do(ctx context.Context, request *TransportRequest) (*TransportResponse, error)
}

// TransportRequest is what the pipeline hands to a Transport.
type TransportRequest struct {
	// Method is the HTTP method.
	Method string
	// URL is the fully assembled request URL.
	URL string
	// Headers are the merged request headers.
	Headers map[string]string
	// Body is the encoded payload, nil when the request has none.
	Body *EncodedBody
}

// TransportResponse is what a Transport returns for a completed exchange.
type TransportResponse struct {
	// Status is the HTTP status code.
	Status int
	// StatusText is the reason phrase, e.g. "Not Found".
	StatusText string
	// OK is the transport's own success indicator.
	OK bool
	// Header holds the response headers.
	Header http.Header
	// Body is the unread response payload.
	Body io.ReadCloser
}

// ContentType returns the Content-Type response header, or an empty string when absent.
func (r *TransportResponse) ContentType() string {
	if r.Header == nil {
		return ""
	}

	return r.Header.Get("Content-Type")
}
