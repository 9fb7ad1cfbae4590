package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSONContentType is the only content type whose body is parsed by Decode.
const JSONContentType = "application/json"

var (
	// ErrInvalidJSON indicates that a body declared as JSON failed to parse.
	ErrInvalidJSON = errors.New("invalid JSON response body")
	// ErrNotJSON indicates an attempt to unmarshal a response that was not decoded as JSON.
	ErrNotJSON = errors.New("response body is not JSON")
)

// Response is the decoded outcome of a single exchange.
// It is created per call and consumed once.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// StatusText is the reason phrase.
	StatusText string
	// ContentType is the Content-Type response header, empty when absent.
	ContentType string
	// Header holds the response headers.
	Header http.Header
	// Value is the parsed JSON body, set only for application/json responses.
	Value any
	// Body is the unread payload for every other content type.
	// The caller owns it and must close it.
	Body io.ReadCloser

	raw    []byte
	isJSON bool
}

// IsJSON reports whether the body was parsed as JSON.
func (r *Response) IsJSON() bool {
	return r.isJSON
}

// Raw returns the JSON bytes the Value was parsed from, or nil for non-JSON responses.
func (r *Response) Raw() []byte {
	return r.raw
}

// Unmarshal decodes the JSON body into target.
func (r *Response) Unmarshal(target any) error {
	if !r.isJSON {
		return ErrNotJSON
	}

	return json.Unmarshal(r.raw, target)
}

// Close releases the raw body of a non-JSON response. It is safe to call on any response.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}

	return r.Body.Close()
}

// Decode turns a transport response into a Response.
//
// When the Content-Type is exactly application/json the body is read once,
// closed and parsed. For any other content type the body is left unread.
func Decode(resp *TransportResponse) (*Response, error) {
	decoded := &Response{
		Status:      resp.Status,
		StatusText:  resp.StatusText,
		ContentType: resp.ContentType(),
		Header:      resp.Header,
	}

	body := resp.Body
	if body == nil {
		body = http.NoBody
	}

	if decoded.ContentType != JSONContentType {
		decoded.Body = body

		return decoded, nil
	}

	defer body.Close() //nolint:errcheck // The body has been fully read.

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err = json.Unmarshal(raw, &decoded.Value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	decoded.raw = raw
	decoded.isJSON = true

	return decoded, nil
}

// Into decodes a successful JSON response into T. It is meant to wrap a verb call:
//
//	post, err := fetch.Into[Post](f.Get(ctx, "posts/1", nil))
//
// A non-JSON body is closed and ErrNotJSON is returned.
func Into[T any](resp *Response, err error) (T, error) {
	var result T

	if err != nil {
		return result, err
	}

	if !resp.IsJSON() {
		resp.Close() //nolint:errcheck,gosec // The body is discarded.

		return result, ErrNotJSON
	}

	if err = resp.Unmarshal(&result); err != nil {
		return result, fmt.Errorf("failed to unmarshal response into %T: %w", result, err)
	}

	return result, nil
}
