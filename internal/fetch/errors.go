package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RequestErrorKind is the classification tag carried by every RequestError.
const RequestErrorKind = "REQUEST_ERROR"

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrRequestFailed matches any *RequestError with errors.Is.
var ErrRequestFailed = errors.New("request failed")

// RequestError describes a failed exchange.
//
// It is returned either for a completed exchange with a non-success status
// (Status and Message set, Err nil) or for a transport failure
// (Err set, Status 0, Message empty).
type RequestError struct {
	// Kind is always RequestErrorKind.
	Kind string
	// Method is the HTTP method of the request.
	Method string
	// Resource is the request URL with percent-encoding reversed.
	Resource string
	// RequestTimestamp is the ISO-8601 moment captured right before the transport call.
	RequestTimestamp string
	// Status is the HTTP status code, 0 for transport failures.
	Status int
	// Message is the reason phrase of the response.
	Message string
	// ResponseBody is the decoded response body rendered as text.
	ResponseBody string
	// Err is the underlying transport failure, if any.
	Err error
}

func newStatusError(method, rawURL string, requestedAt time.Time, status int, statusText, responseBody string) *RequestError {
	return &RequestError{
		Kind:             RequestErrorKind,
		Method:           method,
		Resource:         unescapeResource(rawURL),
		RequestTimestamp: formatTimestamp(requestedAt),
		Status:           status,
		Message:          statusText,
		ResponseBody:     responseBody,
	}
}

func newTransportError(method, rawURL string, requestedAt time.Time, cause error) *RequestError {
	return &RequestError{
		Kind:             RequestErrorKind,
		Method:           method,
		Resource:         unescapeResource(rawURL),
		RequestTimestamp: formatTimestamp(requestedAt),
		Err:              cause,
	}
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed at %s: %v", e.Method, e.Resource, e.RequestTimestamp, e.Err)
	}

	return fmt.Sprintf("%s %s failed at %s: %d %s", e.Method, e.Resource, e.RequestTimestamp, e.Status, e.Message)
}

// Unwrap returns the underlying transport failure.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRequestFailed.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsTransportFailure reports whether the exchange itself could not complete.
func (e *RequestError) IsTransportFailure() bool {
	return e.Err != nil
}

// IsRateLimited reports whether the server answered 429 Too Many Requests.
func (e *RequestError) IsRateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// AsRequestError extracts a *RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr, true
	}

	return nil, false
}

// IsRateLimited reports whether err is a rate-limited RequestError.
func IsRateLimited(err error) bool {
	requestErr, ok := AsRequestError(err)

	return ok && requestErr.IsRateLimited()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// unescapeResource reverses percent-encoding, keeping the raw URL when it is malformed.
func unescapeResource(rawURL string) string {
	unescaped, err := url.PathUnescape(rawURL)
	if err != nil {
		return rawURL
	}

	return unescaped
}

// prettyJSON re-indents raw JSON with two spaces, keeping key order and escaping as received.
func prettyJSON(raw []byte) (string, error) {
	var buffer bytes.Buffer

	if err := json.Indent(&buffer, raw, "", "  "); err != nil {
		return "", err
	}

	return string(bytes.TrimSpace(buffer.Bytes())), nil
}
