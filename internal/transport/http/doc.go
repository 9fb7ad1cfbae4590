// Package http implements the fetch Transport boundary on top of net/http
// and provides RoundTripper decorators for request/response debug logging
// and User-Agent header injection.
package http
