package http

import "time"

const (
	// DefaultTimeout is the default timeout duration for HTTP requests.
	DefaultTimeout = 60 * time.Second

	// userAgentProduct is the product token of the default User-Agent.
	userAgentProduct = "apifetch"

	// requestIDHeader carries the id LogTransport assigns to each exchange.
	requestIDHeader = "X-Request-Id"
)
