// Package app provides the application logic behind the CLI commands.
// It turns command input into a fetch call (query, headers, body), wires the
// HTTP transport, fetcher and API client from the configuration, and renders
// responses and structured request errors.
package app
