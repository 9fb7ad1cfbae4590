// Package api provides a thin client over the fetch pipeline for APIs that
// accept "fields", "limit" and "offset" query parameters.
// A rate-limit response is logged and returned unchanged so callers can stop.
package api
