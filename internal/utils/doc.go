// Package utils provides a collection of helper functions and utilities for common tasks,
// such as content type detection, key-value parsing, type conversion and file checks.
// It is designed to simplify repetitive operations and ensure consistency across the application.
package utils
