package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/apifetch/internal/client/api"
	"github.com/oshokin/apifetch/internal/fetch"
	"github.com/oshokin/apifetch/internal/utils"
)

// RequestInput describes one request issued from the command line.
type RequestInput struct {
	// Method is the HTTP method.
	Method fetch.Method
	// Path is appended to the base URL, or used as is when Absolute is set.
	Path string
	// Query holds "key=value" pairs.
	Query []string
	// Headers holds "Name: value" pairs.
	Headers []string
	// Data is the raw body, or "@file" to read it from a file.
	Data string
	// DataIsJSON parses Data as JSON and sends it as a structured body.
	DataIsJSON bool
	// Form holds "name=value" or "name=@file" multipart fields.
	Form []string
	// Absolute bypasses the base URL.
	Absolute bool
	// Fields, Limit and Offset are the API options.
	Fields []string
	Limit  *int
	Offset *int
	// Select is a gjson path applied to JSON output.
	Select string
	// OutputPath receives the output instead of stdout.
	OutputPath string
}

const (
	// filePrefix marks a value to be read from a file.
	filePrefix = "@"
	// querySeparator separates query keys from values.
	querySeparator = "="
	// headerSeparator separates header names from values.
	headerSeparator = ":"
)

// Static error definitions for better error handling.
var (
	// ErrDataAndForm indicates that both a raw body and form fields were given.
	ErrDataAndForm = errors.New("--data and --form cannot be used together")
	// ErrInvalidJSONData indicates that --json data does not parse.
	ErrInvalidJSONData = errors.New("data is not valid JSON")
	// ErrUnsupportedMethod indicates a method the client cannot dispatch.
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// apiOptions converts the input into API client options.
func (in *RequestInput) apiOptions() (*api.Options, error) {
	query, err := parseQuery(in.Query)
	if err != nil {
		return nil, err
	}

	headers, err := parseHeaders(in.Headers)
	if err != nil {
		return nil, err
	}

	return &api.Options{
		Fields:        utils.Map(in.Fields, strings.TrimSpace),
		Limit:         in.Limit,
		Offset:        in.Offset,
		Query:         query,
		Headers:       headers,
		BypassBaseURL: in.Absolute,
	}, nil
}

// body builds the request payload: multipart form, parsed JSON, raw text, or nil.
func (in *RequestInput) body() (any, error) {
	if len(in.Form) > 0 {
		if in.Data != "" {
			return nil, ErrDataAndForm
		}

		return buildForm(in.Form)
	}

	data, err := readValue(in.Data)
	if err != nil {
		return nil, err
	}

	if data == "" {
		return nil, nil //nolint:nilnil // No body.
	}

	if !in.DataIsJSON {
		return data, nil
	}

	decoder := json.NewDecoder(strings.NewReader(data))
	// Numbers are kept verbatim when the body is encoded again.
	decoder.UseNumber()

	var parsed any
	if err = decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSONData, err)
	}

	if _, err = decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSONData)
	}

	return parsed, nil
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil //nolint:nilnil // No query parameters.
	}

	query := make(url.Values, len(pairs))

	for _, pair := range pairs {
		key, value, err := utils.SplitPair(pair, querySeparator)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter: %w", err)
		}

		query.Add(key, value)
	}

	return query, nil
}

func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil //nolint:nilnil // No headers.
	}

	headers := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		name, value, err := utils.SplitPair(pair, headerSeparator)
		if err != nil {
			return nil, fmt.Errorf("invalid header: %w", err)
		}

		headers[name] = value
	}

	return headers, nil
}

func buildForm(fields []string) (*fetch.FormData, error) {
	form := fetch.NewFormData()

	for _, field := range fields {
		name, value, err := utils.SplitPair(field, querySeparator)
		if err != nil {
			return nil, fmt.Errorf("invalid form field: %w", err)
		}

		if !strings.HasPrefix(value, filePrefix) {
			if err = form.AddField(name, value); err != nil {
				return nil, err
			}

			continue
		}

		if err = addFormFile(form, name, strings.TrimPrefix(value, filePrefix)); err != nil {
			return nil, err
		}
	}

	return form, nil
}

func addFormFile(form *fetch.FormData, name, path string) error {
	file, err := os.Open(path) //nolint:gosec // The path is supplied by the user on purpose.
	if err != nil {
		return fmt.Errorf("failed to open form file: %w", err)
	}

	defer file.Close() //nolint:errcheck // Read-only file.

	return form.AddFile(name, filepath.Base(path), file)
}

// readValue returns value, or the content of the file it names with a leading "@".
func readValue(value string) (string, error) {
	if !strings.HasPrefix(value, filePrefix) {
		return value, nil
	}

	content, err := os.ReadFile(strings.TrimPrefix(value, filePrefix))
	if err != nil {
		return "", fmt.Errorf("failed to read data file: %w", err)
	}

	return string(bytes.TrimRight(content, "\r\n")), nil
}
