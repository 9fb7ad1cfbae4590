package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// EncodedBody is a request payload ready to be handed to a Transport.
// Exactly one of Text and Form is meaningful.
type EncodedBody struct {
	// Text holds a raw string payload or the JSON text of a structured body.
	Text string
	// Form holds a multipart payload, passed through untouched.
	Form *FormData
}

// Reader returns a reader over the payload.
func (b *EncodedBody) Reader() (io.Reader, error) {
	if b.Form != nil {
		return b.Form.Reader()
	}

	return strings.NewReader(b.Text), nil
}

// EncodeBody turns a request body into its wire form.
//
// A string is passed through unchanged, a *FormData is passed through unchanged,
// and any other value is serialized to JSON text. A nil body, a nil pointer or
// an empty string means there is no body, and nil is returned.
func EncodeBody(body any) (*EncodedBody, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case string:
		if value == "" {
			return nil, nil
		}

		return &EncodedBody{Text: value}, nil
	case *FormData:
		if value == nil {
			return nil, nil
		}

		return &EncodedBody{Form: value}, nil
	}

	if isNilPointer(body) {
		return nil, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body as JSON: %w", err)
	}

	return &EncodedBody{Text: string(data)}, nil
}

func isNilPointer(value any) bool {
	v := reflect.ValueOf(value)

	return v.Kind() == reflect.Pointer && v.IsNil()
}

// MergeHeaders merges default headers, call headers and, for multipart bodies,
// the form's own headers. Later sources win on conflicting names.
// Names are canonicalized, so "content-type" and "Content-Type" are the same header.
// No Content-Type is added for JSON bodies.
func MergeHeaders(defaults, call map[string]string, body any) map[string]string {
	merged := make(map[string]string, len(defaults)+len(call)+1)

	mergeHeadersInto(merged, defaults)
	mergeHeadersInto(merged, call)

	if form, ok := body.(*FormData); ok && form != nil {
		mergeHeadersInto(merged, form.Headers())
	}

	return merged
}

func mergeHeadersInto(dst, src map[string]string) {
	for name, value := range src {
		dst[http.CanonicalHeaderKey(name)] = value
	}
}
