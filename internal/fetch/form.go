package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrFormDataFinalized indicates a write to a FormData that has already been read.
var ErrFormDataFinalized = errors.New("form data is already finalized")

// FormData is a multipart/form-data payload.
// It carries its own Content-Type header (with boundary), which MergeHeaders applies last.
// Parts can be added until the payload is first read.
type FormData struct {
	buffer    bytes.Buffer
	writer    *multipart.Writer
	finalized bool
	closeErr  error
}

// NewFormData creates an empty multipart payload with a random boundary.
func NewFormData() *FormData {
	form := &FormData{}
	form.writer = multipart.NewWriter(&form.buffer)

	return form
}

// AddField appends a plain text field.
func (f *FormData) AddField(name, value string) error {
	if f.finalized {
		return ErrFormDataFinalized
	}

	if err := f.writer.WriteField(name, value); err != nil {
		return fmt.Errorf("failed to write form field %q: %w", name, err)
	}

	return nil
}

// AddFile appends a file part read from content.
func (f *FormData) AddFile(field, filename string, content io.Reader) error {
	if f.finalized {
		return ErrFormDataFinalized
	}

	part, err := f.writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file %q: %w", field, err)
	}

	if _, err = io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to write form file %q: %w", field, err)
	}

	return nil
}

// Boundary returns the multipart boundary.
func (f *FormData) Boundary() string {
	return f.writer.Boundary()
}

// Headers returns the headers required to send the payload.
func (f *FormData) Headers() map[string]string {
	return map[string]string{
		"Content-Type": f.writer.FormDataContentType(),
	}
}

// Reader finalizes the payload on first use and returns a reader over it.
func (f *FormData) Reader() (io.Reader, error) {
	if !f.finalized {
		f.finalized = true
		f.closeErr = f.writer.Close()
	}

	if f.closeErr != nil {
		return nil, fmt.Errorf("failed to finalize form data: %w", f.closeErr)
	}

	return bytes.NewReader(f.buffer.Bytes()), nil
}
