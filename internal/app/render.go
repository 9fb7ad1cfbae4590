package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"

	"github.com/oshokin/apifetch/internal/fetch"
)

// ErrNoMatch indicates that a --select path matched nothing.
var ErrNoMatch = errors.New("select path matched nothing")

// jsonIndent is the indentation of rendered JSON.
const jsonIndent = "  "

// renderResponse writes a JSON response pretty-printed (or the selected part of it),
// and copies any other body through unchanged.
func renderResponse(resp *fetch.Response, selectPath string, w io.Writer) error {
	if !resp.IsJSON() {
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("failed to copy response body: %w", err)
		}

		return nil
	}

	raw := resp.Raw()

	if selectPath != "" {
		result := gjson.GetBytes(raw, selectPath)
		if !result.Exists() {
			return fmt.Errorf("%w: '%s'", ErrNoMatch, selectPath)
		}

		// Strings are printed bare, everything else keeps its JSON form.
		if result.Type == gjson.String {
			raw = []byte(result.String())
		} else {
			raw = []byte(result.Raw)
		}

		if result.Type != gjson.JSON {
			_, err := fmt.Fprintln(w, string(raw))

			return err
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", jsonIndent); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}

	pretty.WriteByte('\n')

	_, err := pretty.WriteTo(w)

	return err
}

// RenderError writes a human-readable description of a failed request.
// Errors that are not a *fetch.RequestError are written as a single line.
func RenderError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	requestErr, ok := fetch.AsRequestError(err)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", red("error:"), err) //nolint:errcheck // Best effort output.

		return
	}

	var sb strings.Builder

	sb.WriteString(red(requestErr.Kind))
	sb.WriteString(" ")
	sb.WriteString(bold(requestErr.Method + " " + requestErr.Resource))
	sb.WriteString("\n")

	if requestErr.IsTransportFailure() {
		fmt.Fprintf(&sb, "  %s %v\n", bold("cause:"), requestErr.Err)
	} else {
		fmt.Fprintf(&sb, "  %s %d %s\n", bold("status:"), requestErr.Status, statusMessage(requestErr))
	}

	fmt.Fprintf(&sb, "  %s %s\n", bold("requested at:"), dim(requestErr.RequestTimestamp))

	if requestErr.ResponseBody != "" {
		fmt.Fprintf(&sb, "  %s\n", bold("response:"))

		for line := range strings.Lines(requestErr.ResponseBody) {
			sb.WriteString("    ")
			sb.WriteString(strings.TrimRight(line, "\n"))
			sb.WriteString("\n")
		}
	}

	if requestErr.IsRateLimited() {
		fmt.Fprintf(&sb, "  %s\n", red("rate limit reached, stop sending requests"))
	}

	io.WriteString(w, sb.String()) //nolint:errcheck,gosec // Best effort output.
}

func statusMessage(requestErr *fetch.RequestError) string {
	if requestErr.Message != "" {
		return requestErr.Message
	}

	return http.StatusText(requestErr.Status)
}
