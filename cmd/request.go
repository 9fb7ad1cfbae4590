package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/apifetch/internal/app"
	"github.com/oshokin/apifetch/internal/fetch"
	"github.com/oshokin/apifetch/internal/logger"
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(
		newRequestCommand(fetch.MethodGet, false),
		newRequestCommand(fetch.MethodPost, true),
		newRequestCommand(fetch.MethodPut, true),
		newRequestCommand(fetch.MethodPatch, true),
		newRequestCommand(fetch.MethodDelete, false),
	)
}

// newRequestCommand creates the command issuing method requests.
// Only commands with a body get the data and form flags.
func newRequestCommand(method fetch.Method, withBody bool) *cobra.Command {
	name := strings.ToLower(string(method))

	cmd := &cobra.Command{
		Use:   name + " [flags] {path}",
		Short: "Send a " + string(method) + " request to the given path.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Invalid configuration: %v", err)
			}

			logger.SetLevel(appConfig.ParsedLogLevel)

			input, err := requestInputFromFlags(method, args[0], cmd.Flags())
			if err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			app.ExecuteRequestCommand(cmd.Context(), appConfig, input)
		},
	}

	flags := cmd.Flags()

	flags.StringArrayP("query", "q", nil, "query parameter as key=value; repeat for several values.")
	flags.StringArrayP("header", "H", nil, "request header as 'Name: value'; overrides default headers.")
	flags.Bool("absolute", false, "treat the path as a full URL and ignore the base URL.")
	flags.StringSlice("fields", nil, "fields to return, sent comma-joined as the 'fields' parameter.")
	flags.Int("limit", 0, "maximum number of items, sent as the 'limit' parameter.")
	flags.Int("offset", 0, "number of items to skip, sent as the 'offset' parameter.")
	flags.String("select", "", "gjson path applied to a JSON response, e.g. 'data.#.id'.")
	flags.StringP("output", "o", "", "write the response to a file instead of stdout.")

	if withBody {
		flags.StringP("data", "d", "", "raw request body, or @file to read it from a file.")
		flags.Bool("json", false, "parse --data as JSON and send it as a structured body.")
		flags.StringArrayP("form", "F", nil, "multipart field as name=value, or name=@file to upload a file.")
	}

	return cmd
}

// requestInputFromFlags collects the request description from parsed flags.
func requestInputFromFlags(method fetch.Method, path string, flags *pflag.FlagSet) (*app.RequestInput, error) {
	var (
		input = &app.RequestInput{
			Method: method,
			Path:   path,
		}
		err error
	)

	if input.Query, err = flags.GetStringArray("query"); err != nil {
		return nil, err
	}

	if input.Headers, err = flags.GetStringArray("header"); err != nil {
		return nil, err
	}

	if input.Absolute, err = flags.GetBool("absolute"); err != nil {
		return nil, err
	}

	if input.Fields, err = flags.GetStringSlice("fields"); err != nil {
		return nil, err
	}

	if input.Limit, err = changedInt(flags, "limit"); err != nil {
		return nil, err
	}

	if input.Offset, err = changedInt(flags, "offset"); err != nil {
		return nil, err
	}

	if input.Select, err = flags.GetString("select"); err != nil {
		return nil, err
	}

	if input.OutputPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	// Body flags exist only on post, put and patch.
	if flags.Lookup("data") == nil {
		return input, nil
	}

	if input.Data, err = flags.GetString("data"); err != nil {
		return nil, err
	}

	if input.DataIsJSON, err = flags.GetBool("json"); err != nil {
		return nil, err
	}

	if input.Form, err = flags.GetStringArray("form"); err != nil {
		return nil, err
	}

	return input, nil
}

// changedInt returns the flag value only when it was set explicitly.
func changedInt(flags *pflag.FlagSet, name string) (*int, error) {
	if flag := flags.Lookup(name); flag == nil || !flag.Changed {
		return nil, nil //nolint:nilnil // Unset flags are omitted from the query.
	}

	value, err := flags.GetInt(name)
	if err != nil {
		return nil, err
	}

	return &value, nil
}
