package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/apifetch/internal/client/api"
	"github.com/oshokin/apifetch/internal/config"
	"github.com/oshokin/apifetch/internal/constants"
	"github.com/oshokin/apifetch/internal/fetch"
	"github.com/oshokin/apifetch/internal/logger"
	http_transport "github.com/oshokin/apifetch/internal/transport/http"
)

// ExecuteRequestCommand is the entry point of the request commands.
// It sends the request described by input over HTTP and prints the response to stdout.
func ExecuteRequestCommand(ctx context.Context, cfg *config.Config, input *RequestInput) {
	transport := http_transport.NewTransport(http_transport.NewHTTPClient(cfg))

	if err := Run(ctx, cfg, transport, input, os.Stdout); err != nil {
		if _, ok := fetch.AsRequestError(err); ok {
			RenderError(os.Stderr, err)
			logger.Fatalf(ctx, "Request failed")
		}

		logger.Fatalf(ctx, "Request failed: %v", err)
	}
}

// Run sends one request through transport and writes the rendered response to stdout,
// or to input.OutputPath when it is set.
func Run(
	ctx context.Context,
	cfg *config.Config,
	transport fetch.Transport,
	input *RequestInput,
	stdout io.Writer,
) error {
	opts, err := input.apiOptions()
	if err != nil {
		return err
	}

	body, err := input.body()
	if err != nil {
		return err
	}

	fetcher := fetch.New(
		cfg.BaseURL,
		transport,
		fetch.WithDefaultHeaders(cfg.DefaultHeaders),
		fetch.WithMaxErrorBodySize(cfg.ParsedMaxErrorBodySize))

	ctx = logger.WithKV(ctx, "method", input.Method, "path", input.Path)

	resp, err := dispatch(ctx, api.NewClient(fetcher), input.Method, input.Path, body, opts)
	if err != nil {
		return err
	}

	defer resp.Close() //nolint:errcheck // The body has been fully consumed or is discarded.

	logger.DebugKV(ctx, "Request succeeded", "status", resp.Status, "content_type", resp.ContentType)

	if input.OutputPath == "" {
		return renderResponse(resp, input.Select, stdout)
	}

	file, err := os.OpenFile(input.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err = renderResponse(resp, input.Select, file); err != nil {
		_ = file.Close()

		return err
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	logger.Infof(ctx, "Response saved to %s", input.OutputPath)

	return nil
}

func dispatch(
	ctx context.Context,
	client *api.Client,
	method fetch.Method,
	path string,
	body any,
	opts *api.Options,
) (*fetch.Response, error) {
	switch method {
	case fetch.MethodGet:
		return client.Get(ctx, path, opts)
	case fetch.MethodPost:
		return client.Post(ctx, path, body, opts)
	case fetch.MethodPut:
		return client.Put(ctx, path, body, opts)
	case fetch.MethodPatch:
		return client.Patch(ctx, path, body, opts)
	case fetch.MethodDelete:
		return client.Delete(ctx, path, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}
