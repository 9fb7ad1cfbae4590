package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/apifetch/internal/fetch"
	mock_fetch "github.com/oshokin/apifetch/internal/fetch/mocks"
	"github.com/oshokin/apifetch/internal/logger"
)

const testBaseURL = "https://jsonplaceholder.typicode.com/"

func jsonResponse(status int, body string) *fetch.TransportResponse {
	return rawResponse(status, "application/json", body)
}

func rawResponse(status int, contentType, body string) *fetch.TransportResponse {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	return &fetch.TransportResponse{
		Status:     status,
		StatusText: http.StatusText(status),
		OK:         status >= 200 && status < 300,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newMockedFetcher(t *testing.T, opts ...fetch.Option) (*fetch.Fetcher, *mock_fetch.MockTransport) {
	t.Helper()

	ctrl := gomock.NewController(t)
	transport := mock_fetch.NewMockTransport(ctrl)

	return fetch.New(testBaseURL, transport, opts...), transport
}

// TestFetcher_Verbs tests that every verb binds its method and forwards the body.
func TestFetcher_Verbs(t *testing.T) {
	t.Parallel()

	payload := map[string]any{"title": "foo"}

	tests := []struct {
		name         string
		call         func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error)
		expectMethod string
		expectBody   string
	}{
		{
			name: "get",
			call: func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error) {
				return f.Get(ctx, "posts", nil)
			},
			expectMethod: http.MethodGet,
		},
		{
			name: "post",
			call: func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error) {
				return f.Post(ctx, "posts", payload, nil)
			},
			expectMethod: http.MethodPost,
			expectBody:   `{"title":"foo"}`,
		},
		{
			name: "put",
			call: func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error) {
				return f.Put(ctx, "posts", payload, nil)
			},
			expectMethod: http.MethodPut,
			expectBody:   `{"title":"foo"}`,
		},
		{
			name: "patch",
			call: func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error) {
				return f.Patch(ctx, "posts", "raw text", nil)
			},
			expectMethod: http.MethodPatch,
			expectBody:   "raw text",
		},
		{
			name: "delete",
			call: func(ctx context.Context, f *fetch.Fetcher) (*fetch.Response, error) {
				return f.Delete(ctx, "posts", nil)
			},
			expectMethod: http.MethodDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, transport := newMockedFetcher(t)

			transport.EXPECT().
				Do(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
					assert.Equal(t, tt.expectMethod, req.Method)
					assert.Equal(t, testBaseURL+"posts", req.URL)

					if tt.expectBody == "" {
						assert.Nil(t, req.Body)
					} else {
						require.NotNil(t, req.Body)
						assert.Equal(t, tt.expectBody, req.Body.Text)
					}

					return jsonResponse(http.StatusOK, `{"id":1}`), nil
				}).
				Times(1)

			resp, err := tt.call(context.Background(), f)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"id": float64(1)}, resp.Value)
		})
	}
}

// TestFetcher_ResolvedRequest tests URL assembly and header merging through the pipeline.
func TestFetcher_ResolvedRequest(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t, fetch.WithDefaultHeaders(map[string]string{
		"accept":    "application/json",
		"X-Api-Key": "default",
	}))

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
			assert.Equal(t, testBaseURL+"posts?limit=5&userId=1", req.URL)
			assert.Equal(t, map[string]string{
				"Accept":    "application/json",
				"X-Api-Key": "call",
			}, req.Headers)

			return jsonResponse(http.StatusOK, `[]`), nil
		})

	resp, err := f.Get(context.Background(), "posts", &fetch.Options{
		QueryParams: map[string]any{"userId": 1, "limit": 5, "fields": nil},
		Headers:     map[string]string{"X-Api-Key": "call"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{}, resp.Value)

	// Call headers never leak into the defaults.
	assert.Equal(t, "default", f.DefaultHeaders()["X-Api-Key"])
}

// TestFetcher_BypassBaseURL tests that an absolute path is used as the full URL.
func TestFetcher_BypassBaseURL(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
			assert.Equal(t, "https://cdn.example.com/file.bin", req.URL)

			return rawResponse(http.StatusOK, "application/octet-stream", "bytes"), nil
		})

	resp, err := f.Get(context.Background(), "https://cdn.example.com/file.bin", &fetch.Options{BypassBaseURL: true})
	require.NoError(t, err)

	defer resp.Close() //nolint:errcheck // Test cleanup.

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

// TestFetcher_FormData tests that multipart headers are applied last.
func TestFetcher_FormData(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t, fetch.WithDefaultHeaders(map[string]string{"Content-Type": "application/json"}))

	form := fetch.NewFormData()
	require.NoError(t, form.AddField("name", "value"))

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
			assert.Equal(t, form.Headers()["Content-Type"], req.Headers["Content-Type"])
			require.NotNil(t, req.Body)
			assert.Same(t, form, req.Body.Form)

			return jsonResponse(http.StatusCreated, `{"ok":true}`), nil
		})

	_, err := f.Post(context.Background(), "upload", form, &fetch.Options{
		Headers: map[string]string{"Content-Type": "text/plain"},
	})
	require.NoError(t, err)
}

// TestFetcher_NotFound tests the structured error for a non-success JSON response.
func TestFetcher_NotFound(t *testing.T) {
	t.Parallel()

	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2025, 1, 2, 3, 4, 5, 600_000_000, time.UTC))

	f, transport := newMockedFetcher(t, fetch.WithClock(mockClock))

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(jsonResponse(http.StatusNotFound, `{"error":"missing"}`), nil).
		Times(1)

	resp, err := f.Get(context.Background(), "posts/%C3%A9", nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)

	assert.Equal(t, fetch.RequestErrorKind, requestErr.Kind)
	assert.Equal(t, http.MethodGet, requestErr.Method)
	assert.Equal(t, testBaseURL+"posts/é", requestErr.Resource)
	assert.Equal(t, "2025-01-02T03:04:05.600Z", requestErr.RequestTimestamp)
	assert.Equal(t, http.StatusNotFound, requestErr.Status)
	assert.Equal(t, "Not Found", requestErr.Message)
	assert.Equal(t, "{\n  \"error\": \"missing\"\n}", requestErr.ResponseBody)
	assert.NoError(t, requestErr.Err)
}

// TestFetcher_UnsuccessfulJSONKeyOrder tests that the error body keeps the key order sent by the server.
func TestFetcher_UnsuccessfulJSONKeyOrder(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(jsonResponse(http.StatusUnprocessableEntity, `{"zeta":1,"alpha":{"b":"<x>","a":[1,2]}}`), nil)

	_, err := f.Get(context.Background(), "posts", nil)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t,
		"{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"b\": \"<x>\",\n    \"a\": [\n      1,\n      2\n    ]\n  }\n}",
		requestErr.ResponseBody)
}

// brokenReader returns its data and then fails.
type brokenReader struct {
	data string
	done bool
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("connection reset by peer")
	}

	r.done = true

	return copy(p, r.data), nil
}

// TestFetcher_UnsuccessfulBodyReadFailure tests that a body failing mid-read keeps the partial text
// and logs the read error.
func TestFetcher_UnsuccessfulBodyReadFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	f, transport := newMockedFetcher(t)

	response := rawResponse(http.StatusBadGateway, "text/plain", "")
	response.Body = io.NopCloser(&brokenReader{data: "upstream went"})

	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(response, nil)

	_, err := f.Get(ctx, "posts", nil)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, "upstream went", requestErr.ResponseBody)

	readFailures := logs.FilterMessage("Failed to read error response body").All()
	require.Len(t, readFailures, 1)
	assert.Equal(t, "connection reset by peer", readFailures[0].ContextMap()["error"])
}

// TestFetcher_UnsuccessfulRawBody tests that raw error bodies are buffered as text and capped.
func TestFetcher_UnsuccessfulRawBody(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t, fetch.WithMaxErrorBodySize(8))

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(rawResponse(http.StatusBadGateway, "text/html", "<h1>bad gateway</h1>"), nil)

	_, err := f.Get(context.Background(), "posts", nil)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, requestErr.Status)
	assert.Equal(t, "<h1>bad ", requestErr.ResponseBody)
}

// TestFetcher_UnsuccessfulJSONString tests that a decoded JSON string is used as it is.
func TestFetcher_UnsuccessfulJSONString(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(jsonResponse(http.StatusBadRequest, `"bad input"`), nil)

	_, err := f.Post(context.Background(), "posts", map[string]any{}, nil)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, "bad input", requestErr.ResponseBody)
}

// TestFetcher_OKIsTheOnlySuccessSignal tests that classification trusts the transport indicator.
func TestFetcher_OKIsTheOnlySuccessSignal(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	response := jsonResponse(http.StatusOK, `{"id":1}`)
	response.OK = false

	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(response, nil)

	_, err := f.Get(context.Background(), "posts", nil)
	require.ErrorIs(t, err, fetch.ErrRequestFailed)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, requestErr.Status)
}

// TestFetcher_RateLimited tests that a 429 is surfaced once with no retry.
func TestFetcher_RateLimited(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(jsonResponse(http.StatusTooManyRequests, `{"message":"slow down"}`), nil).
		Times(1)

	_, err := f.Get(context.Background(), "posts", nil)
	require.Error(t, err)
	assert.True(t, fetch.IsRateLimited(err))

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, requestErr.Status)
}

// TestFetcher_TransportFailure tests that transport errors are wrapped into a RequestError.
func TestFetcher_TransportFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")

	f, transport := newMockedFetcher(t)

	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, cause)

	_, err := f.Delete(context.Background(), "posts/1", nil)
	require.ErrorIs(t, err, cause)

	requestErr, ok := fetch.AsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.MethodDelete, requestErr.Method)
	assert.Zero(t, requestErr.Status)
	assert.Empty(t, requestErr.Message)
	assert.True(t, requestErr.IsTransportFailure())
}

// TestFetcher_DecodeFailure tests that invalid JSON is a plain error even on failure statuses.
func TestFetcher_DecodeFailure(t *testing.T) {
	t.Parallel()

	f, transport := newMockedFetcher(t)

	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(jsonResponse(http.StatusInternalServerError, "oops"), nil)

	_, err := f.Get(context.Background(), "posts", nil)
	require.ErrorIs(t, err, fetch.ErrInvalidJSON)

	_, ok := fetch.AsRequestError(err)
	assert.False(t, ok)
}

// TestFetcher_ResolveErrors tests that resolution failures never reach the transport.
func TestFetcher_ResolveErrors(t *testing.T) {
	t.Parallel()

	f, _ := newMockedFetcher(t)

	_, err := f.Get(context.Background(), "posts", &fetch.Options{QueryParams: 42})
	require.ErrorIs(t, err, fetch.ErrUnsupportedQueryParams)

	_, err = f.Post(context.Background(), "posts", make(chan int), nil)
	require.Error(t, err)
}

// TestFetcher_CustomQueryEncoder tests that the encoder can be replaced.
func TestFetcher_CustomQueryEncoder(t *testing.T) {
	t.Parallel()

	encoder := func(_ any) (string, error) {
		return "custom=1", nil
	}

	f, transport := newMockedFetcher(t, fetch.WithQueryEncoder(encoder))

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
			assert.Equal(t, testBaseURL+"posts?custom=1", req.URL)

			return jsonResponse(http.StatusOK, `{}`), nil
		})

	_, err := f.Get(context.Background(), "posts", &fetch.Options{QueryParams: struct{}{}})
	require.NoError(t, err)
}

// TestFetcher_Resolve tests that Resolve is deterministic and does not call the transport.
func TestFetcher_Resolve(t *testing.T) {
	t.Parallel()

	f, _ := newMockedFetcher(t, fetch.WithDefaultHeaders(map[string]string{"Accept": "application/json"}))

	opts := &fetch.Options{QueryParams: map[string]any{"q": "a b"}}

	first, err := f.Resolve(fetch.MethodPost, "search", map[string]any{"x": 1}, opts)
	require.NoError(t, err)

	second, err := f.Resolve(fetch.MethodPost, "search", map[string]any{"x": 1}, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, testBaseURL+"search?q=a%20b", first.URL)
	assert.JSONEq(t, `{"x":1}`, first.Body.Text)
}

// TestFetcher_ConcurrentCalls tests that concurrent calls are independent.
func TestFetcher_ConcurrentCalls(t *testing.T) {
	t.Parallel()

	const calls = 20

	f, transport := newMockedFetcher(t)

	transport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *fetch.TransportRequest) (*fetch.TransportResponse, error) {
			return jsonResponse(http.StatusOK, `{"url":"`+req.URL+`"}`), nil
		}).
		Times(calls)

	var wg sync.WaitGroup

	for i := range calls {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			resp, err := f.Get(context.Background(), "posts", &fetch.Options{QueryParams: map[string]any{"id": id}})
			if !assert.NoError(t, err) {
				return
			}

			value, ok := resp.Value.(map[string]any)
			if assert.True(t, ok) {
				assert.Contains(t, value["url"], "id=")
			}
		}(i)
	}

	wg.Wait()
}
