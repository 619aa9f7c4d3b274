package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/common/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedServer(t *testing.T, requests int, window time.Duration) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := middleware.NewRateLimiterMiddleware(ctx, requests, window, logger)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func TestRateLimiter_BlocksAboveLimit(t *testing.T) {
	t.Parallel()

	server := newRateLimitedServer(t, 2, time.Second)
	client := server.Client()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "запрос %d должен проходить", i+1)
	}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	retryAfter := resp.Header.Get("Retry-After")
	require.NotEmpty(t, retryAfter)

	retrySeconds, err := strconv.Atoi(retryAfter)
	require.NoError(t, err)
	assert.Positive(t, retrySeconds)

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "превышен лимит запросов", payload.Error)
}

func TestRateLimiter_RecoversAfterWindow(t *testing.T) {
	t.Parallel()

	server := newRateLimitedServer(t, 1, 100*time.Millisecond)
	client := server.Client()

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	time.Sleep(150 * time.Millisecond)

	resp, err = client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "после окна лимит восстанавливается")
}
