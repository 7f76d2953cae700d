// internal/crawler/pool_test.go
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

func TestPoolHandsOutAndRecyclesSessions(t *testing.T) {
	t.Parallel()

	fc, server := newFakeController(t, nil)
	client := NewClient(testCrawlerConfig(server.URL), "default", newTestLogger(t))
	pool := NewPool(client, 2, newTestLogger(t))

	require.NoError(t, pool.Start(t.Context()))
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, 2, fc.Started())

	first, err := pool.Acquire(t.Context())
	require.NoError(t, err)
	second, err := pool.Acquire(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The pool is drained; a bounded wait must come back empty-handed.
	waitCtx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(first)
	again, err := pool.Acquire(t.Context())
	require.NoError(t, err)
	assert.Equal(t, first, again)

	pool.Release(again)
	pool.Release(second)
	pool.Close(t.Context())
	assert.ElementsMatch(t, []string{first, second}, fc.Ended())
	assert.Zero(t, pool.Len())
}

func TestPoolToleratesPartialStartFailures(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start_session":
			n := count.Add(1)
			if n%2 == 0 {
				writeJSON(w, http.StatusServiceUnavailable, schemas.ErrorResponse{Detail: "browser manager is not running"})
				return
			}
			writeJSON(w, http.StatusOK, schemas.SessionResponse{SessionID: fmt.Sprintf("sess-%d", n)})
		case "/end_session":
			writeJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok"})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(testCrawlerConfig(server.URL), "default", newTestLogger(t))
	pool := NewPool(client, 4, newTestLogger(t))

	require.NoError(t, pool.Start(t.Context()))
	assert.Equal(t, 2, pool.Len())
	pool.Close(t.Context())
}

func TestPoolStartFailsWithoutAnySession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, schemas.ErrorResponse{Detail: "browser manager is not running"})
	}))
	t.Cleanup(server.Close)

	client := NewClient(testCrawlerConfig(server.URL), "default", newTestLogger(t))
	pool := NewPool(client, 3, newTestLogger(t))

	err := pool.Start(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no controller sessions could be started")
	assert.Zero(t, pool.Len())
}
