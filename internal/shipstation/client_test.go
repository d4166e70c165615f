package shipstation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shipenrich/internal/config"
)

// testClient builds a client pointed at a test server with pacing disabled
// so retry behavior can be observed without real sleeps.
func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(config.ShipStationConfig{
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   baseURL,
	}, config.RunConfig{PageSize: 100, RetryCeiling: 5}, zap.NewNop())
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.rateLimitWait = time.Millisecond
	return c
}

func TestGet_RateLimitThenSuccess(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 4 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	raw, err := c.get(context.Background(), "/shipments", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(5), calls.Load())
}

func TestGet_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	_, err := c.get(context.Background(), "/shipments", nil)
	require.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, int32(5), calls.Load(), "retry ceiling is 5 attempts")
}

func TestGet_NonSuccessFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	_, err := c.get(context.Background(), "/orders/1", nil)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Equal(t, int32(1), calls.Load(), "no retry on non-429 status")
}

func TestGet_SendsBasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// base64("key:secret")
		assert.Equal(t, "Basic a2V5OnNlY3JldA==", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	_, err := c.get(context.Background(), "/stores", nil)
	require.NoError(t, err)
}

func TestGet_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := testClient(t, ts.URL)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.get(ctx, "/shipments", nil)
	require.ErrorIs(t, err, context.Canceled)
}
