package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func probeEndpoint(t *testing.T, fn http.HandlerFunc, path string) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	fn(w, req)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestLiveEndpointAllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passing())
	h.AddLivenessCheck("check2", time.Second, passing())

	w, body := probeEndpoint(t, h.LiveEndpoint, "/livez")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpointFailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))

	// Probes start healthy; drive past the failure threshold.
	ctx := context.Background()
	for range defaultFailureThreshold {
		h.liveness[0].observe(ctx)
	}

	w, body := probeEndpoint(t, h.LiveEndpoint, "/livez")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveEndpointFailureBelowThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failing("temporary"))

	ctx := context.Background()
	for range defaultFailureThreshold - 1 {
		h.liveness[0].observe(ctx)
	}

	w, _ := probeEndpoint(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("database", time.Second, passing())

	t.Run("not ready before SetReady", func(t *testing.T) {
		w, body := probeEndpoint(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, body.Checks, "_readiness")
	})

	t.Run("ready after SetReady", func(t *testing.T) {
		h.SetReady(true)
		w, body := probeEndpoint(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("drained on SetReady false", func(t *testing.T) {
		h.SetReady(false)
		w, _ := probeEndpoint(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestReadyEndpointOneFailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("database", time.Second, passing())
	h.AddReadinessCheck("cache", time.Second, failing("cache down"))
	h.SetReady(true)

	ctx := context.Background()
	for range defaultFailureThreshold {
		h.readiness[1].observe(ctx)
	}

	w, body := probeEndpoint(t, h.ReadyEndpoint, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body.Checks, "cache")
	assert.NotContains(t, body.Checks, "database")
	assert.False(t, h.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	down := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := h.liveness[0]
	ctx := context.Background()

	for range defaultFailureThreshold {
		p.observe(ctx)
	}
	healthy, err := p.status()
	assert.False(t, healthy)
	assert.EqualError(t, err, "down")

	down = false
	p.observe(ctx)
	healthy, err = p.status()
	assert.True(t, healthy, "one success recovers the probe")
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())
	h.AddReadinessCheck("database", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				req := httptest.NewRequest(http.MethodGet, "/livez", nil)
				h.LiveEndpoint(httptest.NewRecorder(), req)
				h.ReadyEndpoint(httptest.NewRecorder(), req)
			}
		}()
	}
	wg.Wait()

	// Stop is idempotent.
	h.Stop()
	h.Stop()
}

func TestNoChecksRegistered(t *testing.T) {
	h := New()
	h.SetReady(true)

	w, _ := probeEndpoint(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = probeEndpoint(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingFunc(func(_ context.Context) error { return nil }))
	assert.NoError(t, ok(context.Background()))

	bad := PingCheck(pingFunc(func(_ context.Context) error {
		return errors.New("refused")
	}))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
