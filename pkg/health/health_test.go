package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing(context.Context) error { return nil }

func serve(t *testing.T, handler http.HandlerFunc) (int, Report) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var rep Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	return w.Code, rep
}

func runTimes(ctx context.Context, p *probe, n int) {
	for range n {
		p.run(ctx)
	}
}

func TestLiveEndpoint(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		runs   int
		code   int
		status string
	}{
		{name: "not yet run", runs: 0, code: http.StatusOK, status: "ok"},
		{name: "below threshold", runs: 2, code: http.StatusOK, status: "ok"},
		{name: "at threshold", runs: 3, code: http.StatusServiceUnavailable, status: "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("storage", time.Second, failing("connection refused"))
			runTimes(ctx, h.liveness[0], tt.runs)

			code, rep := serve(t, h.LiveEndpoint)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, rep.Status)
			if tt.code != http.StatusOK {
				assert.Equal(t, "connection refused", rep.Checks["storage"])
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("storage", time.Second, passing)
	h.AddReadinessCheck("genai", time.Second, failing("quota"))

	code, rep := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{notReadyCheck: "service is not ready"}, rep.Checks)

	h.SetReady(true)
	code, _ = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	runTimes(context.Background(), h.readiness[1], 3)
	code, rep = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"genai": "quota"}, rep.Checks)
	assert.False(t, h.IsReady())

	h.SetReady(false)
	_, rep = serve(t, h.ReadyEndpoint)
	assert.Len(t, rep.Checks, 2)
}

func TestThresholds(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	check := func(context.Context) error {
		if down.Load() {
			return errors.New("down")
		}
		return nil
	}

	h := New()
	h.AddLivenessCheck("flaky", time.Second, check, WithThresholds(1, 2))
	p := h.liveness[0]
	ctx := context.Background()

	p.run(ctx)
	assert.False(t, p.healthy.Load())
	assert.EqualError(t, p.err(), "down")

	down.Store(false)
	p.run(ctx)
	assert.False(t, p.healthy.Load(), "one success is below the threshold")
	p.run(ctx)
	assert.True(t, p.healthy.Load())
	assert.NoError(t, p.err())
}

func TestWithThresholds_KeepsDefaults(t *testing.T) {
	p := newProbe("x", time.Second, passing, []CheckOption{WithThresholds(0, -1)})
	assert.Equal(t, 3, p.failureThreshold)
	assert.Equal(t, 1, p.successThreshold)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddReadinessCheck("slow", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithThresholds(1, 1))

	h.readiness[0].run(context.Background())
	assert.ErrorIs(t, h.readiness[0].err(), context.DeadlineExceeded)
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddLivenessCheck("count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	h.Start(context.Background(), 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				w := httptest.NewRecorder()
				h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	h.Stop()
	h.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "exceeds threshold")

	assert.NoError(t, PingCheck("bolt", pinger{})(ctx))
	err := PingCheck("bolt", pinger{err: errors.New("closed")})(ctx)
	assert.EqualError(t, err, "ping bolt: closed")
}
