// Package health implements liveness and readiness probes for the API
// server. Probes run on a shared background ticker and use consecutive
// failure/success thresholds so a single slow dependency check does not flap
// the pod out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// probe holds one registered check and its threshold state. All fields after
// check are guarded by mu.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu      sync.Mutex
	healthy bool
	fails   int
	oks     int
	lastErr error
}

// observe runs the check once and applies the thresholds.
func (p *probe) observe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.check(ctx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= defaultFailureThreshold {
			p.healthy = false
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= defaultSuccessThreshold {
		p.healthy = true
	}
}

// status returns the probe's health flag and last error.
func (p *probe) status() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Health tracks liveness and readiness probes for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health registry. The service starts not ready; call
// SetReady(true) once initialization completes.
func New() *Health {
	return &Health{}
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	return &probe{
		name:    name,
		timeout: timeout,
		check:   check,
		// Assume healthy until the thresholds say otherwise.
		healthy: true,
	}
}

// AddLivenessCheck registers a probe answering "is this process functional".
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a probe answering "can this process serve
// traffic", such as database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Start launches the background monitor that re-runs every probe at the
// given interval. Register all probes before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, p := range probes {
			p.observe(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.observe(ctx)
				}
			}
		}
	}()
}

// Stop cancels the background monitor. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before closing listeners.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service was marked ready and every readiness
// probe is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, p := range h.snapshot(&h.readiness) {
		if ok, _ := p.status(); !ok {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(list *[]*probe) []*probe {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*probe, len(*list))
	copy(out, *list)
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while liveness probes pass, 503 with the
// failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(&h.liveness)))
}

// ReadyEndpoint serves /readyz: 200 once SetReady(true) was called and all
// readiness probes pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	fails := failures(h.snapshot(&h.readiness))
	if !h.ready.Load() {
		fails["_readiness"] = "service is not ready"
	}
	writeStatus(w, fails)
}

func failures(probes []*probe) map[string]string {
	fails := make(map[string]string)
	for _, p := range probes {
		if ok, err := p.status(); !ok {
			if err != nil {
				fails[p.name] = err.Error()
			} else {
				fails[p.name] = "check is unhealthy"
			}
		}
	}
	return fails
}

func writeStatus(w http.ResponseWriter, fails map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(fails) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = fails
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
