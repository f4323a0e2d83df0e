package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"timepoint/backend/internal/logging"
)

// After this many consecutive failures a backend reports unavailable. The
// counter resets on the next success; there is no background polling.
const unavailableAfter = 3

// BackendFailure records one backend's final error during resolution.
type BackendFailure struct {
	Backend string
	Err     error
}

// ExhaustedError is returned when every eligible backend failed for a
// capability.
type ExhaustedError struct {
	Capability Capability
	Failures   []BackendFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Backend, f.Err))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("no backend supports capability %q", e.Capability)
	}
	return fmt.Sprintf("all backends exhausted for capability %q (%s)", e.Capability, strings.Join(parts, "; "))
}

type entry struct {
	backend      Backend
	rank         int
	maxAttempts  uint64
	limiter      *rate.Limiter
	consecFails  atomic.Int64
	lastErrValue atomic.Value // string
}

// BackendStatus is a diagnostic snapshot of one registered backend.
type BackendStatus struct {
	ID           string   `json:"id"`
	Rank         int      `json:"rank"`
	Capabilities []string `json:"capabilities"`
	Available    bool     `json:"available"`
	LastError    string   `json:"last_error,omitempty"`
}

// Router holds the ranked backend set. It is immutable after construction
// and safe for concurrent use by many pipeline runs.
type Router struct {
	entries []*entry
	initial time.Duration
	maxWait time.Duration
	logger  *logging.Logger
}

// RouterOption adjusts router construction.
type RouterOption func(*Router)

// WithBackoff overrides the initial and maximum backoff interval between
// retries at the same backend.
func WithBackoff(initial, max time.Duration) RouterOption {
	return func(r *Router) {
		r.initial = initial
		r.maxWait = max
	}
}

// NewRouter creates a Router.
func NewRouter(logger *logging.Logger, opts ...RouterOption) *Router {
	r := &Router{
		logger:  logger,
		initial: 200 * time.Millisecond,
		maxWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a backend with a fallback rank (lower is preferred), a
// per-backend retry ceiling, and an optional requests-per-second cap.
func (r *Router) Register(b Backend, rank, maxAttempts int, rps float64) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	e := &entry{backend: b, rank: rank, maxAttempts: uint64(maxAttempts)}
	if rps > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	r.entries = append(r.entries, e)
	sort.SliceStable(r.entries, func(i, j int) bool { return r.entries[i].rank < r.entries[j].rank })
}

// Resolve iterates backends supporting the capability in rank order. Each
// backend gets bounded retries with exponential backoff; a timeout, error, or
// empty result counts as a backend failure and moves resolution to the next
// rank. Exhausting every eligible backend returns an ExhaustedError.
func (r *Router) Resolve(ctx context.Context, req Request) (json.RawMessage, error) {
	var failures []BackendFailure

	for _, e := range r.entries {
		if !e.backend.Supports(req.Capability) {
			continue
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		out, err := r.attempt(ctx, e, req)
		if err == nil {
			e.consecFails.Store(0)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		e.consecFails.Add(1)
		e.lastErrValue.Store(err.Error())
		r.logger.Warn("backend failed, falling through",
			"backend", e.backend.ID(), "capability", req.Capability, "error", err)
		failures = append(failures, BackendFailure{Backend: e.backend.ID(), Err: err})
	}

	return nil, &ExhaustedError{Capability: req.Capability, Failures: failures}
}

func (r *Router) attempt(ctx context.Context, e *entry, req Request) (json.RawMessage, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial
	bo.MaxInterval = r.maxWait
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, e.maxAttempts-1), ctx)

	var out json.RawMessage
	op := func() error {
		res, err := e.backend.Generate(ctx, req)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return errors.New("backend returned empty result")
		}
		out = res
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}

// Available reports whether the backend exists and has not failed its last
// few calls in a row. Diagnostic only; resolution always tries eligible
// backends regardless.
func (r *Router) Available(id string) bool {
	for _, e := range r.entries {
		if e.backend.ID() == id {
			return e.consecFails.Load() < unavailableAfter
		}
	}
	return false
}

// Backends returns a diagnostic snapshot of all registered backends in rank
// order.
func (r *Router) Backends() []BackendStatus {
	out := make([]BackendStatus, 0, len(r.entries))
	for _, e := range r.entries {
		var caps []string
		for _, c := range []Capability{CapabilityText, CapabilityStructured, CapabilityImage} {
			if e.backend.Supports(c) {
				caps = append(caps, string(c))
			}
		}
		lastErr, _ := e.lastErrValue.Load().(string)
		out = append(out, BackendStatus{
			ID:           e.backend.ID(),
			Rank:         e.rank,
			Capabilities: caps,
			Available:    e.consecFails.Load() < unavailableAfter,
			LastError:    lastErr,
		})
	}
	return out
}
