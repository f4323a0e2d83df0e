package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timepoint/backend/internal/logging"
)

func fastRouter() *Router {
	return NewRouter(logging.NewLogger(), WithBackoff(time.Millisecond, 2*time.Millisecond))
}

func textBackend(id string, fn GenerateFunc) Backend {
	return NewFunc(id, []Capability{CapabilityText, CapabilityStructured}, fn)
}

func TestRouterFallsThroughOnFailure(t *testing.T) {
	router := fastRouter()
	var primaryCalls int
	router.Register(textBackend("primary", func(ctx context.Context, req Request) (json.RawMessage, error) {
		primaryCalls++
		return nil, errors.New("upstream unavailable")
	}), 0, 2, 0)
	router.Register(textBackend("secondary", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.RawMessage(`{"ok": true}`), nil
	}), 1, 1, 0)

	out, err := router.Resolve(context.Background(), Request{Capability: CapabilityText})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(out))
	assert.Equal(t, 2, primaryCalls, "primary gets its full retry budget before fallback")
}

func TestRouterExhausted(t *testing.T) {
	router := fastRouter()
	router.Register(textBackend("a", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return nil, errors.New("a down")
	}), 0, 1, 0)
	router.Register(textBackend("b", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return nil, errors.New("b down")
	}), 1, 1, 0)

	_, err := router.Resolve(context.Background(), Request{Capability: CapabilityText})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 2)
	assert.Equal(t, "a", exhausted.Failures[0].Backend)
	assert.Equal(t, "b", exhausted.Failures[1].Backend)
}

func TestRouterSkipsUnsupportedCapability(t *testing.T) {
	router := fastRouter()
	router.Register(textBackend("text-only", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}), 0, 1, 0)

	_, err := router.Resolve(context.Background(), Request{Capability: CapabilityImage})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Empty(t, exhausted.Failures)
}

func TestRouterRankOrder(t *testing.T) {
	router := fastRouter()
	// registered out of order; rank decides
	router.Register(textBackend("second", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.RawMessage(`{"from": "second"}`), nil
	}), 5, 1, 0)
	router.Register(textBackend("first", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.RawMessage(`{"from": "first"}`), nil
	}), 1, 1, 0)

	out, err := router.Resolve(context.Background(), Request{Capability: CapabilityText})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": "first"}`, string(out))
}

func TestRouterAvailability(t *testing.T) {
	router := fastRouter()
	fail := true
	router.Register(textBackend("flaky", func(ctx context.Context, req Request) (json.RawMessage, error) {
		if fail {
			return nil, errors.New("down")
		}
		return json.RawMessage(`{}`), nil
	}), 0, 1, 0)

	assert.True(t, router.Available("flaky"))
	for i := 0; i < unavailableAfter; i++ {
		_, _ = router.Resolve(context.Background(), Request{Capability: CapabilityText})
	}
	assert.False(t, router.Available("flaky"))

	// availability is diagnostic only: the backend is still tried, and a
	// success resets the counter
	fail = false
	_, err := router.Resolve(context.Background(), Request{Capability: CapabilityText})
	require.NoError(t, err)
	assert.True(t, router.Available("flaky"))

	assert.False(t, router.Available("unregistered"))
}

func TestRouterBackendsSnapshot(t *testing.T) {
	router := fastRouter()
	router.Register(NewCanned("canned", nil), 0, 1, 0)

	statuses := router.Backends()
	require.Len(t, statuses, 1)
	assert.Equal(t, "canned", statuses[0].ID)
	assert.True(t, statuses[0].Available)
	assert.ElementsMatch(t, []string{"text", "structured", "image"}, statuses[0].Capabilities)
}

func TestRouterContextCancel(t *testing.T) {
	router := fastRouter()
	router.Register(textBackend("slow", func(ctx context.Context, req Request) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 0, 3, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := router.Resolve(ctx, Request{Capability: CapabilityText})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCannedBackend(t *testing.T) {
	c := NewCanned("canned", map[string]json.RawMessage{
		"judge_verdict": json.RawMessage(`{"accepted": false, "reason": "override"}`),
	})

	out, err := c.Generate(context.Background(), Request{SchemaName: "judge_verdict"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"accepted": false, "reason": "override"}`, string(out))

	out, err = c.Generate(context.Background(), Request{SchemaName: "timeline"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "1776")

	_, err = c.Generate(context.Background(), Request{SchemaName: "unknown_schema"})
	assert.Error(t, err)
}
