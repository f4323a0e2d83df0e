// Package provider routes generation requests to ranked backends. A backend
// advertises capabilities; the router resolves a capability request to the
// best available backend, retrying across ranks on failure.
package provider

import (
	"context"
	"encoding/json"
)

// Capability is a category of generation a backend can perform.
type Capability string

const (
	// CapabilityText is plain free-form text generation.
	CapabilityText Capability = "text"
	// CapabilityStructured is schema-constrained JSON generation.
	CapabilityStructured Capability = "structured"
	// CapabilityImage is image synthesis.
	CapabilityImage Capability = "image"
)

// Request is the single abstract operation the pipeline asks of a backend.
type Request struct {
	Capability Capability
	System     string
	Prompt     string
	// SchemaName identifies the expected output shape; Schema is the JSON
	// schema handed to backends that support constrained output.
	SchemaName string
	Schema     map[string]any
}

// Backend is a concrete provider of one or more capabilities. Prompt text,
// transport, and response parsing live behind this interface and are out of
// scope here.
type Backend interface {
	ID() string
	Supports(cap Capability) bool
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// GenerateFunc adapts a function to the Backend interface.
type GenerateFunc func(ctx context.Context, req Request) (json.RawMessage, error)

type funcBackend struct {
	id   string
	caps map[Capability]bool
	fn   GenerateFunc
}

// NewFunc wraps fn as a backend with the given id and capabilities.
func NewFunc(id string, caps []Capability, fn GenerateFunc) Backend {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return &funcBackend{id: id, caps: m, fn: fn}
}

func (b *funcBackend) ID() string { return b.id }

func (b *funcBackend) Supports(cap Capability) bool { return b.caps[cap] }

func (b *funcBackend) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	return b.fn(ctx, req)
}
