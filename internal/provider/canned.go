package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Canned is an offline backend that answers every request with fixed,
// schema-valid payloads. It backs the seed command, dev mode, and tests; it
// never performs I/O.
type Canned struct {
	id        string
	overrides map[string]json.RawMessage
}

// NewCanned creates a canned backend. Overrides replace the default payload
// for a schema name.
func NewCanned(id string, overrides map[string]json.RawMessage) *Canned {
	return &Canned{id: id, overrides: overrides}
}

func (c *Canned) ID() string { return c.id }

func (c *Canned) Supports(cap Capability) bool {
	switch cap {
	case CapabilityText, CapabilityStructured, CapabilityImage:
		return true
	}
	return false
}

func (c *Canned) Generate(_ context.Context, req Request) (json.RawMessage, error) {
	if raw, ok := c.overrides[req.SchemaName]; ok {
		return raw, nil
	}
	if raw, ok := cannedPayloads[req.SchemaName]; ok {
		return raw, nil
	}
	if req.Capability == CapabilityText {
		return json.RawMessage(`"A quiet moment passes."`), nil
	}
	return nil, fmt.Errorf("no canned payload for schema %q", req.SchemaName)
}

// Fixed answers describing one well-known moment, enough to exercise every
// stage end to end.
var cannedPayloads = map[string]json.RawMessage{
	"judge_verdict": json.RawMessage(`{"accepted": true, "reason": "clear historical moment", "confidence": 0.94}`),
	"timeline": json.RawMessage(`{"year": 1776, "month": 7, "day": 4, "hour": 14,
		"era": "the American Revolution", "location": "Pennsylvania State House, Philadelphia",
		"summary": "Delegates gather to adopt the Declaration of Independence."}`),
	"scene_environment": json.RawMessage(`{"setting": "the assembly room of the Pennsylvania State House",
		"atmosphere": "stifling summer heat, shutters drawn against flies",
		"weather": "hot and humid", "tension": "high",
		"details": ["green baize tables", "scattered papers and inkwells", "tall shuttered windows"]}`),
	"character_set": json.RawMessage(`{"characters": [
		{"name": "John Hancock", "role": "primary", "description": "President of the Congress, seated at the front desk", "speaks": true, "relationships": ["Charles Thomson"]},
		{"name": "Benjamin Franklin", "role": "primary", "description": "Elder statesman observing from the second row", "speaks": true, "relationships": ["John Hancock"]},
		{"name": "Charles Thomson", "role": "secondary", "description": "Secretary recording the vote", "speaks": false, "relationships": ["John Hancock"]}]}`),
	"moment": json.RawMessage(`{"summary": "The final vote on independence is read aloud",
		"action": "Hancock raises the engrossed text while the chamber falls silent",
		"stakes": "An act of treason against the Crown, signed in full view"}`),
	"camera_plan": json.RawMessage(`{"angle": "low three-quarter view from the chamber floor",
		"framing": "wide shot holding the full assembly", "lighting": "warm window light through dust",
		"mood": "solemn"}`),
	"dialog": json.RawMessage(`{"lines": [
		{"speaker": "John Hancock", "line": "There must be no pulling different ways; we must all hang together.", "tone": "resolute"},
		{"speaker": "Benjamin Franklin", "line": "Yes, we must indeed all hang together, or most assuredly we shall all hang separately.", "tone": "wry"}],
		"context": "Spoken as the delegates prepare to sign"}`),
	"relationship_graph": json.RawMessage(`{"edges": [
		{"from": "John Hancock", "to": "Charles Thomson", "relation": "presides over"},
		{"from": "Benjamin Franklin", "to": "John Hancock", "relation": "counsels"}]}`),
	"image_prompt": json.RawMessage(`{"prompt": "Oil-painting style view of the Pennsylvania State House assembly room, July 1776, delegates in period dress around green baize tables, warm window light",
		"negative": ["modern clothing", "photography equipment"], "aspect_ratio": "16:9"}`),
	"image_artifact": json.RawMessage(`{"url": "https://images.example/timepoint/declaration-1776.png", "model": "canned"}`),
}
