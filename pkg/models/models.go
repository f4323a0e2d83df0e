// Package models defines the domain models for the timepoint service.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"timepoint/backend/internal/temporal"
)

// SceneStatus is the terminal status a persisted aggregate carries.
type SceneStatus string

const (
	SceneStatusCompleted SceneStatus = "completed"
	SceneStatusFailed    SceneStatus = "failed"
	SceneStatusRejected  SceneStatus = "rejected"
)

// DegradedImageMissing marks a completed scene whose image synthesis failed.
const DegradedImageMissing = "image_missing"

// JudgeVerdict is the gating stage's output. A false Accepted terminates the
// run as rejected.
type JudgeVerdict struct {
	Accepted   bool    `json:"accepted"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Timeline anchors the scene on the time axis and in space.
type Timeline struct {
	temporal.Point
	Era      string `json:"era,omitempty"`
	Location string `json:"location"`
	Summary  string `json:"summary,omitempty"`
}

// Validate checks the embedded point and the required location.
func (t *Timeline) Validate() error {
	if err := t.Point.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Location) == "" {
		return fmt.Errorf("timeline missing location")
	}
	return nil
}

// SceneEnvironment describes the physical and emotional setting.
type SceneEnvironment struct {
	Setting    string   `json:"setting"`
	Atmosphere string   `json:"atmosphere,omitempty"`
	Weather    string   `json:"weather,omitempty"`
	Tension    string   `json:"tension,omitempty"`
	Details    []string `json:"details,omitempty"`
}

// Validate requires at least a setting.
func (e *SceneEnvironment) Validate() error {
	if strings.TrimSpace(e.Setting) == "" {
		return fmt.Errorf("environment missing setting")
	}
	return nil
}

// Character is one figure present in the scene.
type Character struct {
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Description   string   `json:"description,omitempty"`
	Speaks        bool     `json:"speaks"`
	Relationships []string `json:"relationships,omitempty"`
}

// CharacterSet is the characters stage's payload.
type CharacterSet struct {
	Characters []Character `json:"characters"`
}

// Validate bounds the cast and requires names.
func (cs *CharacterSet) Validate() error {
	if len(cs.Characters) == 0 {
		return fmt.Errorf("character set is empty")
	}
	if len(cs.Characters) > 8 {
		return fmt.Errorf("character set has %d members, maximum is 8", len(cs.Characters))
	}
	for i, c := range cs.Characters {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("character %d missing name", i)
		}
	}
	return nil
}

// Moment captures what is happening right now and why it matters.
type Moment struct {
	Summary string `json:"summary"`
	Action  string `json:"action,omitempty"`
	Stakes  string `json:"stakes,omitempty"`
}

// Validate requires a summary.
func (m *Moment) Validate() error {
	if strings.TrimSpace(m.Summary) == "" {
		return fmt.Errorf("moment missing summary")
	}
	return nil
}

// CameraPlan describes the visual composition of the scene.
type CameraPlan struct {
	Angle    string `json:"angle"`
	Framing  string `json:"framing,omitempty"`
	Lighting string `json:"lighting,omitempty"`
	Mood     string `json:"mood,omitempty"`
}

// Validate requires an angle.
func (c *CameraPlan) Validate() error {
	if strings.TrimSpace(c.Angle) == "" {
		return fmt.Errorf("camera plan missing angle")
	}
	return nil
}

// DialogLine is one spoken line.
type DialogLine struct {
	Speaker string `json:"speaker"`
	Line    string `json:"line"`
	Tone    string `json:"tone,omitempty"`
}

// Dialog is the dialog stage's payload.
type Dialog struct {
	Lines   []DialogLine `json:"lines"`
	Context string       `json:"context,omitempty"`
}

// Validate requires speakers on every line.
func (d *Dialog) Validate() error {
	for i, l := range d.Lines {
		if strings.TrimSpace(l.Speaker) == "" || strings.TrimSpace(l.Line) == "" {
			return fmt.Errorf("dialog line %d missing speaker or text", i)
		}
	}
	return nil
}

// RelationshipEdge is one directed relation between two characters.
type RelationshipEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// RelationshipGraph is the graph stage's payload.
type RelationshipGraph struct {
	Edges []RelationshipEdge `json:"edges"`
}

// Validate requires endpoints on every edge.
func (g *RelationshipGraph) Validate() error {
	for i, e := range g.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("relationship edge %d missing endpoint", i)
		}
	}
	return nil
}

// ImagePrompt is the assembled prompt for image synthesis.
type ImagePrompt struct {
	Prompt      string   `json:"prompt"`
	Negative    []string `json:"negative,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

// Validate requires the prompt text.
func (p *ImagePrompt) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("image prompt is empty")
	}
	return nil
}

// ImageArtifact references the synthesized image.
type ImageArtifact struct {
	URL   string `json:"url"`
	Model string `json:"model,omitempty"`
}

// Validate requires a URL.
func (a *ImageArtifact) Validate() error {
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("image artifact missing url")
	}
	return nil
}

// Scene is the externally visible aggregate composed from a completed
// pipeline run. Navigation never mutates an existing scene except for the
// parent pointer rewrite performed by a "prior" splice.
type Scene struct {
	ID       string      `json:"id"`
	Slug     string      `json:"slug"`
	ParentID *string     `json:"parent_id,omitempty"`
	Status   SceneStatus `json:"status"`
	Query    string      `json:"query"`

	Point temporal.Point `json:"point"`

	Timeline    *Timeline          `json:"timeline,omitempty"`
	Environment *SceneEnvironment  `json:"environment,omitempty"`
	Characters  []Character        `json:"characters,omitempty"`
	Moment      *Moment            `json:"moment,omitempty"`
	Camera      *CameraPlan        `json:"camera,omitempty"`
	Dialog      []DialogLine       `json:"dialog,omitempty"`
	Graph       *RelationshipGraph `json:"graph,omitempty"`
	ImagePrompt *ImagePrompt       `json:"image_prompt,omitempty"`
	Image       *ImageArtifact     `json:"image,omitempty"`

	Degraded []string `json:"degraded,omitempty"`

	// FailedStage and Error identify the first required-stage failure of a
	// failed scene.
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CharacterNames lists the cast in order.
func (s *Scene) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.Name)
	}
	return names
}

// Location returns the timeline's location, if any.
func (s *Scene) Location() string {
	if s.Timeline == nil {
		return ""
	}
	return s.Timeline.Location
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify builds a stable, url-safe slug from a query and a year.
func Slugify(query string, year int) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(query), "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = strings.Trim(s[:48], "-")
	}
	era := "ce"
	y := year
	if year < 0 {
		era = "bce"
		y = -year
	}
	return fmt.Sprintf("%s-%d-%s", s, y, era)
}
