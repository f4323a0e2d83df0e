package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"timepoint/backend/internal/provider"
	"timepoint/backend/internal/temporal"
	"timepoint/backend/pkg/models"
)

// Stage names. The set is closed and known at build time; the orchestrator
// dispatches by table lookup, never by runtime type inspection.
const (
	StageJudge       = "judge"
	StageTimeline    = "timeline"
	StageScene       = "scene"
	StageCharacters  = "characters"
	StageMoment      = "moment"
	StageCamera      = "camera"
	StageDialog      = "dialog"
	StageGraph       = "graph"
	StageImagePrompt = "image_prompt"
	StageImage       = "image"
)

// RunContext gives a stage's input builder read access to the original query
// and every prior output. The contract itself performs no I/O.
type RunContext struct {
	Query string
	run   *Run
}

// Verdict returns the judge output, or nil.
func (rc *RunContext) Verdict() *models.JudgeVerdict {
	v, _ := rc.run.Output(StageJudge).(*models.JudgeVerdict)
	return v
}

// Timeline returns the timeline output, or nil.
func (rc *RunContext) Timeline() *models.Timeline {
	v, _ := rc.run.Output(StageTimeline).(*models.Timeline)
	return v
}

// Environment returns the scene-environment output, or nil.
func (rc *RunContext) Environment() *models.SceneEnvironment {
	v, _ := rc.run.Output(StageScene).(*models.SceneEnvironment)
	return v
}

// Characters returns the character set output, or nil.
func (rc *RunContext) Characters() *models.CharacterSet {
	v, _ := rc.run.Output(StageCharacters).(*models.CharacterSet)
	return v
}

// Moment returns the moment output, or nil.
func (rc *RunContext) Moment() *models.Moment {
	v, _ := rc.run.Output(StageMoment).(*models.Moment)
	return v
}

// Camera returns the camera plan output, or nil.
func (rc *RunContext) Camera() *models.CameraPlan {
	v, _ := rc.run.Output(StageCamera).(*models.CameraPlan)
	return v
}

// Dialog returns the dialog output, or nil.
func (rc *RunContext) Dialog() *models.Dialog {
	v, _ := rc.run.Output(StageDialog).(*models.Dialog)
	return v
}

// ImagePrompt returns the assembled image prompt, or nil.
func (rc *RunContext) ImagePrompt() *models.ImagePrompt {
	v, _ := rc.run.Output(StageImagePrompt).(*models.ImagePrompt)
	return v
}

// Stage is a pure description of one generation step: its predecessors, how
// to build its provider request from prior outputs, and how to validate the
// returned payload.
type Stage struct {
	Name       string
	Requires   []string
	Capability provider.Capability
	// Optional stages degrade the aggregate on failure instead of failing
	// the run.
	Optional bool
	// Progress is the cumulative percentage once this stage succeeds.
	Progress int
	Build    func(rc *RunContext) provider.Request
	Decode   func(raw json.RawMessage) (any, error)
}

// validated is implemented by every stage payload.
type validated interface{ Validate() error }

// decodeStrict unmarshals refusing unknown fields and trailing content,
// then runs the payload's own validation.
func decodeStrict[T any](raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	out := new(T)
	if err := dec.Decode(out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing content after payload")
	}
	if v, ok := any(out).(validated); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

// stageTable is the fixed, ordered contract set. phasePlan groups it into the
// scheduling phases the orchestrator executes.
var stageTable = []Stage{
	{
		Name:       StageJudge,
		Capability: provider.CapabilityStructured,
		Progress:   10,
		Build: func(rc *RunContext) provider.Request {
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System: "You are the gatekeeper for a historical scene generator. " +
					"Accept queries that describe a concrete moment in time; reject gibberish, " +
					"requests for the future, and queries with no temporal anchor.",
				Prompt:     fmt.Sprintf("Query: %q\nDecide whether a coherent historical scene can be generated.", rc.Query),
				SchemaName: "judge_verdict",
				Schema: objectSchema(map[string]any{
					"accepted":   map[string]any{"type": "boolean"},
					"reason":     str("one-sentence justification"),
					"confidence": map[string]any{"type": "number"},
				}, "accepted", "reason"),
			}
		},
		Decode: decodeStrict[models.JudgeVerdict],
	},
	{
		Name:       StageTimeline,
		Requires:   []string{StageJudge},
		Capability: provider.CapabilityStructured,
		Progress:   20,
		Build: func(rc *RunContext) provider.Request {
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System: "You pin a historical query to exact temporal coordinates. " +
					"Use a negative year for BCE dates. Include finer fields only when the moment supports them.",
				Prompt:     fmt.Sprintf("Query: %q\nName the year (and month/day/hour when determinable), the location, and a one-line summary.", rc.Query),
				SchemaName: "timeline",
				Schema: objectSchema(map[string]any{
					"year":     map[string]any{"type": "integer"},
					"month":    map[string]any{"type": "integer"},
					"day":      map[string]any{"type": "integer"},
					"hour":     map[string]any{"type": "integer"},
					"era":      str("named historical era"),
					"location": str("place the scene occurs"),
					"summary":  str("one-line summary of the moment"),
				}, "year", "location"),
			}
		},
		Decode: decodeStrict[models.Timeline],
	},
	{
		Name:       StageScene,
		Requires:   []string{StageTimeline},
		Capability: provider.CapabilityStructured,
		Progress:   30,
		Build: func(rc *RunContext) provider.Request {
			tl := rc.Timeline()
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System:     "You describe the physical environment of a historical scene. Stay strictly period-accurate.",
				Prompt: fmt.Sprintf("Moment: %s\nLocation: %s (%s)\nDescribe the setting, atmosphere, weather, tension level, and notable physical details.",
					tl.Summary, tl.Location, tl.Describe()),
				SchemaName: "scene_environment",
				Schema: objectSchema(map[string]any{
					"setting":    str("immediate physical setting"),
					"atmosphere": str("sensory atmosphere"),
					"weather":    str("weather if outdoors or relevant"),
					"tension":    str("low, medium, or high"),
					"details":    strList("notable physical details"),
				}, "setting"),
			}
		},
		Decode: decodeStrict[models.SceneEnvironment],
	},
	{
		Name:       StageCharacters,
		Requires:   []string{StageTimeline, StageScene},
		Capability: provider.CapabilityStructured,
		Progress:   40,
		Build: func(rc *RunContext) provider.Request {
			tl, env := rc.Timeline(), rc.Environment()
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System: "You identify who is present in a historical scene: at most 8 characters, " +
					"a mix of primary, secondary, and background roles, with 2-4 marked as speaking.",
				Prompt: fmt.Sprintf("Query: %q\nWhen: %s\nWhere: %s\nSetting: %s\nIdentify the characters present.",
					rc.Query, tl.Describe(), tl.Location, env.Setting),
				SchemaName: "character_set",
				Schema: objectSchema(map[string]any{
					"characters": map[string]any{"type": "array", "items": objectSchema(map[string]any{
						"name":          str("name or descriptive identifier"),
						"role":          str("primary, secondary, or background"),
						"description":   str("one-sentence description"),
						"speaks":        map[string]any{"type": "boolean"},
						"relationships": strList("names of related characters"),
					}, "name", "role")},
				}, "characters"),
			}
		},
		Decode: decodeStrict[models.CharacterSet],
	},
	{
		Name:       StageMoment,
		Requires:   []string{StageTimeline, StageScene},
		Capability: provider.CapabilityStructured,
		Progress:   50,
		Build: func(rc *RunContext) provider.Request {
			tl := rc.Timeline()
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System:     "You freeze a single dramatic beat of a historical scene: what is happening right now and why it matters.",
				Prompt: fmt.Sprintf("Moment: %s at %s, %s.\nDescribe the action under way and the stakes.",
					tl.Summary, tl.Location, tl.Describe()),
				SchemaName: "moment",
				Schema: objectSchema(map[string]any{
					"summary": str("one-line summary of the beat"),
					"action":  str("the action under way"),
					"stakes":  str("why this moment matters"),
				}, "summary"),
			}
		},
		Decode: decodeStrict[models.Moment],
	},
	{
		Name:       StageCamera,
		Requires:   []string{StageScene},
		Capability: provider.CapabilityStructured,
		Progress:   60,
		Build: func(rc *RunContext) provider.Request {
			env := rc.Environment()
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System:     "You are a cinematographer planning a single still frame of a historical scene.",
				Prompt: fmt.Sprintf("Setting: %s\nAtmosphere: %s\nChoose the camera angle, framing, lighting, and mood.",
					env.Setting, env.Atmosphere),
				SchemaName: "camera_plan",
				Schema: objectSchema(map[string]any{
					"angle":    str("camera position and angle"),
					"framing":  str("shot framing"),
					"lighting": str("light sources and quality"),
					"mood":     str("overall mood of the frame"),
				}, "angle"),
			}
		},
		Decode: decodeStrict[models.CameraPlan],
	},
	{
		Name:       StageDialog,
		Requires:   []string{StageCharacters, StageMoment},
		Capability: provider.CapabilityStructured,
		Progress:   70,
		Build: func(rc *RunContext) provider.Request {
			cs, mo := rc.Characters(), rc.Moment()
			speakers := make([]string, 0, len(cs.Characters))
			for _, c := range cs.Characters {
				if c.Speaks {
					speakers = append(speakers, c.Name)
				}
			}
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System:     "You write short period-accurate dialog for a historical scene. Only the listed speakers may talk.",
				Prompt: fmt.Sprintf("Moment: %s\nAction: %s\nSpeakers: %s\nWrite 2-6 lines of dialog.",
					mo.Summary, mo.Action, strings.Join(speakers, ", ")),
				SchemaName: "dialog",
				Schema: objectSchema(map[string]any{
					"lines": map[string]any{"type": "array", "items": objectSchema(map[string]any{
						"speaker": str("character name"),
						"line":    str("spoken text"),
						"tone":    str("emotional tone"),
					}, "speaker", "line")},
					"context": str("what prompts the exchange"),
				}, "lines"),
			}
		},
		Decode: decodeStrict[models.Dialog],
	},
	{
		Name:       StageGraph,
		Requires:   []string{StageCharacters},
		Capability: provider.CapabilityStructured,
		Progress:   80,
		Build: func(rc *RunContext) provider.Request {
			cs := rc.Characters()
			names := make([]string, 0, len(cs.Characters))
			for _, c := range cs.Characters {
				names = append(names, c.Name)
			}
			return provider.Request{
				Capability: provider.CapabilityStructured,
				System:     "You map the relationships between characters in a scene as directed edges.",
				Prompt:     fmt.Sprintf("Characters: %s\nName the relationships between them.", strings.Join(names, ", ")),
				SchemaName: "relationship_graph",
				Schema: objectSchema(map[string]any{
					"edges": map[string]any{"type": "array", "items": objectSchema(map[string]any{
						"from":     str("character name"),
						"to":       str("character name"),
						"relation": str("nature of the relation"),
					}, "from", "to", "relation")},
				}, "edges"),
			}
		},
		Decode: decodeStrict[models.RelationshipGraph],
	},
	{
		Name:       StageImagePrompt,
		Requires:   []string{StageScene, StageCharacters, StageDialog, StageCamera},
		Capability: provider.CapabilityStructured,
		Progress:   90,
		Build:      buildImagePrompt,
		Decode:     decodeStrict[models.ImagePrompt],
	},
	{
		Name:       StageImage,
		Requires:   []string{StageImagePrompt},
		Capability: provider.CapabilityImage,
		Optional:   true,
		Progress:   100,
		Build: func(rc *RunContext) provider.Request {
			ip := rc.ImagePrompt()
			return provider.Request{
				Capability: provider.CapabilityImage,
				Prompt:     ip.Prompt + "\nAvoid: " + strings.Join(ip.Negative, ", "),
				SchemaName: "image_artifact",
				Schema: objectSchema(map[string]any{
					"url":   str("location of the synthesized image"),
					"model": str("model that produced it"),
				}, "url"),
			}
		},
		Decode: decodeStrict[models.ImageArtifact],
	},
}

func buildImagePrompt(rc *RunContext) provider.Request {
	tl, env, cs, cam := rc.Timeline(), rc.Environment(), rc.Characters(), rc.Camera()
	var cast strings.Builder
	for _, c := range cs.Characters {
		fmt.Fprintf(&cast, "- %s (%s): %s\n", c.Name, c.Role, c.Description)
	}
	negatives := temporalNegatives(tl)
	return provider.Request{
		Capability: provider.CapabilityStructured,
		System: "You assemble a single image-synthesis prompt from a scene plan. " +
			"The prompt must be period-accurate and self-contained.",
		Prompt: fmt.Sprintf("When: %s\nSetting: %s\nLighting: %s, angle: %s\nCast:\n%s"+
			"Exclude anachronisms such as: %s\nAssemble the final image prompt.",
			tl.Describe(), env.Setting, cam.Lighting, cam.Angle, cast.String(), strings.Join(negatives, ", ")),
		SchemaName: "image_prompt",
		Schema: objectSchema(map[string]any{
			"prompt":       str("complete image-synthesis prompt"),
			"negative":     strList("elements to exclude"),
			"aspect_ratio": str("e.g. 16:9"),
		}, "prompt"),
	}
}

func temporalNegatives(tl *models.Timeline) []string {
	return temporal.NegativePrompts(tl.Year, tl.Location)
}

// stageByName returns the contract for a stage name.
func stageByName(name string) (Stage, bool) {
	for _, s := range stageTable {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Stages returns the fixed contract table in declaration order.
func Stages() []Stage {
	out := make([]Stage, len(stageTable))
	copy(out, stageTable)
	return out
}
