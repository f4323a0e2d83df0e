// Package services holds the application services bridging the pipeline,
// the temporal model, and persistence.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/repository"
	"timepoint/backend/internal/temporal"
	"timepoint/backend/pkg/models"
)

const (
	// maxNavigateCount bounds a single navigation step.
	maxNavigateCount = 365
	// maxChainHops is the ceiling on parent-chain walks. A chain longer
	// than this is treated as corrupt rather than walked forever.
	maxChainHops = 64
)

// Executor runs the stage graph for one query. Satisfied by
// pipeline.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, query string, events chan<- pipeline.Event) *pipeline.Run
}

// SceneService is the TimepointService implementation over a pipeline
// executor and a scene store.
type SceneService struct {
	orch   Executor
	store  repository.SceneStore
	logger *logging.Logger
}

// NewSceneService creates a new SceneService.
func NewSceneService(orch Executor, store repository.SceneStore, logger *logging.Logger) *SceneService {
	return &SceneService{orch: orch, store: store, logger: logger}
}

// Generate runs the pipeline synchronously and persists whatever came out,
// completed or not. Pipeline failure is visible on the scene and run, not as
// the returned error; the error reports infrastructure problems only.
func (s *SceneService) Generate(ctx context.Context, query string) (*models.Scene, *pipeline.Run, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, &PreconditionError{Field: "query", Reason: "must not be empty"}
	}
	run := s.orch.Execute(ctx, query, nil)
	scene := composeScene(run, query)
	if err := s.store.Save(ctx, scene); err != nil {
		return nil, run, err
	}
	return scene, run, nil
}

// Stream runs the pipeline asynchronously. The returned channel yields the
// orchestrator's step events in order, then exactly one terminal done or
// error event; the terminal event carries the persisted scene id.
func (s *SceneService) Stream(ctx context.Context, query string) <-chan pipeline.Event {
	out := make(chan pipeline.Event, pipeline.EventBuffer)
	go func() {
		defer close(out)
		q := strings.TrimSpace(query)
		if q == "" {
			out <- pipeline.Event{Kind: pipeline.EventError, Error: "query must not be empty"}
			return
		}
		steps := make(chan pipeline.Event, pipeline.EventBuffer)
		done := make(chan *pipeline.Run, 1)
		go func() { done <- s.orch.Execute(ctx, q, steps) }()
		for ev := range steps {
			out <- ev
		}
		run := <-done
		scene := composeScene(run, q)
		if err := s.store.Save(ctx, scene); err != nil {
			s.logger.Error("persist failed", "run_id", run.ID, "error", err)
			out <- pipeline.Event{Kind: pipeline.EventError, Progress: run.Progress, RunState: run.Status, Error: err.Error()}
			return
		}
		terminal := pipeline.Event{Kind: pipeline.EventDone, Progress: run.Progress, RunState: run.Status, ResultID: scene.ID}
		if err := run.Err(); err != nil {
			terminal.Kind = pipeline.EventError
			terminal.Error = err.Error()
		}
		out <- terminal
	}()
	return out
}

// Navigate steps the source scene's coordinates by the requested offset and
// generates a new linked scene there. Forward navigation makes the new scene
// a child of the source; backward navigation splices it in as the source's
// ancestor. Linkage applies only when the new scene completes.
func (s *SceneService) Navigate(ctx context.Context, req NavigationRequest) (*models.Scene, *pipeline.Run, error) {
	if req.Count < 1 || req.Count > maxNavigateCount {
		return nil, nil, &PreconditionError{Field: "count", Reason: "must be between 1 and 365"}
	}
	source, err := s.store.Get(ctx, req.FromID)
	if err != nil {
		return nil, nil, err
	}
	if source.Status != models.SceneStatusCompleted {
		return nil, nil, &PreconditionError{Field: "from_id", Reason: "source scene did not complete"}
	}
	if source.Timeline == nil {
		return nil, nil, &PreconditionError{Field: "from_id", Reason: "source scene has no timeline"}
	}

	target, err := temporal.Step(source.Point, req.Unit, req.Count, req.Direction)
	if err != nil {
		return nil, nil, &PreconditionError{Field: "unit", Reason: err.Error()}
	}

	// A backward splice rewrites the source's parent pointer, so refuse up
	// front when the existing chain is already unwalkable.
	if req.Direction == temporal.Backward {
		if err := s.checkChain(ctx, source); err != nil {
			return nil, nil, err
		}
	}

	cont := temporal.Continuation{
		OriginalQuery: source.Query,
		Location:      source.Location(),
		Characters:    source.CharacterNames(),
	}
	query := cont.FollowUpQuery(source.Point, target, req.Direction)

	run := s.orch.Execute(ctx, query, nil)
	scene := composeScene(run, query)

	// The stepped coordinates are authoritative over whatever the timeline
	// stage inferred from the follow-up prose.
	scene.Point = target
	if scene.Timeline != nil {
		scene.Timeline.Point = target
	}
	scene.Slug = models.Slugify(source.Query, target.Year)

	if scene.Status == models.SceneStatusCompleted {
		if req.Direction == temporal.Forward {
			id := source.ID
			scene.ParentID = &id
		} else {
			scene.ParentID = source.ParentID
		}
	}
	if err := s.store.Save(ctx, scene); err != nil {
		return nil, run, err
	}
	if scene.Status == models.SceneStatusCompleted && req.Direction == temporal.Backward {
		if err := s.store.SetParent(ctx, source.ID, &scene.ID); err != nil {
			return nil, run, err
		}
		s.logger.Info("spliced ancestor", "scene_id", scene.ID, "before", source.ID)
	}
	return scene, run, nil
}

// Get retrieves a persisted scene.
func (s *SceneService) Get(ctx context.Context, id string) (*models.Scene, error) {
	return s.store.Get(ctx, id)
}

// GetSequence walks the chain from a scene: backward via parent pointers,
// forward via each scene's earliest-created child, which is the canonical
// successor when a scene has several children. The walk stops at the chain
// end or after limit hops; the source scene is not part of the result, and
// the result is chronological regardless of direction.
func (s *SceneService) GetSequence(ctx context.Context, id string, dir temporal.Direction, limit int) (*Sequence, error) {
	if limit < 1 || limit > maxChainHops {
		return nil, &PreconditionError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", maxChainHops)}
	}
	source, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{source.ID: true}
	var visited []*models.Scene
	cur := source
	for hops := 0; hops < limit; hops++ {
		var next *models.Scene
		if dir == temporal.Forward {
			next, err = s.store.FirstChild(ctx, cur.ID)
		} else {
			if cur.ParentID == nil {
				break
			}
			next, err = s.store.Get(ctx, *cur.ParentID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if seen[next.ID] {
			return nil, ErrCycle
		}
		seen[next.ID] = true
		visited = append(visited, next)
		cur = next
	}

	if dir == temporal.Backward {
		for i, j := 0, len(visited)-1; i < j; i, j = i+1, j-1 {
			visited[i], visited[j] = visited[j], visited[i]
		}
	}
	return &Sequence{Scenes: visited}, nil
}

// checkChain walks the source's ancestry to verify it terminates within the
// hop ceiling.
func (s *SceneService) checkChain(ctx context.Context, scene *models.Scene) error {
	cur := scene
	for hops := 0; cur.ParentID != nil; hops++ {
		if hops >= maxChainHops {
			return ErrCycle
		}
		parent, err := s.store.Get(ctx, *cur.ParentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cur = parent
	}
	return nil
}

// composeScene assembles the persisted aggregate from a terminal run.
func composeScene(run *pipeline.Run, query string) *models.Scene {
	scene := &models.Scene{
		ID:        run.ID,
		Query:     query,
		Degraded:  run.Degraded,
		CreatedAt: time.Now().UTC(),
	}
	switch run.Status {
	case pipeline.StatusCompleted:
		scene.Status = models.SceneStatusCompleted
	case pipeline.StatusRejected:
		scene.Status = models.SceneStatusRejected
	default:
		scene.Status = models.SceneStatusFailed
		scene.FailedStage = run.FailedStage
		if run.Cause != nil {
			scene.Error = run.Cause.Error()
		}
	}

	if tl, ok := run.Output(pipeline.StageTimeline).(*models.Timeline); ok {
		if tl.Era == "" {
			tl.Era = temporal.Era(tl.Year, tl.Location)
		}
		scene.Timeline = tl
		scene.Point = tl.Point
	}
	if env, ok := run.Output(pipeline.StageScene).(*models.SceneEnvironment); ok {
		scene.Environment = env
	}
	if cs, ok := run.Output(pipeline.StageCharacters).(*models.CharacterSet); ok {
		scene.Characters = cs.Characters
	}
	if mo, ok := run.Output(pipeline.StageMoment).(*models.Moment); ok {
		scene.Moment = mo
	}
	if cam, ok := run.Output(pipeline.StageCamera).(*models.CameraPlan); ok {
		scene.Camera = cam
	}
	if d, ok := run.Output(pipeline.StageDialog).(*models.Dialog); ok {
		scene.Dialog = d.Lines
	}
	if g, ok := run.Output(pipeline.StageGraph).(*models.RelationshipGraph); ok {
		scene.Graph = g
	}
	if ip, ok := run.Output(pipeline.StageImagePrompt).(*models.ImagePrompt); ok {
		scene.ImagePrompt = ip
	}
	if img, ok := run.Output(pipeline.StageImage).(*models.ImageArtifact); ok {
		scene.Image = img
	}
	scene.Slug = models.Slugify(query, scene.Point.Year)
	return scene
}
