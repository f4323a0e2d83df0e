// Package pipeline executes the fixed stage graph that turns a historical
// query into a fully described scene.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/provider"
	"timepoint/backend/pkg/models"
)

// phasePlan is the execution schedule over stageTable. Phase one gates the
// run sequentially, phase two fans out behind a full barrier, phase three
// runs in dependency order.
var phasePlan = [][]string{
	{StageJudge, StageTimeline, StageScene},
	{StageCharacters, StageMoment, StageCamera},
	{StageDialog, StageGraph, StageImagePrompt, StageImage},
}

// Resolver generates one payload for a request, handling backend selection,
// retry, and fallback internally.
type Resolver interface {
	Resolve(ctx context.Context, req provider.Request) (json.RawMessage, error)
}

// Orchestrator walks the phase plan for one query at a time. A single
// coordinator goroutine owns the Run; parallel stages report through a
// results channel and never touch shared state.
type Orchestrator struct {
	resolver      Resolver
	logger        *logging.Logger
	stageAttempts int
	stageTimeout  time.Duration

	stageCounter metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewOrchestrator wires an orchestrator. stageAttempts is the number of
// build-resolve-decode attempts per stage (minimum 1); stageTimeout bounds a
// single stage, zero meaning no per-stage bound.
func NewOrchestrator(resolver Resolver, logger *logging.Logger, stageAttempts int, stageTimeout time.Duration) *Orchestrator {
	if stageAttempts < 1 {
		stageAttempts = 1
	}
	meter := otel.Meter("timepoint/pipeline")
	counter, _ := meter.Int64Counter("pipeline.stage.completed",
		metric.WithDescription("stage completions by terminal status"))
	hist, _ := meter.Float64Histogram("pipeline.run.duration",
		metric.WithDescription("end-to-end run duration"), metric.WithUnit("s"))
	return &Orchestrator{
		resolver:      resolver,
		logger:        logger,
		stageAttempts: stageAttempts,
		stageTimeout:  stageTimeout,
		stageCounter:  counter,
		runDuration:   hist,
	}
}

// Execute runs the full stage graph for a query. When events is non-nil the
// orchestrator sends one step event per recorded stage, in completion order,
// and closes the channel before returning; the channel must have capacity
// EventBuffer or better. The returned Run is always terminal.
func (o *Orchestrator) Execute(ctx context.Context, query string, events chan<- Event) *Run {
	run := newRun(query)
	run.Status = StatusRunning
	if events != nil {
		defer close(events)
	}
	defer func() {
		run.EndedAt = time.Now().UTC()
		o.runDuration.Record(ctx, run.EndedAt.Sub(run.StartedAt).Seconds(),
			metric.WithAttributes(attribute.String("status", string(run.Status))))
	}()

	o.logger.Info("run started", "run_id", run.ID, "query", query)

	// Phase one: sequential gating.
	for _, name := range phasePlan[0] {
		if !o.runOrSkip(ctx, run, name, events) {
			o.finish(run)
			return run
		}
		if name == StageJudge {
			if v := run.Output(StageJudge).(*models.JudgeVerdict); !v.Accepted {
				run.Status = StatusRejected
				o.logger.Info("query rejected", "run_id", run.ID, "reason", v.Reason)
				return run
			}
		}
	}

	// Phase two: independent stages fan out; the barrier holds until all
	// three report back. Each goroutine builds its requests from a frozen
	// view of the phase-one outputs, never from the live run, which the
	// coordinator keeps writing as sibling results arrive.
	frozen := run.snapshot()
	results := make(chan *StageResult, len(phasePlan[1]))
	for _, name := range phasePlan[1] {
		stage, _ := stageByName(name)
		go func() {
			results <- o.executeStage(ctx, frozen, stage)
		}()
	}
	for range phasePlan[1] {
		res := <-results
		o.record(ctx, run, res, events)
	}

	// Phase three: dependency order, skipping past failed predecessors.
	for _, name := range phasePlan[2] {
		if ctx.Err() != nil {
			o.failRun(run, name, ctx.Err())
			return run
		}
		stage, _ := stageByName(name)
		if failed := o.unmetDeps(run, stage); len(failed) > 0 {
			o.record(ctx, run, skippedResult(stage.Name, failed), events)
			continue
		}
		o.record(ctx, run, o.executeStage(ctx, run, stage), events)
	}

	o.finish(run)
	return run
}

// runOrSkip executes one phase-one stage, recording the result. Returns
// false when the run cannot continue.
func (o *Orchestrator) runOrSkip(ctx context.Context, run *Run, name string, events chan<- Event) bool {
	if ctx.Err() != nil {
		o.failRun(run, name, ctx.Err())
		return false
	}
	stage, _ := stageByName(name)
	if failed := o.unmetDeps(run, stage); len(failed) > 0 {
		o.record(ctx, run, skippedResult(stage.Name, failed), events)
		return false
	}
	res := o.executeStage(ctx, run, stage)
	o.record(ctx, run, res, events)
	return res.Status == StageSuccess
}

// executeStage builds, resolves, and decodes one stage within the attempt
// budget. Decode and validation failures are retried against the resolver;
// resolver errors are terminal, the router has already exhausted fallback.
func (o *Orchestrator) executeStage(ctx context.Context, run *Run, stage Stage) *StageResult {
	res := &StageResult{Stage: stage.Name, StartedAt: time.Now().UTC()}
	rc := &RunContext{Query: run.Query, run: run}

	var lastErr error
	for attempt := 1; attempt <= o.stageAttempts; attempt++ {
		stageCtx := ctx
		cancel := context.CancelFunc(func() {})
		if o.stageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		}
		raw, err := o.resolver.Resolve(stageCtx, stage.Build(rc))
		cancel()
		if err != nil {
			res.Status = StageFailure
			res.Err = err
			res.EndedAt = time.Now().UTC()
			return res
		}
		out, err := stage.Decode(raw)
		if err == nil {
			res.Status = StageSuccess
			res.Output = out
			res.EndedAt = time.Now().UTC()
			return res
		}
		lastErr = err
		o.logger.Warn("stage output invalid", "run_id", run.ID, "stage", stage.Name, "attempt", attempt, "error", err)
	}
	res.Status = StageFailure
	res.Err = &ValidationError{Stage: stage.Name, Err: lastErr}
	res.EndedAt = time.Now().UTC()
	return res
}

// record stores a result on the run, advances progress, and emits the step
// event. Only the coordinator goroutine calls it.
func (o *Orchestrator) record(ctx context.Context, run *Run, res *StageResult, events chan<- Event) {
	run.record(res)
	stage, _ := stageByName(res.Stage)
	o.stageCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", res.Stage),
		attribute.String("status", string(res.Status)),
	))
	switch res.Status {
	case StageSuccess:
		if stage.Progress > run.Progress {
			run.Progress = stage.Progress
		}
		o.logger.Debug("stage complete", "run_id", run.ID, "stage", res.Stage, "progress", run.Progress)
	case StageFailure:
		o.logger.Warn("stage failed", "run_id", run.ID, "stage", res.Stage, "error", res.Err)
	case StageSkipped:
		o.logger.Debug("stage skipped", "run_id", run.ID, "stage", res.Stage)
	}
	if events != nil {
		events <- Event{Kind: EventStep, Step: res.Stage, Status: res.Status, Progress: run.Progress}
	}
}

// unmetDeps lists required predecessors that did not succeed.
func (o *Orchestrator) unmetDeps(run *Run, stage Stage) []string {
	var failed []string
	for _, dep := range stage.Requires {
		if run.Output(dep) == nil {
			failed = append(failed, dep)
		}
	}
	return failed
}

func skippedResult(stage string, failed []string) *StageResult {
	now := time.Now().UTC()
	return &StageResult{
		Stage:     stage,
		Status:    StageSkipped,
		Err:       &DependencyError{Stage: stage, Failed: failed},
		StartedAt: now,
		EndedAt:   now,
	}
}

// finish settles the terminal status from the recorded results. The first
// required-stage failure in completion order decides a failed run; an
// optional-stage failure only degrades the aggregate.
func (o *Orchestrator) finish(run *Run) {
	if run.Status.Terminal() {
		return
	}
	for _, res := range run.Results {
		if res.Status != StageFailure {
			continue
		}
		stage, _ := stageByName(res.Stage)
		if stage.Optional {
			if res.Stage == StageImage {
				run.Degraded = append(run.Degraded, models.DegradedImageMissing)
			}
			continue
		}
		run.Status = StatusFailed
		run.FailedStage = res.Stage
		run.Cause = res.Err
		o.logger.Error("run failed", "run_id", run.ID, "stage", res.Stage, "error", res.Err)
		return
	}
	run.Status = StatusCompleted
	run.Progress = 100
	o.logger.Info("run completed", "run_id", run.ID, "degraded", len(run.Degraded) > 0)
}

func (o *Orchestrator) failRun(run *Run, stage string, cause error) {
	run.Status = StatusFailed
	run.FailedStage = stage
	run.Cause = cause
	run.EndedAt = time.Now().UTC()
	o.logger.Error("run aborted", "run_id", run.ID, "stage", stage, "error", cause)
}
