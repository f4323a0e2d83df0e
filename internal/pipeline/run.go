package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is the overall state of a pipeline run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusFailed || s == StatusCompleted
}

// StageStatus is the terminal state of one stage within a run.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailure StageStatus = "failure"
	StageSkipped StageStatus = "skipped"
)

// StageResult records one stage's outcome. Owned exclusively by the run that
// produced it and immutable once recorded.
type StageResult struct {
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Output    any         `json:"-"`
	Err       error       `json:"-"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
}

// Run is one end-to-end execution of the stage graph for a single query.
// It is mutated only by the orchestrator goroutine coordinating the run and
// becomes immutable once Status is terminal.
type Run struct {
	ID    string
	Query string

	// Results in completion order; byName indexes the same entries.
	Results []*StageResult
	byName  map[string]*StageResult

	Status   Status
	Progress int
	Degraded []string

	// FailedStage and Cause identify the first required-stage failure.
	FailedStage string
	Cause       error

	StartedAt time.Time
	EndedAt   time.Time
}

func newRun(query string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Query:     query,
		byName:    make(map[string]*StageResult),
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
	}
}

// record appends a stage result; insertion order is completion order.
func (r *Run) record(res *StageResult) {
	r.Results = append(r.Results, res)
	r.byName[res.Stage] = res
}

// snapshot returns a read-only copy of the run for stages executing off the
// coordinator goroutine. Recorded results are immutable, so the copy shares
// them; it owns its own index so readers never touch a map the coordinator
// is still writing.
func (r *Run) snapshot() *Run {
	c := &Run{
		ID:     r.ID,
		Query:  r.Query,
		byName: make(map[string]*StageResult, len(r.byName)),
	}
	for name, res := range r.byName {
		c.byName[name] = res
	}
	return c
}

// Result returns the recorded result for a stage, if any.
func (r *Run) Result(stage string) (*StageResult, bool) {
	res, ok := r.byName[stage]
	return res, ok
}

// Output returns a successful stage's payload, or nil.
func (r *Run) Output(stage string) any {
	if res, ok := r.byName[stage]; ok && res.Status == StageSuccess {
		return res.Output
	}
	return nil
}

// Err returns the caller-visible error for a failed run, nil otherwise.
func (r *Run) Err() error {
	if r.Status != StatusFailed {
		return nil
	}
	return &RunError{Stage: r.FailedStage, Cause: r.Cause}
}

// EventKind distinguishes progress events from terminal markers.
type EventKind string

const (
	EventStep  EventKind = "step"
	EventDone  EventKind = "done"
	EventError EventKind = "error"
)

// Event is one entry in a run's ordered progress stream. Step events carry
// the completed stage; the terminal done/error event carries the result
// identity.
type Event struct {
	Kind     EventKind   `json:"event"`
	Step     string      `json:"step,omitempty"`
	Status   StageStatus `json:"status,omitempty"`
	Progress int         `json:"progress"`
	RunState Status      `json:"run_state,omitempty"`
	ResultID string      `json:"result_id,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// EventBuffer is the bounded capacity of a run's event channel: every stage,
// plus the terminal event, plus slack for the service's own terminal marker.
var EventBuffer = len(stageTable) + 2
