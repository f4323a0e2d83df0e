package services

import (
	"context"

	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/temporal"
	"timepoint/backend/pkg/models"
)

// NavigationRequest asks for a new scene offset in time from an existing one.
type NavigationRequest struct {
	FromID    string             `json:"from_id"`
	Unit      temporal.Unit      `json:"unit"`
	Count     int                `json:"count"`
	Direction temporal.Direction `json:"direction"`
}

// Sequence is an ordered slice of a scene chain in chronological order.
type Sequence struct {
	Scenes []*models.Scene `json:"scenes"`
}

// TimepointService generates, navigates, and retrieves scenes.
type TimepointService interface {
	// Generate runs the pipeline for a query and persists the outcome.
	Generate(ctx context.Context, query string) (*models.Scene, *pipeline.Run, error)
	// Stream runs the pipeline asynchronously, yielding one event per
	// completed stage and a terminal event carrying the scene id.
	Stream(ctx context.Context, query string) <-chan pipeline.Event
	// Navigate steps the source scene's coordinates and generates the
	// linked scene at the new point.
	Navigate(ctx context.Context, req NavigationRequest) (*models.Scene, *pipeline.Run, error)
	// Get retrieves a persisted scene.
	Get(ctx context.Context, id string) (*models.Scene, error)
	// GetSequence walks the chain from a scene in one direction, up to
	// limit hops, returning the visited scenes in chronological order.
	// The source scene itself is not included.
	GetSequence(ctx context.Context, id string, dir temporal.Direction, limit int) (*Sequence, error)
}
