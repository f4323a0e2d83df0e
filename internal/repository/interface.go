package repository

import (
	"context"
	"errors"

	"timepoint/backend/pkg/models"
)

// ErrNotFound is returned when no scene exists for the requested id.
var ErrNotFound = errors.New("scene not found")

// SceneStore persists scene aggregates and their parent links.
type SceneStore interface {
	// Save stores a new scene.
	Save(ctx context.Context, scene *models.Scene) error
	// Get retrieves a scene by its id.
	Get(ctx context.Context, id string) (*models.Scene, error)
	// SetParent rewrites a scene's parent pointer.
	SetParent(ctx context.Context, id string, parentID *string) error
	// FirstChild returns the earliest-created child of a scene, or
	// ErrNotFound when the scene has none.
	FirstChild(ctx context.Context, id string) (*models.Scene, error)
}
