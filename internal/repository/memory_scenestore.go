package repository

import (
	"context"
	"encoding/json"
	"sync"

	"timepoint/backend/pkg/models"
)

// InMemorySceneStore is a map-backed SceneStore for development and tests.
// Scenes are deep-copied on the way in and out so callers never share state
// with the store.
type InMemorySceneStore struct {
	mu     sync.RWMutex
	scenes map[string]*models.Scene
}

// NewInMemorySceneStore creates an empty in-memory store.
func NewInMemorySceneStore() *InMemorySceneStore {
	return &InMemorySceneStore{scenes: make(map[string]*models.Scene)}
}

// Save saves a scene to the store.
func (s *InMemorySceneStore) Save(_ context.Context, scene *models.Scene) error {
	clone, err := cloneScene(scene)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[scene.ID] = clone
	return nil
}

// Get retrieves a scene by its id.
func (s *InMemorySceneStore) Get(_ context.Context, id string) (*models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scene, ok := s.scenes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneScene(scene)
}

// SetParent rewrites a scene's parent pointer.
func (s *InMemorySceneStore) SetParent(_ context.Context, id string, parentID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scene, ok := s.scenes[id]
	if !ok {
		return ErrNotFound
	}
	if parentID == nil {
		scene.ParentID = nil
		return nil
	}
	pid := *parentID
	scene.ParentID = &pid
	return nil
}

// FirstChild returns the earliest-created child of a scene.
func (s *InMemorySceneStore) FirstChild(_ context.Context, id string) (*models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var earliest *models.Scene
	for _, scene := range s.scenes {
		if scene.ParentID == nil || *scene.ParentID != id {
			continue
		}
		if earliest == nil ||
			scene.CreatedAt.Before(earliest.CreatedAt) ||
			(scene.CreatedAt.Equal(earliest.CreatedAt) && scene.ID < earliest.ID) {
			earliest = scene
		}
	}
	if earliest == nil {
		return nil, ErrNotFound
	}
	return cloneScene(earliest)
}

func cloneScene(scene *models.Scene) (*models.Scene, error) {
	raw, err := json.Marshal(scene)
	if err != nil {
		return nil, err
	}
	var clone models.Scene
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}
