package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timepoint/backend/internal/temporal"
	"timepoint/backend/pkg/models"
)

func testScene(parentID *string, createdAt time.Time) *models.Scene {
	return &models.Scene{
		ID:        uuid.New().String(),
		Slug:      "test-scene-1776-ce",
		ParentID:  parentID,
		Status:    models.SceneStatusCompleted,
		Query:     "test query",
		Point:     temporal.NewPoint(1776, 7, 4),
		CreatedAt: createdAt,
	}
}

func TestInMemorySceneStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Save and Get", func(t *testing.T) {
		store := NewInMemorySceneStore()
		scene := testScene(nil, time.Now().UTC())
		scene.Environment = &models.SceneEnvironment{Setting: "assembly room"}

		require.NoError(t, store.Save(ctx, scene))

		got, err := store.Get(ctx, scene.ID)
		require.NoError(t, err)
		assert.Equal(t, scene.ID, got.ID)
		assert.Equal(t, scene.Point, got.Point)
		assert.Equal(t, "assembly room", got.Environment.Setting)
	})

	t.Run("Get returns copies", func(t *testing.T) {
		store := NewInMemorySceneStore()
		scene := testScene(nil, time.Now().UTC())
		scene.Environment = &models.SceneEnvironment{Setting: "original"}
		require.NoError(t, store.Save(ctx, scene))

		first, err := store.Get(ctx, scene.ID)
		require.NoError(t, err)
		first.Environment.Setting = "mutated"

		second, err := store.Get(ctx, scene.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", second.Environment.Setting)
	})

	t.Run("Get unknown id", func(t *testing.T) {
		store := NewInMemorySceneStore()
		_, err := store.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SetParent", func(t *testing.T) {
		store := NewInMemorySceneStore()
		parent := testScene(nil, time.Now().UTC())
		child := testScene(nil, time.Now().UTC())
		require.NoError(t, store.Save(ctx, parent))
		require.NoError(t, store.Save(ctx, child))

		require.NoError(t, store.SetParent(ctx, child.ID, &parent.ID))
		got, err := store.Get(ctx, child.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)

		require.NoError(t, store.SetParent(ctx, child.ID, nil))
		got, err = store.Get(ctx, child.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)

		assert.ErrorIs(t, store.SetParent(ctx, uuid.New().String(), &parent.ID), ErrNotFound)
	})

	t.Run("FirstChild picks earliest created", func(t *testing.T) {
		store := NewInMemorySceneStore()
		parent := testScene(nil, time.Now().UTC())
		require.NoError(t, store.Save(ctx, parent))

		base := time.Now().UTC()
		later := testScene(&parent.ID, base.Add(time.Minute))
		earlier := testScene(&parent.ID, base)
		require.NoError(t, store.Save(ctx, later))
		require.NoError(t, store.Save(ctx, earlier))

		got, err := store.FirstChild(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, earlier.ID, got.ID)

		_, err = store.FirstChild(ctx, earlier.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
