package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"timepoint/backend/pkg/models"
)

func TestPostgresSceneStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresSceneStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	t.Run("Save and Get", func(t *testing.T) {
		scene := testScene(nil, time.Now().UTC().Truncate(time.Microsecond))
		scene.Environment = &models.SceneEnvironment{Setting: "assembly room"}
		scene.Characters = []models.Character{{Name: "John Hancock", Role: "primary", Speaks: true}}

		require.NoError(t, store.Save(ctx, scene))

		got, err := store.Get(ctx, scene.ID)
		require.NoError(t, err)
		assert.Equal(t, scene.ID, got.ID)
		assert.Equal(t, scene.Slug, got.Slug)
		assert.Equal(t, scene.Point, got.Point)
		assert.Equal(t, "assembly room", got.Environment.Setting)
		assert.Len(t, got.Characters, 1)
	})

	t.Run("Get unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SetParent rewrites column and document", func(t *testing.T) {
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

		assert.ErrorIs(t, store.SetParent(ctx, uuid.New().String(), nil), ErrNotFound)
	})

	t.Run("FirstChild orders by creation time", func(t *testing.T) {
		parent := testScene(nil, time.Now().UTC())
		require.NoError(t, store.Save(ctx, parent))

		base := time.Now().UTC().Truncate(time.Microsecond)
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
