package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timepoint/backend/pkg/models"
)

// PostgresSceneStore is a PostgreSQL implementation of the SceneStore
// interface. The full aggregate lives in a jsonb document; the columns that
// navigation queries need are kept relational.
type PostgresSceneStore struct {
	db *pgxpool.Pool
}

// NewPostgresSceneStore creates a new PostgresSceneStore.
func NewPostgresSceneStore(db *pgxpool.Pool) *PostgresSceneStore {
	return &PostgresSceneStore{db: db}
}

// EnsureSchema creates the scenes table when it does not exist.
func (s *PostgresSceneStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scenes (
			id uuid PRIMARY KEY,
			slug text NOT NULL,
			parent_id uuid REFERENCES scenes(id),
			status text NOT NULL,
			query text NOT NULL,
			point jsonb NOT NULL,
			document jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS scenes_parent_id_idx ON scenes (parent_id, created_at);
	`)
	return err
}

// Save saves a scene to the store.
func (s *PostgresSceneStore) Save(ctx context.Context, scene *models.Scene) error {
	point, err := json.Marshal(scene.Point)
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	document, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO scenes (id, slug, parent_id, status, query, point, document, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		scene.ID, scene.Slug, scene.ParentID, scene.Status, scene.Query, point, document, scene.CreatedAt)
	return err
}

// Get retrieves a scene by its id.
func (s *PostgresSceneStore) Get(ctx context.Context, id string) (*models.Scene, error) {
	row := s.db.QueryRow(ctx,
		"SELECT parent_id, status, document FROM scenes WHERE id = $1", id)
	return scanScene(row)
}

// SetParent rewrites a scene's parent pointer, in both the column and the
// stored document so reads stay consistent.
func (s *PostgresSceneStore) SetParent(ctx context.Context, id string, parentID *string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE scenes
		SET parent_id = $2,
		    document = CASE WHEN $2::uuid IS NULL
		        THEN document - 'parent_id'
		        ELSE jsonb_set(document, '{parent_id}', to_jsonb($2::text)) END
		WHERE id = $1`, id, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FirstChild returns the earliest-created child of a scene.
func (s *PostgresSceneStore) FirstChild(ctx context.Context, id string) (*models.Scene, error) {
	row := s.db.QueryRow(ctx,
		"SELECT parent_id, status, document FROM scenes WHERE parent_id = $1 ORDER BY created_at, id LIMIT 1", id)
	return scanScene(row)
}

// scanScene decodes the document column, letting the relational columns win
// for the fields navigation rewrites.
func scanScene(row pgx.Row) (*models.Scene, error) {
	var (
		parentID *string
		status   string
		document []byte
	)
	if err := row.Scan(&parentID, &status, &document); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var scene models.Scene
	if err := json.Unmarshal(document, &scene); err != nil {
		return nil, fmt.Errorf("decode scene document: %w", err)
	}
	scene.ParentID = parentID
	scene.Status = models.SceneStatus(status)
	return &scene, nil
}
