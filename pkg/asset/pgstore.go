package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is applied by EnsureSchema. JSONB columns carry the list- and
// map-shaped fields so partial updates stay single-statement.
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL UNIQUE,
	original_name  TEXT NOT NULL,
	mime_type      TEXT NOT NULL,
	size           BIGINT NOT NULL,
	storage_path   TEXT NOT NULL,
	thumbnail_path TEXT NOT NULL DEFAULT '',
	transcoded     JSONB,
	metadata       JSONB,
	status         TEXT NOT NULL,
	tags           JSONB,
	description    TEXT NOT NULL DEFAULT '',
	download_count BIGINT NOT NULL DEFAULT 0,
	user_id        TEXT NOT NULL,
	team_id        TEXT NOT NULL DEFAULT '',
	project_id     TEXT NOT NULL DEFAULT '',
	channels       JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS assets_user_created_idx ON assets (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS assets_user_mime_status_idx ON assets (user_id, mime_type, status);
`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects a pool from a pgx connection URL.
func NewPGStore(ctx context.Context, url string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() { s.pool.Close() }

// EnsureSchema creates the assets table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PGStore) Create(ctx context.Context, a *Asset) error {
	transcoded, err := jsonOrNil(a.Transcoded)
	if err != nil {
		return err
	}
	metadata, err := jsonOrNil(a.Metadata)
	if err != nil {
		return err
	}
	tags, err := jsonOrNil(a.Tags)
	if err != nil {
		return err
	}
	channels, err := jsonOrNil(a.Channels)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO assets (
			id, filename, original_name, mime_type, size, storage_path,
			thumbnail_path, transcoded, metadata, status, tags, description,
			download_count, user_id, team_id, project_id, channels
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.Filename, a.OriginalName, a.MimeType, a.Size, a.StoragePath,
		a.ThumbnailPath, transcoded, metadata, string(a.Status), tags, a.Description,
		a.DownloadCount, a.UserID, a.TeamID, a.ProjectID, channels,
	)
	if err != nil {
		return fmt.Errorf("insert asset %s: %w", a.ID, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Asset, error) {
	var (
		a          Asset
		transcoded []byte
		metadata   []byte
		tags       []byte
		channels   []byte
		status     string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, filename, original_name, mime_type, size, storage_path,
		       thumbnail_path, transcoded, metadata, status, tags, description,
		       download_count, user_id, team_id, project_id, channels,
		       created_at, updated_at
		FROM assets WHERE id = $1`, id,
	).Scan(
		&a.ID, &a.Filename, &a.OriginalName, &a.MimeType, &a.Size, &a.StoragePath,
		&a.ThumbnailPath, &transcoded, &metadata, &status, &tags, &a.Description,
		&a.DownloadCount, &a.UserID, &a.TeamID, &a.ProjectID, &channels,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset %s: %w", id, err)
	}
	a.Status = Status(status)
	if err := unmarshalInto(transcoded, &a.Transcoded); err != nil {
		return nil, err
	}
	if err := unmarshalInto(metadata, &a.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalInto(tags, &a.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalInto(channels, &a.Channels); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) SetStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE assets SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateDerived(ctx context.Context, id string, d Derived) error {
	transcoded, err := jsonOrNil(d.Transcoded)
	if err != nil {
		return err
	}
	metadata, err := jsonOrNil(d.Metadata)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE assets
		SET thumbnail_path = $2, transcoded = $3, metadata = $4, status = $5,
		    updated_at = now()
		WHERE id = $1`,
		id, d.ThumbnailPath, transcoded, metadata, string(d.Status))
	if err != nil {
		return fmt.Errorf("update derived fields for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func jsonOrNil(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]string:
		if t == nil {
			return nil, nil
		}
	case []string:
		if t == nil {
			return nil, nil
		}
	case *Metadata:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	return b, nil
}

func unmarshalInto(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal field: %w", err)
	}
	return nil
}
