package postgres

import "context"

// Schema holds the DDL for the music and users tables. Deployments that
// manage migrations elsewhere can ignore it; EnsureSchema applies it for
// development and test databases.
const Schema = `
	CREATE TABLE IF NOT EXISTS music (
		id UUID PRIMARY KEY,
		song_name VARCHAR(255) NOT NULL,
		singer_name VARCHAR(255) NOT NULL,
		music_style VARCHAR(100) NOT NULL,
		user_name VARCHAR(255) NOT NULL,
		created_by UUID NOT NULL,
		music_image TEXT,
		music_audio TEXT,
		music_background TEXT,
		likes JSONB NOT NULL DEFAULT '[]'::jsonb,
		ratings JSONB NOT NULL DEFAULT '[]'::jsonb,
		comments JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_music_created_by ON music (created_by);
	CREATE INDEX IF NOT EXISTS idx_music_style ON music (music_style);

	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		profile_picture TEXT,
		liked_songs JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// EnsureSchema creates the tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}
