package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tunebox/music-meta/pkg/musicmeta"
)

// DBTX is an interface that allows us to use either a connection pool or a
// transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements the musicmeta repositories using PostgreSQL. The
// likes, ratings and comments sequences live in JSONB columns; the
// interaction primitives run guarded updates so uniqueness checks happen in
// the store, not in a caller's read-modify-write cycle.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

const musicColumns = `
	id, song_name, singer_name, music_style, user_name, created_by,
	music_image, music_audio, music_background,
	likes, ratings, comments, created_at, updated_at`

// Music record operations

func (r *Repository) CreateMusic(ctx context.Context, record *musicmeta.MusicRecord) error {
	likes, ratings, comments, err := marshalSequences(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO music (
			id, song_name, singer_name, music_style, user_name, created_by,
			music_image, music_audio, music_background,
			likes, ratings, comments, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		record.ID, record.SongName, record.SingerName, record.MusicStyle,
		record.UserName, record.CreatedBy,
		nullIfEmpty(record.MusicImage), nullIfEmpty(record.MusicAudio), nullIfEmpty(record.MusicBackground),
		likes, ratings, comments, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create music", err)
	}
	return nil
}

func (r *Repository) GetMusic(ctx context.Context, id uuid.UUID) (*musicmeta.MusicRecord, error) {
	query := `SELECT` + musicColumns + ` FROM music WHERE id = $1`
	return scanMusic(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) UpdateMusic(ctx context.Context, record *musicmeta.MusicRecord) error {
	likes, ratings, comments, err := marshalSequences(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE music SET
			song_name = $2, singer_name = $3, music_style = $4, user_name = $5,
			music_image = $6, music_audio = $7, music_background = $8,
			likes = $9, ratings = $10, comments = $11, updated_at = $12
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		record.ID, record.SongName, record.SingerName, record.MusicStyle, record.UserName,
		nullIfEmpty(record.MusicImage), nullIfEmpty(record.MusicAudio), nullIfEmpty(record.MusicBackground),
		likes, ratings, comments, record.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update music", err)
	}
	if tag.RowsAffected() == 0 {
		return musicmeta.ErrMusicNotFound
	}
	return nil
}

func (r *Repository) DeleteMusic(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM music WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete music", err)
	}
	if tag.RowsAffected() == 0 {
		return musicmeta.ErrMusicNotFound
	}
	return nil
}

func (r *Repository) ListMusic(ctx context.Context, filter musicmeta.MusicFilter, page musicmeta.PageOptions) (*musicmeta.MusicPage, error) {
	page = page.Normalize()

	where := ""
	args := []interface{}{}
	if filter.Text != "" {
		// Filter text is a literal substring: escape LIKE metacharacters
		// so user input never acts as a pattern.
		pattern := "%" + escapeLike(filter.Text) + "%"
		where = `WHERE song_name ILIKE $1 ESCAPE '\'
			OR singer_name ILIKE $1 ESCAPE '\'
			OR user_name ILIKE $1 ESCAPE '\'`
		args = append(args, pattern)
	}

	query := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total FROM music %s ORDER BY %s LIMIT %d OFFSET %d`,
		musicColumns, where, orderClause(page.SortBy), page.Limit, (page.Page-1)*page.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list music", err)
	}
	defer rows.Close()

	results := []*musicmeta.MusicRecord{}
	total := 0
	for rows.Next() {
		record, rowTotal, err := scanMusicWithTotal(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
		total = rowTotal
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list music", err)
	}

	if total == 0 && page.Page > 1 {
		// Past-the-end pages carry no window rows; fetch the count alone.
		countQuery := "SELECT count(*) FROM music " + where
		if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, r.handlePostgresError("count music", err)
		}
	}

	totalPages := (total + page.Limit - 1) / page.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &musicmeta.MusicPage{
		Results:      results,
		Page:         page.Page,
		Limit:        page.Limit,
		TotalPages:   totalPages,
		TotalResults: total,
	}, nil
}

func (r *Repository) ListMusicByOwner(ctx context.Context, ownerID uuid.UUID) ([]*musicmeta.MusicRecord, error) {
	query := `SELECT` + musicColumns + ` FROM music WHERE created_by = $1 ORDER BY created_at DESC`
	return r.queryMusic(ctx, query, ownerID)
}

func (r *Repository) ListMusicByStyle(ctx context.Context, style string, exclude uuid.UUID) ([]*musicmeta.MusicRecord, error) {
	query := `SELECT` + musicColumns + ` FROM music WHERE music_style = $1 AND id <> $2 ORDER BY created_at DESC`
	return r.queryMusic(ctx, query, style, exclude)
}

func (r *Repository) queryMusic(ctx context.Context, query string, args ...interface{}) ([]*musicmeta.MusicRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("query music", err)
	}
	defer rows.Close()

	var results []*musicmeta.MusicRecord
	for rows.Next() {
		record, err := scanMusic(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("query music", err)
	}
	return results, nil
}

// Interaction primitives

func (r *Repository) AddLike(ctx context.Context, musicID, userID uuid.UUID) (int, error) {
	// Guarded append: the uniqueness check runs inside the statement, so two
	// concurrent likes from the same user cannot both commit.
	query := `
		UPDATE music
		SET likes = likes || to_jsonb($2::text), updated_at = now()
		WHERE id = $1 AND NOT likes @> to_jsonb($2::text)
		RETURNING jsonb_array_length(likes)`

	var count int
	err := r.db.QueryRow(ctx, query, musicID, userID.String()).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, r.handlePostgresError("add like", err)
	}

	// No row updated: distinguish duplicate like from missing record.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM music WHERE id = $1)`, musicID).Scan(&exists); err != nil {
		return 0, r.handlePostgresError("add like", err)
	}
	if exists {
		return 0, musicmeta.ErrAlreadyLiked
	}
	return 0, musicmeta.ErrMusicNotFound
}

func (r *Repository) UpsertRating(ctx context.Context, musicID uuid.UUID, rating musicmeta.Rating) ([]musicmeta.Rating, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, r.handlePostgresError("upsert rating", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT ratings FROM music WHERE id = $1 FOR UPDATE`, musicID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, musicmeta.ErrMusicNotFound
		}
		return nil, r.handlePostgresError("upsert rating", err)
	}

	var ratings []musicmeta.Rating
	if err := json.Unmarshal(raw, &ratings); err != nil {
		return nil, fmt.Errorf("decode ratings for music %s: %w", musicID, err)
	}

	updated := false
	for i := range ratings {
		if ratings[i].UserID == rating.UserID {
			ratings[i].Value = rating.Value
			ratings[i].CreatedAt = rating.CreatedAt
			updated = true
			break
		}
	}
	if !updated {
		ratings = append(ratings, rating)
	}

	encoded, err := json.Marshal(ratings)
	if err != nil {
		return nil, fmt.Errorf("encode ratings for music %s: %w", musicID, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE music SET ratings = $2, updated_at = now() WHERE id = $1`, musicID, encoded); err != nil {
		return nil, r.handlePostgresError("upsert rating", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, r.handlePostgresError("upsert rating", err)
	}

	return ratings, nil
}

func (r *Repository) AppendComment(ctx context.Context, musicID uuid.UUID, comment musicmeta.Comment) error {
	encoded, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("encode comment for music %s: %w", musicID, err)
	}

	query := `UPDATE music SET comments = comments || $2::jsonb, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, musicID, encoded)
	if err != nil {
		return r.handlePostgresError("append comment", err)
	}
	if tag.RowsAffected() == 0 {
		return musicmeta.ErrMusicNotFound
	}
	return nil
}

func (r *Repository) ProjectSongs(ctx context.Context, ids []uuid.UUID) ([]musicmeta.LikedSong, error) {
	if len(ids) == 0 {
		return []musicmeta.LikedSong{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, song_name, singer_name FROM music WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, r.handlePostgresError("project songs", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]musicmeta.LikedSong, len(ids))
	for rows.Next() {
		var song musicmeta.LikedSong
		if err := rows.Scan(&song.ID, &song.SongName, &song.SingerName); err != nil {
			return nil, r.handlePostgresError("project songs", err)
		}
		byID[song.ID] = song
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("project songs", err)
	}

	// Preserve like order; ids that no longer resolve are skipped.
	result := make([]musicmeta.LikedSong, 0, len(ids))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			result = append(result, song)
		}
	}
	return result, nil
}

// User profile operations

func (r *Repository) CreateUser(ctx context.Context, user *musicmeta.UserProfile) error {
	liked, err := json.Marshal(user.LikedSongs)
	if err != nil {
		return fmt.Errorf("encode liked songs for user %s: %w", user.ID, err)
	}

	query := `
		INSERT INTO users (id, name, email, profile_picture, liked_songs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, nullIfEmpty(user.ProfilePicture), liked,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*musicmeta.UserProfile, error) {
	query := `SELECT id, name, email, profile_picture, liked_songs, created_at, updated_at FROM users WHERE id = $1`

	var user musicmeta.UserProfile
	var picture *string
	var liked []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &picture, &liked, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, musicmeta.ErrUserNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}

	if picture != nil {
		user.ProfilePicture = *picture
	}
	if err := json.Unmarshal(liked, &user.LikedSongs); err != nil {
		return nil, fmt.Errorf("decode liked songs for user %s: %w", id, err)
	}
	return &user, nil
}

func (r *Repository) AddLikedSong(ctx context.Context, userID, musicID uuid.UUID) ([]uuid.UUID, error) {
	// Append-if-absent, then return the sequence either way.
	query := `
		UPDATE users
		SET liked_songs = CASE
			WHEN liked_songs @> to_jsonb($2::text) THEN liked_songs
			ELSE liked_songs || to_jsonb($2::text)
		END,
		updated_at = now()
		WHERE id = $1
		RETURNING liked_songs`

	var raw []byte
	err := r.db.QueryRow(ctx, query, userID, musicID.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, musicmeta.ErrUserNotFound
		}
		return nil, r.handlePostgresError("add liked song", err)
	}

	var liked []uuid.UUID
	if err := json.Unmarshal(raw, &liked); err != nil {
		return nil, fmt.Errorf("decode liked songs for user %s: %w", userID, err)
	}
	return liked, nil
}

func (r *Repository) SetProfilePicture(ctx context.Context, userID uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET profile_picture = $2, updated_at = now() WHERE id = $1`, userID, url)
	if err != nil {
		return r.handlePostgresError("set profile picture", err)
	}
	if tag.RowsAffected() == 0 {
		return musicmeta.ErrUserNotFound
	}
	return nil
}

// Helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMusic(row rowScanner) (*musicmeta.MusicRecord, error) {
	record, _, err := scan(row, false)
	return record, err
}

func scanMusicWithTotal(row rowScanner) (*musicmeta.MusicRecord, int, error) {
	return scan(row, true)
}

func scan(row rowScanner, withTotal bool) (*musicmeta.MusicRecord, int, error) {
	var record musicmeta.MusicRecord
	var image, audio, background *string
	var likes, ratings, comments []byte
	var total int

	dest := []interface{}{
		&record.ID, &record.SongName, &record.SingerName, &record.MusicStyle,
		&record.UserName, &record.CreatedBy,
		&image, &audio, &background,
		&likes, &ratings, &comments, &record.CreatedAt, &record.UpdatedAt,
	}
	if withTotal {
		dest = append(dest, &total)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, musicmeta.ErrMusicNotFound
		}
		return nil, 0, fmt.Errorf("scan music record: %w", err)
	}

	if image != nil {
		record.MusicImage = *image
	}
	if audio != nil {
		record.MusicAudio = *audio
	}
	if background != nil {
		record.MusicBackground = *background
	}

	if err := json.Unmarshal(likes, &record.Likes); err != nil {
		return nil, 0, fmt.Errorf("decode likes for music %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(ratings, &record.Ratings); err != nil {
		return nil, 0, fmt.Errorf("decode ratings for music %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(comments, &record.Comments); err != nil {
		return nil, 0, fmt.Errorf("decode comments for music %s: %w", record.ID, err)
	}

	return &record, total, nil
}

func marshalSequences(record *musicmeta.MusicRecord) (likes, ratings, comments []byte, err error) {
	if likes, err = json.Marshal(record.Likes); err != nil {
		return nil, nil, nil, fmt.Errorf("encode likes for music %s: %w", record.ID, err)
	}
	if ratings, err = json.Marshal(record.Ratings); err != nil {
		return nil, nil, nil, fmt.Errorf("encode ratings for music %s: %w", record.ID, err)
	}
	if comments, err = json.Marshal(record.Comments); err != nil {
		return nil, nil, nil, fmt.Errorf("encode comments for music %s: %w", record.ID, err)
	}
	return likes, ratings, comments, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// escapeLike escapes LIKE metacharacters so a filter value always matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// orderClause maps a sortBy token onto a whitelisted column so the sort
// field can never inject SQL.
func orderClause(sortBy string) string {
	field := "created_at"
	direction := "ASC"

	parts := strings.SplitN(sortBy, ":", 2)
	switch parts[0] {
	case "songName":
		field = "song_name"
	case "singerName":
		field = "singer_name"
	case "userName":
		field = "user_name"
	case "createdAt", "":
		field = "created_at"
	}
	if len(parts) == 2 && parts[1] == "desc" {
		direction = "DESC"
	}

	return field + " " + direction
}
