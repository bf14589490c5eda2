package musicmeta

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// MusicRepository defines the interface for music record persistence.
//
// AddLike, UpsertRating and AppendComment are atomic per record: the
// uniqueness checks live inside the repository rather than in a caller's
// read-modify-write cycle.
type MusicRepository interface {
	CreateMusic(ctx context.Context, record *MusicRecord) error
	GetMusic(ctx context.Context, id uuid.UUID) (*MusicRecord, error)
	UpdateMusic(ctx context.Context, record *MusicRecord) error
	DeleteMusic(ctx context.Context, id uuid.UUID) error

	// ListMusic returns one page of records matching filter.
	ListMusic(ctx context.Context, filter MusicFilter, page PageOptions) (*MusicPage, error)

	// ListMusicByOwner returns all records created by ownerID, newest first.
	ListMusicByOwner(ctx context.Context, ownerID uuid.UUID) ([]*MusicRecord, error)

	// ListMusicByStyle returns records sharing a style, excluding exclude.
	ListMusicByStyle(ctx context.Context, style string, exclude uuid.UUID) ([]*MusicRecord, error)

	// AddLike appends userID to the record's likes set if absent and
	// returns the updated like count. Returns ErrAlreadyLiked without
	// mutation when the user is already present.
	AddLike(ctx context.Context, musicID, userID uuid.UUID) (int, error)

	// UpsertRating overwrites the user's existing rating entry in place
	// (preserving its sequence position, refreshing its timestamp) or
	// appends a new one, then returns the full ratings sequence.
	UpsertRating(ctx context.Context, musicID uuid.UUID, rating Rating) ([]Rating, error)

	// AppendComment appends the comment to the record's comment sequence.
	AppendComment(ctx context.Context, musicID uuid.UUID, comment Comment) error

	// ProjectSongs returns the songName/singerName projection for ids,
	// preserving order and silently skipping ids that no longer resolve.
	ProjectSongs(ctx context.Context, ids []uuid.UUID) ([]LikedSong, error)
}

// UserRepository defines the interface for user profile persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *UserProfile) error
	GetUser(ctx context.Context, id uuid.UUID) (*UserProfile, error)

	// AddLikedSong appends musicID to the user's likedSongs if absent and
	// returns the updated sequence. Appending an already-present id is a
	// no-op, not an error.
	AddLikedSong(ctx context.Context, userID, musicID uuid.UUID) ([]uuid.UUID, error)

	// SetProfilePicture overwrites the user's profile picture URL.
	SetProfilePicture(ctx context.Context, userID uuid.UUID, url string) error
}

// AssetCache is a best-effort local mirror of stored assets. Eviction
// failures are logged and never abort the surrounding operation.
type AssetCache interface {
	// Evict removes the locally cached copy for the given asset URL.
	Evict(ctx context.Context, assetURL string) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
