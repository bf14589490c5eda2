package musicmeta

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the music-meta library
type Service interface {
	// Upload pipeline
	UploadAssets(ctx context.Context, ownerID uuid.UUID, files map[AssetSlot]File) (map[AssetSlot]UploadResult, error)
	UploadMusic(ctx context.Context, req UploadMusicRequest) (*MusicRecord, error)

	// Music record operations
	CreateMusic(ctx context.Context, req CreateMusicRequest) (*MusicRecord, error)
	GetMusic(ctx context.Context, id uuid.UUID) (*MusicRecord, error)
	UpdateMusic(ctx context.Context, req UpdateMusicRequest) (*MusicRecord, error)
	DeleteMusic(ctx context.Context, id uuid.UUID) error

	// Query and listing
	ListMusic(ctx context.Context, req ListMusicRequest) (*MusicPage, error)
	ListMyMusic(ctx context.Context, ownerID uuid.UUID) ([]*MusicRecord, error)
	Recommendations(ctx context.Context, id uuid.UUID) ([]*MusicRecord, error)
	GetMusicWithRecommendations(ctx context.Context, id uuid.UUID) (*MusicRecord, []*MusicRecord, error)

	// Social interactions
	LikeMusic(ctx context.Context, musicID, userID uuid.UUID) (*LikeResult, error)
	RateMusic(ctx context.Context, musicID, userID uuid.UUID, value int) (*RatingSummary, error)
	CommentOnMusic(ctx context.Context, musicID, userID uuid.UUID, body string) (*Comment, error)
	LikedSongs(ctx context.Context, userID uuid.UUID) ([]LikedSong, error)

	// User profile assets
	UploadProfilePicture(ctx context.Context, userID uuid.UUID, file File) (string, error)
}
