package musicmeta

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// AssetSlot identifies one of the fixed file categories a music record may
// carry. Slot values match the inbound multipart field names.
type AssetSlot string

// Asset slot constants (typed).
const (
	SlotImage      AssetSlot = "musicImage"
	SlotAudio      AssetSlot = "musicAudio"
	SlotBackground AssetSlot = "musicBackground"
)

// SlotOrder is the stable iteration order used by the upload orchestrator.
var SlotOrder = []AssetSlot{SlotImage, SlotAudio, SlotBackground}

// Folder returns the object-store folder for a slot. Unknown slots are routed
// to a designated "others" folder rather than rejected.
func (s AssetSlot) Folder() string {
	switch s {
	case SlotImage:
		return "uploads/images"
	case SlotAudio:
		return "uploads/audio"
	case SlotBackground:
		return "uploads/backgrounds"
	default:
		return "uploads/others"
	}
}

// Known reports whether the slot is one of the three fixed asset categories.
func (s AssetSlot) Known() bool {
	return s == SlotImage || s == SlotAudio || s == SlotBackground
}

// File is an inbound upload payload. Size must be the exact byte count as
// reported by the transport layer; it is checked against the configured
// maximum before any network call.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// UploadResult is the transient outcome of storing one file. It is folded
// into a MusicRecord's asset fields and not persisted on its own.
type UploadResult struct {
	Slot AssetSlot `json:"slot"`
	URL  string    `json:"url"`
	Key  string    `json:"key"`
}

// Rating is one user's rating of a record. At most one entry per user exists
// in a record's ratings sequence.
type Rating struct {
	UserID    uuid.UUID `json:"userId"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is an append-only entry in a record's comment sequence.
type Comment struct {
	UserID    uuid.UUID `json:"userId"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// MusicRecord is the persisted metadata document for one piece of music.
// Asset fields hold a durable public URL, or the empty string when the slot
// was never uploaded.
type MusicRecord struct {
	ID              uuid.UUID `json:"id"`
	SongName        string    `json:"songName"`
	SingerName      string    `json:"singerName"`
	MusicStyle      string    `json:"musicStyle"`
	UserName        string    `json:"userName"`
	CreatedBy       uuid.UUID `json:"createdBy"`
	MusicImage      string    `json:"musicImage,omitempty"`
	MusicAudio      string    `json:"musicAudio,omitempty"`
	MusicBackground string    `json:"musicBackground,omitempty"`
	Likes           []uuid.UUID `json:"likes"`
	Ratings         []Rating    `json:"ratings"`
	Comments        []Comment   `json:"comments"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// AssetURL returns the stored URL for a slot, or "" when absent.
func (m *MusicRecord) AssetURL(slot AssetSlot) string {
	switch slot {
	case SlotImage:
		return m.MusicImage
	case SlotAudio:
		return m.MusicAudio
	case SlotBackground:
		return m.MusicBackground
	default:
		return ""
	}
}

// SetAssetURL overwrites the URL for a known slot. Unknown slots are ignored.
func (m *MusicRecord) SetAssetURL(slot AssetSlot, url string) {
	switch slot {
	case SlotImage:
		m.MusicImage = url
	case SlotAudio:
		m.MusicAudio = url
	case SlotBackground:
		m.MusicBackground = url
	}
}

// LikedBy reports whether userID is present in the record's likes set.
func (m *MusicRecord) LikedBy(userID uuid.UUID) bool {
	for _, id := range m.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// AverageRating is the arithmetic mean of all rating values. An empty
// ratings sequence yields 0.
func (m *MusicRecord) AverageRating() float64 {
	if len(m.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range m.Ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(m.Ratings))
}

// UserProfile is the referenced user entity. The record service does not own
// it; only likedSongs and profilePicture are mutated here.
type UserProfile struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	ProfilePicture string      `json:"profilePicture,omitempty"`
	LikedSongs     []uuid.UUID `json:"likedSongs"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// PublicUser is the subset of a profile returned by interaction operations.
type PublicUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LikeResult is returned by LikeMusic.
type LikeResult struct {
	LikeCount  int         `json:"songLikes"`
	User       PublicUser  `json:"user"`
	LikedSongs []uuid.UUID `json:"likedSongs"`
}

// RatingSummary is returned by RateMusic.
type RatingSummary struct {
	AverageRating float64  `json:"averageRating"`
	Ratings       []Rating `json:"ratings"`
}

// LikedSong is the songName/singerName projection used by LikedSongs.
type LikedSong struct {
	ID         uuid.UUID `json:"id"`
	SongName   string    `json:"songName"`
	SingerName string    `json:"singerName"`
}

// MusicFilter selects records whose songName, singerName or userName
// case-insensitively contains Text. Text is always treated as a literal
// substring, never as a pattern. An empty filter matches everything.
type MusicFilter struct {
	Text string
}

// Pagination defaults.
const (
	DefaultPageLimit = 10
	DefaultSortBy    = "createdAt:desc"
)

// PageOptions controls list pagination. Zero values fall back to defaults.
// SortBy uses "field" or "field:desc" syntax over songName, singerName,
// userName and createdAt.
type PageOptions struct {
	SortBy string
	Limit  int
	Page   int
}

// Normalize returns a copy with defaults applied.
func (p PageOptions) Normalize() PageOptions {
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

// MusicPage is one page of list results.
type MusicPage struct {
	Results      []*MusicRecord `json:"results"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
}
