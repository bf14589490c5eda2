package musicmeta

import "github.com/google/uuid"

// Request/Response DTOs

// MusicMetadata carries the textual fields of a record. Update replaces
// these fields wholesale.
type MusicMetadata struct {
	SongName   string `json:"songName"`
	SingerName string `json:"singerName"`
	MusicStyle string `json:"musicStyle"`
}

// UploadMusicRequest contains parameters for the full upload-and-create
// pipeline: files are stored first, then the record is composed from the
// results. Any of the three slots may be omitted.
type UploadMusicRequest struct {
	Metadata  MusicMetadata
	Files     map[AssetSlot]File
	OwnerID   uuid.UUID
	OwnerName string
}

// CreateMusicRequest contains parameters for composing and persisting a
// record from already-completed uploads. Slots missing from Uploads default
// to absent.
type CreateMusicRequest struct {
	Metadata  MusicMetadata
	Uploads   map[AssetSlot]UploadResult
	OwnerID   uuid.UUID
	OwnerName string
}

// UpdateMusicRequest contains parameters for editing a record. Slots present
// in Uploads replace the stored URL (after best-effort eviction of the local
// copy); slots absent from Uploads are left untouched.
type UpdateMusicRequest struct {
	ID       uuid.UUID
	Metadata MusicMetadata
	Uploads  map[AssetSlot]UploadResult
}

// ListMusicRequest contains parameters for filtered, paginated listing.
type ListMusicRequest struct {
	Filter MusicFilter
	Page   PageOptions
}
