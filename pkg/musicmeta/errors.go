package musicmeta

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrMusicNotFound indicates a music record was not found
	ErrMusicNotFound = errors.New("music not found")

	// ErrUserNotFound indicates a user profile was not found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidAsset indicates a payload failed mime or size validation
	// before any storage call was made
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrStorageWriteFailed indicates an object store write failed at the
	// transport level; no retry is attempted here
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrAlreadyLiked indicates the user already likes the record
	ErrAlreadyLiked = errors.New("song already liked")

	// ErrInvalidRating indicates a rating value outside [1,5]
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrTimeout indicates a store or storage call exceeded the caller's
	// deadline
	ErrTimeout = errors.New("operation timed out")
)

// AssetError reports a rejected upload payload. It matches ErrInvalidAsset
// under errors.Is.
type AssetError struct {
	Slot     AssetSlot
	FileName string
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s (%s): %v", e.Slot, e.FileName, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

func (e *AssetError) Is(target error) bool {
	return target == ErrInvalidAsset
}

// StorageError represents a failed object store operation. It matches
// ErrStorageWriteFailed under errors.Is and carries the transport error.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageWriteFailed
}

// MusicError represents an error related to music record operations
type MusicError struct {
	MusicID uuid.UUID
	Op      string
	Err     error
}

func (e *MusicError) Error() string {
	return fmt.Sprintf("music operation %s failed for record %s: %v", e.Op, e.MusicID, e.Err)
}

func (e *MusicError) Unwrap() error {
	return e.Err
}

// PartialUploadError reports a multi-field upload that failed part way
// through. Uploaded holds the results already written to the object store;
// those objects are not retracted.
type PartialUploadError struct {
	Failed   AssetSlot
	Uploaded map[AssetSlot]UploadResult
	Err      error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("upload failed at field %s after %d uploads: %v", e.Failed, len(e.Uploaded), e.Err)
}

func (e *PartialUploadError) Unwrap() error {
	return e.Err
}
