package musicmeta

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAllStoresEveryField(t *testing.T) {
	store := newStubStore()
	uploader := NewUploader(newTestGateway(t, store))
	ownerID := uuid.New()

	results, err := uploader.UploadAll(context.Background(), ownerID, map[AssetSlot]File{
		SlotAudio: testFile("song.mp3", "audio/mpeg", "audio"),
		SlotImage: testFile("cover.png", "image/png", "image"),
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Contains(t, results, SlotAudio)
	assert.Contains(t, results, SlotImage)
	assert.NotContains(t, results, SlotBackground, "absent slot must not appear as a placeholder")
	assert.Len(t, store.uploads, 2)
}

func TestUploadAllEmptyInput(t *testing.T) {
	uploader := NewUploader(newTestGateway(t, newStubStore()))

	results, err := uploader.UploadAll(context.Background(), uuid.New(), map[AssetSlot]File{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUploadAllFailsFast(t *testing.T) {
	store := newStubStore()
	uploader := NewUploader(newTestGateway(t, store))

	// The image slot uploads first in the fixed order; the audio payload is
	// rejected by validation, so the run stops there.
	_, err := uploader.UploadAll(context.Background(), uuid.New(), map[AssetSlot]File{
		SlotImage: testFile("cover.png", "image/png", "image"),
		SlotAudio: testFile("song.exe", "application/x-dosexec", "nope"),
	})
	require.Error(t, err)

	var partial *PartialUploadError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, SlotAudio, partial.Failed)
	assert.Contains(t, partial.Uploaded, SlotImage, "completed uploads are reported")
	assert.ErrorIs(t, err, ErrInvalidAsset)

	assert.Len(t, store.uploads, 1, "completed objects are not rolled back")
}

func TestUploadAllBackendFailureCarriesStorageError(t *testing.T) {
	store := newStubStore()
	store.uploadErr = errors.New("unreachable")
	uploader := NewUploader(newTestGateway(t, store))

	_, err := uploader.UploadAll(context.Background(), uuid.New(), map[AssetSlot]File{
		SlotAudio: testFile("song.mp3", "audio/mpeg", "audio"),
	})
	require.Error(t, err)

	var partial *PartialUploadError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, partial.Uploaded)
	assert.ErrorIs(t, err, ErrStorageWriteFailed)
}

func TestUploadOrder(t *testing.T) {
	files := map[AssetSlot]File{
		AssetSlot("zeta"):  {},
		SlotBackground:     {},
		AssetSlot("alpha"): {},
		SlotAudio:          {},
	}

	order := uploadOrder(files)
	assert.Equal(t, []AssetSlot{SlotAudio, SlotBackground, AssetSlot("alpha"), AssetSlot("zeta")}, order)
}
