package musicmeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebox/music-meta/pkg/musicmeta/urlstrategy"
)

// stubStore records uploads and can be programmed to fail.
type stubStore struct {
	uploads   map[string]UploadParams
	deleted   []string
	uploadErr error
}

func newStubStore() *stubStore {
	return &stubStore{uploads: make(map[string]UploadParams)}
}

func (s *stubStore) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return s.UploadWithParams(ctx, reader, UploadParams{ObjectKey: objectKey})
}

func (s *stubStore) UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return err
	}
	s.uploads[params.ObjectKey] = params
	return nil
}

func (s *stubStore) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) Delete(ctx context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *stubStore) GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error) {
	return nil, errors.New("not implemented")
}

func fixedClock(millis int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(millis) }
}

func testFile(name, mimeType, content string) File {
	return File{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(content)),
		Reader:   strings.NewReader(content),
	}
}

func newTestGateway(t *testing.T, store BlobStore, opts ...GatewayOption) *Gateway {
	t.Helper()
	opts = append([]GatewayOption{WithGatewayNow(fixedClock(1700000000000))}, opts...)
	g, err := NewGateway("test", store, urlstrategy.NewPrefixStrategy("http://localhost/assets"), opts...)
	require.NoError(t, err)
	return g
}

func TestNewGatewayRequiresCollaborators(t *testing.T) {
	_, err := NewGateway("test", nil, urlstrategy.NewPrefixStrategy("http://x"))
	assert.Error(t, err)

	_, err = NewGateway("test", newStubStore(), nil)
	assert.Error(t, err)
}

func TestStoreBuildsTimestampedKey(t *testing.T) {
	store := newStubStore()
	gateway := newTestGateway(t, store)
	ownerID := uuid.New()

	res, err := gateway.Store(context.Background(), testFile("my track.mp3", "audio/mpeg", "bytes"), ownerID, SlotAudio)
	require.NoError(t, err)

	wantKey := fmt.Sprintf("uploads/audio/%s/1700000000000-my_track.mp3", ownerID)
	assert.Equal(t, wantKey, res.Key)
	assert.Equal(t, "http://localhost/assets/"+wantKey, res.URL)
	assert.Equal(t, SlotAudio, res.Slot)

	stored, ok := store.uploads[wantKey]
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", stored.MimeType)
}

func TestStoreSlotFolders(t *testing.T) {
	tests := []struct {
		slot   AssetSlot
		folder string
	}{
		{SlotImage, "uploads/images"},
		{SlotAudio, "uploads/audio"},
		{SlotBackground, "uploads/backgrounds"},
		{AssetSlot("mystery"), "uploads/others"},
	}

	for _, tt := range tests {
		t.Run(string(tt.slot), func(t *testing.T) {
			store := newStubStore()
			gateway := newTestGateway(t, store)

			res, err := gateway.Store(context.Background(), testFile("f.png", "image/png", "x"), uuid.New(), tt.slot)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(res.Key, tt.folder+"/"), "key %q should start with folder %q", res.Key, tt.folder)
		})
	}
}

func TestStoreValidation(t *testing.T) {
	gateway := newTestGateway(t, newStubStore())
	ownerID := uuid.New()

	tests := []struct {
		name string
		file File
	}{
		{"missing name", File{MimeType: "audio/mpeg", Size: 10, Reader: strings.NewReader("x")}},
		{"missing reader", File{Name: "a.mp3", MimeType: "audio/mpeg", Size: 10}},
		{"disallowed mime", testFile("a.exe", "application/octet-stream", "x")},
		{"zero size", File{Name: "a.mp3", MimeType: "audio/mpeg", Size: 0, Reader: strings.NewReader("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gateway.Store(context.Background(), tt.file, ownerID, SlotAudio)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAsset)

			var assetErr *AssetError
			assert.ErrorAs(t, err, &assetErr)
		})
	}
}

func TestStoreSizeCap(t *testing.T) {
	gateway := newTestGateway(t, newStubStore(), WithMaxUploadSize(4))

	_, err := gateway.Store(context.Background(), testFile("a.mp3", "audio/mpeg", "12345"), uuid.New(), SlotAudio)
	assert.ErrorIs(t, err, ErrInvalidAsset)

	_, err = gateway.Store(context.Background(), testFile("a.mp3", "audio/mpeg", "1234"), uuid.New(), SlotAudio)
	assert.NoError(t, err)
}

func TestStoreMimeAllowlistIsCaseInsensitive(t *testing.T) {
	gateway := newTestGateway(t, newStubStore())

	_, err := gateway.Store(context.Background(), testFile("a.mp3", "Audio/MPEG", "x"), uuid.New(), SlotAudio)
	assert.NoError(t, err)
}

func TestStoreValidationFailsBeforeUpload(t *testing.T) {
	store := newStubStore()
	store.uploadErr = errors.New("backend down")
	gateway := newTestGateway(t, store)

	// The invalid MIME type must be reported even though the backend would
	// also have failed.
	_, err := gateway.Store(context.Background(), testFile("a.bin", "application/zip", "x"), uuid.New(), SlotAudio)
	assert.ErrorIs(t, err, ErrInvalidAsset)
	assert.NotErrorIs(t, err, ErrStorageWriteFailed)
}

func TestStoreWrapsBackendFailure(t *testing.T) {
	store := newStubStore()
	store.uploadErr = errors.New("connection reset")
	gateway := newTestGateway(t, store)

	_, err := gateway.Store(context.Background(), testFile("a.mp3", "audio/mpeg", "x"), uuid.New(), SlotAudio)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageWriteFailed)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "test", storageErr.Backend)
	assert.Equal(t, "upload", storageErr.Op)
}

func TestStoreMapsContextErrors(t *testing.T) {
	store := newStubStore()
	store.uploadErr = context.DeadlineExceeded
	gateway := newTestGateway(t, store)

	_, err := gateway.Store(context.Background(), testFile("a.mp3", "audio/mpeg", "x"), uuid.New(), SlotAudio)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c.mp3", sanitizeFileName("a/b c.mp3"))
	assert.Equal(t, "track.mp3", sanitizeFileName("track.mp3"))
}
