package musicmeta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tunebox/music-meta/pkg/musicmeta/urlstrategy"
)

// DefaultMaxUploadSize caps a single payload at 30 MiB.
const DefaultMaxUploadSize int64 = 30 << 20

// DefaultAllowedMimes is the allow-listed set of upload content types.
var DefaultAllowedMimes = []string{
	"image/jpeg",
	"image/png",
	"image/jpg",
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
}

// Gateway writes binary payloads to a blob store under time-addressed keys
// and returns durable public URLs. It performs no retries and no
// read-after-write verification; a new timestamped key is minted on every
// call, so prior uploads for the same owner are never overwritten (and never
// deleted — orphaned objects are an accepted tradeoff).
type Gateway struct {
	store        BlobStore
	backendName  string
	urls         urlstrategy.URLStrategy
	maxSize      int64
	allowedMimes map[string]struct{}
	now          func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithMaxUploadSize overrides the payload size cap.
func WithMaxUploadSize(max int64) GatewayOption {
	return func(g *Gateway) {
		if max > 0 {
			g.maxSize = max
		}
	}
}

// WithAllowedMimes overrides the MIME allowlist.
func WithAllowedMimes(mimes []string) GatewayOption {
	return func(g *Gateway) {
		g.allowedMimes = make(map[string]struct{}, len(mimes))
		for _, m := range mimes {
			g.allowedMimes[strings.ToLower(m)] = struct{}{}
		}
	}
}

// WithGatewayNow overrides the clock used for key generation. Used in tests.
func WithGatewayNow(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway creates a gateway over the given blob store. backendName is
// reported in storage errors.
func NewGateway(backendName string, store BlobStore, urls urlstrategy.URLStrategy, opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if urls == nil {
		return nil, fmt.Errorf("url strategy is required")
	}

	g := &Gateway{
		store:       store,
		backendName: backendName,
		urls:        urls,
		maxSize:     DefaultMaxUploadSize,
		now:         time.Now,
	}
	WithAllowedMimes(DefaultAllowedMimes)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Store validates the payload, writes it to the blob store and returns the
// durable URL and key. Validation failures surface before any network call.
func (g *Gateway) Store(ctx context.Context, file File, ownerID uuid.UUID, slot AssetSlot) (UploadResult, error) {
	if err := g.validate(file); err != nil {
		return UploadResult{}, &AssetError{Slot: slot, FileName: file.Name, Err: err}
	}

	key := g.objectKey(file.Name, ownerID, slot)

	err := g.store.UploadWithParams(ctx, file.Reader, UploadParams{
		ObjectKey: key,
		MimeType:  file.MimeType,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return UploadResult{}, fmt.Errorf("%w: uploading key %s: %v", ErrTimeout, key, err)
		}
		return UploadResult{}, &StorageError{Backend: g.backendName, Key: key, Op: "upload", Err: err}
	}

	url, err := g.urls.PublicURL(ctx, key)
	if err != nil {
		return UploadResult{}, &StorageError{Backend: g.backendName, Key: key, Op: "url", Err: err}
	}

	return UploadResult{Slot: slot, URL: url, Key: key}, nil
}

func (g *Gateway) validate(file File) error {
	if file.Name == "" {
		return fmt.Errorf("%w: missing file name", ErrInvalidAsset)
	}
	if file.Reader == nil {
		return fmt.Errorf("%w: missing payload", ErrInvalidAsset)
	}
	if _, ok := g.allowedMimes[strings.ToLower(file.MimeType)]; !ok {
		return fmt.Errorf("%w: file type %q not allowed", ErrInvalidAsset, file.MimeType)
	}
	if file.Size <= 0 {
		return fmt.Errorf("%w: unknown payload size", ErrInvalidAsset)
	}
	if file.Size > g.maxSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds limit of %d", ErrInvalidAsset, file.Size, g.maxSize)
	}
	return nil
}

// objectKey builds `{folder}/{ownerID}/{timestamp}-{fileName}`. The
// timestamp keeps keys collision-resistant across repeat uploads by the same
// owner.
func (g *Gateway) objectKey(fileName string, ownerID uuid.UUID, slot AssetSlot) string {
	return fmt.Sprintf("%s/%s/%d-%s", slot.Folder(), ownerID, g.now().UnixMilli(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(name)
}
