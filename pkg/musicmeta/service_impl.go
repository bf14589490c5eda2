package musicmeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tunebox/music-meta/pkg/musicmeta/urlstrategy"
)

// service implements the Service interface
type service struct {
	music    MusicRepository
	users    UserRepository
	cache    AssetCache
	logger   *slog.Logger
	now      func() time.Time
	uploader *Uploader

	// gateway construction inputs, applied in New
	blobStore    BlobStore
	backendName  string
	urls         urlstrategy.URLStrategy
	gatewayOpts  []GatewayOption
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithMusicRepository sets the music record repository
func WithMusicRepository(repo MusicRepository) Option {
	return func(s *service) {
		s.music = repo
	}
}

// WithUserRepository sets the user profile repository
func WithUserRepository(repo UserRepository) Option {
	return func(s *service) {
		s.users = repo
	}
}

// WithBlobStore sets the object storage backend the gateway writes to
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		s.backendName = name
		s.blobStore = store
	}
}

// WithURLStrategy sets the durable URL construction strategy
func WithURLStrategy(urls urlstrategy.URLStrategy) Option {
	return func(s *service) {
		s.urls = urls
	}
}

// WithAssetCache sets the local asset mirror used for best-effort cleanup
func WithAssetCache(cache AssetCache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithGatewayOptions forwards options to the gateway (size cap, allowlist)
func WithGatewayOptions(opts ...GatewayOption) Option {
	return func(s *service) {
		s.gatewayOpts = append(s.gatewayOpts, opts...)
	}
}

// WithLogger sets the logger; defaults to slog.Default
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithNow overrides the service clock. Used in tests.
func WithNow(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now: time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.music == nil {
		return nil, fmt.Errorf("music repository is required")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.urls == nil {
		return nil, fmt.Errorf("url strategy is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	gatewayOpts := append([]GatewayOption{WithGatewayNow(s.now)}, s.gatewayOpts...)
	gateway, err := NewGateway(s.backendName, s.blobStore, s.urls, gatewayOpts...)
	if err != nil {
		return nil, err
	}
	s.uploader = NewUploader(gateway)

	return s, nil
}

// Upload pipeline

func (s *service) UploadAssets(ctx context.Context, ownerID uuid.UUID, files map[AssetSlot]File) (map[AssetSlot]UploadResult, error) {
	return s.uploader.UploadAll(ctx, ownerID, files)
}

func (s *service) UploadMusic(ctx context.Context, req UploadMusicRequest) (*MusicRecord, error) {
	uploads, err := s.uploader.UploadAll(ctx, req.OwnerID, req.Files)
	if err != nil {
		return nil, err
	}

	return s.CreateMusic(ctx, CreateMusicRequest{
		Metadata:  req.Metadata,
		Uploads:   uploads,
		OwnerID:   req.OwnerID,
		OwnerName: req.OwnerName,
	})
}

// Music record operations

func (s *service) CreateMusic(ctx context.Context, req CreateMusicRequest) (*MusicRecord, error) {
	now := s.now().UTC()
	record := &MusicRecord{
		ID:         uuid.New(),
		SongName:   req.Metadata.SongName,
		SingerName: req.Metadata.SingerName,
		MusicStyle: req.Metadata.MusicStyle,
		UserName:   req.OwnerName,
		CreatedBy:  req.OwnerID,
		Likes:      []uuid.UUID{},
		Ratings:    []Rating{},
		Comments:   []Comment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Slots missing from Uploads stay absent; fewer than three assets is
	// permitted.
	for slot, res := range req.Uploads {
		record.SetAssetURL(slot, res.URL)
	}

	if err := s.music.CreateMusic(ctx, record); err != nil {
		return nil, &MusicError{MusicID: record.ID, Op: "create", Err: storeErr(err)}
	}

	return record, nil
}

func (s *service) GetMusic(ctx context.Context, id uuid.UUID) (*MusicRecord, error) {
	record, err := s.music.GetMusic(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return record, nil
}

func (s *service) UpdateMusic(ctx context.Context, req UpdateMusicRequest) (*MusicRecord, error) {
	record, err := s.music.GetMusic(ctx, req.ID)
	if err != nil {
		return nil, storeErr(err)
	}

	// Non-asset metadata is replaced wholesale.
	record.SongName = req.Metadata.SongName
	record.SingerName = req.Metadata.SingerName
	record.MusicStyle = req.Metadata.MusicStyle

	for slot, res := range req.Uploads {
		s.evictCached(ctx, record.AssetURL(slot))
		record.SetAssetURL(slot, res.URL)
	}
	record.UpdatedAt = s.now().UTC()

	if err := s.music.UpdateMusic(ctx, record); err != nil {
		return nil, &MusicError{MusicID: req.ID, Op: "update", Err: storeErr(err)}
	}

	return record, nil
}

func (s *service) DeleteMusic(ctx context.Context, id uuid.UUID) error {
	record, err := s.music.GetMusic(ctx, id)
	if err != nil {
		return storeErr(err)
	}

	// Remote objects are left in place; only local mirror copies go.
	for _, slot := range SlotOrder {
		s.evictCached(ctx, record.AssetURL(slot))
	}

	if err := s.music.DeleteMusic(ctx, id); err != nil {
		return &MusicError{MusicID: id, Op: "delete", Err: storeErr(err)}
	}
	return nil
}

// Query and listing

func (s *service) ListMusic(ctx context.Context, req ListMusicRequest) (*MusicPage, error) {
	page, err := s.music.ListMusic(ctx, req.Filter, req.Page.Normalize())
	if err != nil {
		return nil, storeErr(err)
	}
	return page, nil
}

func (s *service) ListMyMusic(ctx context.Context, ownerID uuid.UUID) ([]*MusicRecord, error) {
	records, err := s.music.ListMusicByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return records, nil
}

func (s *service) Recommendations(ctx context.Context, id uuid.UUID) ([]*MusicRecord, error) {
	record, err := s.music.GetMusic(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	related, err := s.music.ListMusicByStyle(ctx, record.MusicStyle, record.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	return related, nil
}

func (s *service) GetMusicWithRecommendations(ctx context.Context, id uuid.UUID) (*MusicRecord, []*MusicRecord, error) {
	record, err := s.music.GetMusic(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	related, err := s.music.ListMusicByStyle(ctx, record.MusicStyle, record.ID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	return record, related, nil
}

// User profile assets

func (s *service) UploadProfilePicture(ctx context.Context, userID uuid.UUID, file File) (string, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return "", storeErr(err)
	}

	res, err := s.uploader.gateway.Store(ctx, file, userID, SlotImage)
	if err != nil {
		return "", err
	}

	if err := s.users.SetProfilePicture(ctx, userID, res.URL); err != nil {
		return "", storeErr(err)
	}
	return res.URL, nil
}

// evictCached removes the local mirror copy for url, if any. Failures are
// logged and never abort the surrounding operation.
func (s *service) evictCached(ctx context.Context, url string) {
	if s.cache == nil || url == "" {
		return
	}
	if err := s.cache.Evict(ctx, url); err != nil {
		s.logger.Warn("failed to evict cached asset", "url", url, "error", err)
	}
}

// storeErr normalizes repository errors: deadline expiry maps to ErrTimeout,
// everything else passes through unchanged.
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
