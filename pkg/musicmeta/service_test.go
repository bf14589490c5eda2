package musicmeta_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebox/music-meta/pkg/musicmeta"
	repomemory "github.com/tunebox/music-meta/pkg/musicmeta/repo/memory"
	storagememory "github.com/tunebox/music-meta/pkg/musicmeta/storage/memory"
	"github.com/tunebox/music-meta/pkg/musicmeta/urlstrategy"
)

type testEnv struct {
	svc  musicmeta.Service
	repo *repomemory.Repository
}

func newTestEnv(t *testing.T, opts ...musicmeta.Option) *testEnv {
	t.Helper()
	repo := repomemory.New()

	base := []musicmeta.Option{
		musicmeta.WithMusicRepository(repo),
		musicmeta.WithUserRepository(repo),
		musicmeta.WithBlobStore("memory", storagememory.New()),
		musicmeta.WithURLStrategy(urlstrategy.NewPrefixStrategy("http://localhost/assets")),
	}
	svc, err := musicmeta.New(append(base, opts...)...)
	require.NoError(t, err)

	return &testEnv{svc: svc, repo: repo}
}

func (e *testEnv) seedUser(t *testing.T, name string) *musicmeta.UserProfile {
	t.Helper()
	user := &musicmeta.UserProfile{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.repo.CreateUser(context.Background(), user))
	return user
}

func newReader(s string) io.Reader {
	return strings.NewReader(s)
}

func audioFile(name string) musicmeta.File {
	return musicmeta.File{
		Name:     name,
		MimeType: "audio/mpeg",
		Size:     9,
		Reader:   newReader("mp3 bytes"),
	}
}

func imageFile(name string) musicmeta.File {
	return musicmeta.File{
		Name:     name,
		MimeType: "image/png",
		Size:     9,
		Reader:   newReader("png bytes"),
	}
}

func TestNewRequiresRepositories(t *testing.T) {
	_, err := musicmeta.New()
	assert.Error(t, err)

	_, err = musicmeta.New(
		musicmeta.WithMusicRepository(repomemory.New()),
	)
	assert.Error(t, err)
}

func TestUploadMusicWithPartialSlots(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	record, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
		Metadata: musicmeta.MusicMetadata{
			SongName:   "So What",
			SingerName: "Miles Davis",
			MusicStyle: "jazz",
		},
		Files: map[musicmeta.AssetSlot]musicmeta.File{
			musicmeta.SlotAudio: audioFile("so-what.mp3"),
		},
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
	})
	require.NoError(t, err)

	assert.Equal(t, "So What", record.SongName)
	assert.NotEmpty(t, record.MusicAudio)
	assert.Empty(t, record.MusicImage)
	assert.Empty(t, record.MusicBackground)
	assert.NotNil(t, record.Likes)
	assert.Empty(t, record.Likes)

	stored, err := env.svc.GetMusic(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.MusicAudio, stored.MusicAudio)
}

func TestUploadMusicInvalidAssetCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	_, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
		Metadata: musicmeta.MusicMetadata{SongName: "x"},
		Files: map[musicmeta.AssetSlot]musicmeta.File{
			musicmeta.SlotAudio: {
				Name:     "payload.bin",
				MimeType: "application/octet-stream",
				Size:     4,
				Reader:   newReader("boom"),
			},
		},
		OwnerID: owner.ID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, musicmeta.ErrInvalidAsset)

	page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalResults)
}

func TestUpdateMusicReplacesMetadataAndAssets(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	record, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
		Metadata: musicmeta.MusicMetadata{SongName: "old", SingerName: "old", MusicStyle: "pop"},
		Files: map[musicmeta.AssetSlot]musicmeta.File{
			musicmeta.SlotAudio: audioFile("old.mp3"),
			musicmeta.SlotImage: imageFile("old.png"),
		},
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
	})
	require.NoError(t, err)
	oldAudio := record.MusicAudio
	oldImage := record.MusicImage

	uploads, err := env.svc.UploadAssets(context.Background(), owner.ID, map[musicmeta.AssetSlot]musicmeta.File{
		musicmeta.SlotAudio: audioFile("new.mp3"),
	})
	require.NoError(t, err)

	updated, err := env.svc.UpdateMusic(context.Background(), musicmeta.UpdateMusicRequest{
		ID:       record.ID,
		Metadata: musicmeta.MusicMetadata{SongName: "new", SingerName: "new", MusicStyle: "rock"},
		Uploads:  uploads,
	})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.SongName)
	assert.Equal(t, "rock", updated.MusicStyle)
	assert.NotEqual(t, oldAudio, updated.MusicAudio, "resubmitted slot gets the new URL")
	assert.Equal(t, oldImage, updated.MusicImage, "untouched slot keeps its URL")
}

func TestUpdateMusicNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdateMusic(context.Background(), musicmeta.UpdateMusicRequest{
		ID:       uuid.New(),
		Metadata: musicmeta.MusicMetadata{SongName: "x"},
	})
	assert.ErrorIs(t, err, musicmeta.ErrMusicNotFound)
}

func TestDeleteMusic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	record, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
		Metadata: musicmeta.MusicMetadata{SongName: "x", SingerName: "y", MusicStyle: "pop"},
		OwnerID:  owner.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteMusic(context.Background(), record.ID))

	_, err = env.svc.GetMusic(context.Background(), record.ID)
	assert.ErrorIs(t, err, musicmeta.ErrMusicNotFound)

	err = env.svc.DeleteMusic(context.Background(), record.ID)
	assert.ErrorIs(t, err, musicmeta.ErrMusicNotFound)
}

func TestListMusicFilterAndPagination(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	seed := []musicmeta.MusicMetadata{
		{SongName: "Blue Train", SingerName: "John Coltrane", MusicStyle: "jazz"},
		{SongName: "Giant Steps", SingerName: "John Coltrane", MusicStyle: "jazz"},
		{SongName: "Kind of Blue", SingerName: "Miles Davis", MusicStyle: "jazz"},
		{SongName: "Hound Dog", SingerName: "Elvis Presley", MusicStyle: "rock"},
	}
	for _, meta := range seed {
		_, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
			Metadata:  meta,
			OwnerID:   owner.ID,
			OwnerName: owner.Name,
		})
		require.NoError(t, err)
	}

	t.Run("SubstringFilterAcrossFields", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{
			Filter: musicmeta.MusicFilter{Text: "coltrane"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalResults)
	})

	t.Run("FilterMatchesOwnerName", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{
			Filter: musicmeta.MusicFilter{Text: "alice"},
		})
		require.NoError(t, err)
		assert.Equal(t, 4, page.TotalResults)
	})

	t.Run("FilterIsLiteralNotPattern", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{
			Filter: musicmeta.MusicFilter{Text: ".*"},
		})
		require.NoError(t, err)
		assert.Zero(t, page.TotalResults)
	})

	t.Run("PaginationDefaults", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, musicmeta.DefaultPageLimit, page.Limit)
		assert.Equal(t, 4, page.TotalResults)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("PastTheEndPage", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{
			Page: musicmeta.PageOptions{Limit: 2, Page: 5},
		})
		require.NoError(t, err)
		assert.Empty(t, page.Results)
		assert.Equal(t, 4, page.TotalResults)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("SortBySongName", func(t *testing.T) {
		page, err := env.svc.ListMusic(context.Background(), musicmeta.ListMusicRequest{
			Page: musicmeta.PageOptions{SortBy: "songName:asc"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, page.Results)
		assert.Equal(t, "Blue Train", page.Results[0].SongName)
	})
}

func TestRecommendationsShareStyleExcludingSelf(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")

	var jazzID uuid.UUID
	seed := []musicmeta.MusicMetadata{
		{SongName: "a", SingerName: "a", MusicStyle: "jazz"},
		{SongName: "b", SingerName: "b", MusicStyle: "jazz"},
		{SongName: "c", SingerName: "c", MusicStyle: "rock"},
	}
	for i, meta := range seed {
		record, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
			Metadata: meta,
			OwnerID:  owner.ID,
		})
		require.NoError(t, err)
		if i == 0 {
			jazzID = record.ID
		}
	}

	record, related, err := env.svc.GetMusicWithRecommendations(context.Background(), jazzID)
	require.NoError(t, err)
	assert.Equal(t, jazzID, record.ID)
	require.Len(t, related, 1)
	assert.Equal(t, "b", related[0].SongName)
	assert.NotEqual(t, jazzID, related[0].ID)
}

func TestListMyMusic(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")

	for _, owner := range []*musicmeta.UserProfile{alice, alice, bob} {
		_, err := env.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
			Metadata:  musicmeta.MusicMetadata{SongName: "s", SingerName: "a", MusicStyle: "pop"},
			OwnerID:   owner.ID,
			OwnerName: owner.Name,
		})
		require.NoError(t, err)
	}

	mine, err := env.svc.ListMyMusic(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestUploadProfilePicture(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice")

	url, err := env.svc.UploadProfilePicture(context.Background(), user.ID, imageFile("me.png"))
	require.NoError(t, err)
	assert.Contains(t, url, "uploads/images/"+user.ID.String())

	stored, err := env.repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.ProfilePicture)
}

func TestUploadProfilePictureUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UploadProfilePicture(context.Background(), uuid.New(), imageFile("me.png"))
	assert.ErrorIs(t, err, musicmeta.ErrUserNotFound)
}
