package musicmeta_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebox/music-meta/pkg/musicmeta"
)

func (e *testEnv) seedRecord(t *testing.T, owner *musicmeta.UserProfile, song string) *musicmeta.MusicRecord {
	t.Helper()
	record, err := e.svc.UploadMusic(context.Background(), musicmeta.UploadMusicRequest{
		Metadata:  musicmeta.MusicMetadata{SongName: song, SingerName: "singer", MusicStyle: "pop"},
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
	})
	require.NoError(t, err)
	return record
}

func TestLikeMusic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")
	record := env.seedRecord(t, owner, "song")

	result, err := env.svc.LikeMusic(context.Background(), record.ID, fan.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.LikeCount)
	assert.Equal(t, "bob", result.User.Name)
	assert.Equal(t, []uuid.UUID{record.ID}, result.LikedSongs)

	stored, err := env.svc.GetMusic(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, stored.LikedBy(fan.ID))
}

func TestLikeMusicTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")
	record := env.seedRecord(t, owner, "song")

	_, err := env.svc.LikeMusic(context.Background(), record.ID, fan.ID)
	require.NoError(t, err)

	_, err = env.svc.LikeMusic(context.Background(), record.ID, fan.ID)
	assert.ErrorIs(t, err, musicmeta.ErrAlreadyLiked)

	stored, err := env.svc.GetMusic(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Likes, 1)
}

func TestLikeMusicUnknownTargets(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	record := env.seedRecord(t, owner, "song")

	_, err := env.svc.LikeMusic(context.Background(), uuid.New(), owner.ID)
	assert.ErrorIs(t, err, musicmeta.ErrMusicNotFound)

	_, err = env.svc.LikeMusic(context.Background(), record.ID, uuid.New())
	assert.ErrorIs(t, err, musicmeta.ErrUserNotFound)
}

func TestRateMusic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")
	record := env.seedRecord(t, owner, "song")

	summary, err := env.svc.RateMusic(context.Background(), record.ID, fan.ID, 4)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, summary.AverageRating, 0.001)
	require.Len(t, summary.Ratings, 1)
	assert.Equal(t, 4, summary.Ratings[0].Value)
}

func TestRateMusicReplacesOwnRating(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")
	other := env.seedUser(t, "carol")
	record := env.seedRecord(t, owner, "song")

	_, err := env.svc.RateMusic(context.Background(), record.ID, fan.ID, 5)
	require.NoError(t, err)
	_, err = env.svc.RateMusic(context.Background(), record.ID, other.ID, 1)
	require.NoError(t, err)

	summary, err := env.svc.RateMusic(context.Background(), record.ID, fan.ID, 3)
	require.NoError(t, err)

	require.Len(t, summary.Ratings, 2, "re-rating replaces, never appends")
	assert.Equal(t, fan.ID, summary.Ratings[0].UserID, "replaced entry keeps its position")
	assert.Equal(t, 3, summary.Ratings[0].Value)
	assert.InDelta(t, 2.0, summary.AverageRating, 0.001)
}

func TestRateMusicRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	record := env.seedRecord(t, owner, "song")

	for _, value := range []int{0, -1, 6} {
		_, err := env.svc.RateMusic(context.Background(), record.ID, owner.ID, value)
		assert.ErrorIs(t, err, musicmeta.ErrInvalidRating, "value %d", value)
	}

	stored, err := env.svc.GetMusic(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Ratings, "rejected ratings leave the record unchanged")
}

func TestRateMusicValidationPrecedesLookup(t *testing.T) {
	env := newTestEnv(t)

	// An out-of-range value on a missing record reports the rating problem.
	_, err := env.svc.RateMusic(context.Background(), uuid.New(), uuid.New(), 9)
	assert.ErrorIs(t, err, musicmeta.ErrInvalidRating)
}

func TestCommentOnMusic(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")
	record := env.seedRecord(t, owner, "song")

	comment, err := env.svc.CommentOnMusic(context.Background(), record.ID, fan.ID, "nice groove")
	require.NoError(t, err)
	assert.Equal(t, "nice groove", comment.Body)
	assert.Equal(t, fan.ID, comment.UserID)
	assert.False(t, comment.CreatedAt.IsZero())

	_, err = env.svc.CommentOnMusic(context.Background(), record.ID, owner.ID, "thanks")
	require.NoError(t, err)

	stored, err := env.svc.GetMusic(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 2)
	assert.Equal(t, "nice groove", stored.Comments[0].Body, "comments append in arrival order")
}

func TestLikedSongs(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")

	first := env.seedRecord(t, owner, "first")
	second := env.seedRecord(t, owner, "second")

	_, err := env.svc.LikeMusic(context.Background(), first.ID, fan.ID)
	require.NoError(t, err)
	_, err = env.svc.LikeMusic(context.Background(), second.ID, fan.ID)
	require.NoError(t, err)

	songs, err := env.svc.LikedSongs(context.Background(), fan.ID)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "first", songs[0].SongName)
	assert.Equal(t, "second", songs[1].SongName)
}

func TestLikedSongsEmpty(t *testing.T) {
	env := newTestEnv(t)
	fan := env.seedUser(t, "bob")

	songs, err := env.svc.LikedSongs(context.Background(), fan.ID)
	require.NoError(t, err)
	assert.NotNil(t, songs)
	assert.Empty(t, songs)
}

func TestLikedSongsSkipsDeletedRecords(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "alice")
	fan := env.seedUser(t, "bob")

	kept := env.seedRecord(t, owner, "kept")
	gone := env.seedRecord(t, owner, "gone")

	_, err := env.svc.LikeMusic(context.Background(), kept.ID, fan.ID)
	require.NoError(t, err)
	_, err = env.svc.LikeMusic(context.Background(), gone.ID, fan.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteMusic(context.Background(), gone.ID))

	songs, err := env.svc.LikedSongs(context.Background(), fan.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "kept", songs[0].SongName)
}
