package musicmeta

import (
	"context"

	"github.com/google/uuid"
)

// Social interactions. Each operation re-reads current state and mutates a
// single record per call; the duplicate checks live in the repository's
// atomic primitives. The record/user double write in LikeMusic is not
// transactional: a partial success leaves the two documents briefly
// inconsistent, with no compensating write.

func (s *service) LikeMusic(ctx context.Context, musicID, userID uuid.UUID) (*LikeResult, error) {
	if _, err := s.music.GetMusic(ctx, musicID); err != nil {
		return nil, storeErr(err)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	likeCount, err := s.music.AddLike(ctx, musicID, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	likedSongs, err := s.users.AddLikedSong(ctx, userID, musicID)
	if err != nil {
		// The record side already committed; surface the failure rather
		// than compensate.
		return nil, &MusicError{MusicID: musicID, Op: "like", Err: storeErr(err)}
	}

	return &LikeResult{
		LikeCount:  likeCount,
		User:       PublicUser{Name: user.Name, Email: user.Email},
		LikedSongs: likedSongs,
	}, nil
}

func (s *service) RateMusic(ctx context.Context, musicID, userID uuid.UUID, value int) (*RatingSummary, error) {
	if value < 1 || value > 5 {
		return nil, ErrInvalidRating
	}

	ratings, err := s.music.UpsertRating(ctx, musicID, Rating{
		UserID:    userID,
		Value:     value,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return &RatingSummary{
		AverageRating: averageRating(ratings),
		Ratings:       ratings,
	}, nil
}

func (s *service) CommentOnMusic(ctx context.Context, musicID, userID uuid.UUID, body string) (*Comment, error) {
	comment := Comment{
		UserID:    userID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}

	if err := s.music.AppendComment(ctx, musicID, comment); err != nil {
		return nil, storeErr(err)
	}
	return &comment, nil
}

func (s *service) LikedSongs(ctx context.Context, userID uuid.UUID) ([]LikedSong, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if len(user.LikedSongs) == 0 {
		return []LikedSong{}, nil
	}

	songs, err := s.music.ProjectSongs(ctx, user.LikedSongs)
	if err != nil {
		return nil, storeErr(err)
	}
	return songs, nil
}

// averageRating is the arithmetic mean of the rating values; 0 when empty.
func averageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}
