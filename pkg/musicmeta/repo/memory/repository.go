package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tunebox/music-meta/pkg/musicmeta"
)

// Repository implements the musicmeta repositories using in-memory storage.
// A single lock guards both collections, which makes the per-record
// interaction primitives (AddLike, UpsertRating, AppendComment) atomic.
type Repository struct {
	mu     sync.RWMutex
	music  map[uuid.UUID]*musicmeta.MusicRecord
	users  map[uuid.UUID]*musicmeta.UserProfile
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		music: make(map[uuid.UUID]*musicmeta.MusicRecord),
		users: make(map[uuid.UUID]*musicmeta.UserProfile),
	}
}

// Music record operations

func (r *Repository) CreateMusic(ctx context.Context, record *musicmeta.MusicRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordCopy := copyRecord(record)
	r.music[record.ID] = recordCopy

	return nil
}

func (r *Repository) GetMusic(ctx context.Context, id uuid.UUID) (*musicmeta.MusicRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.music[id]
	if !exists {
		return nil, musicmeta.ErrMusicNotFound
	}
	return copyRecord(record), nil
}

func (r *Repository) UpdateMusic(ctx context.Context, record *musicmeta.MusicRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.music[record.ID]; !exists {
		return musicmeta.ErrMusicNotFound
	}
	r.music[record.ID] = copyRecord(record)

	return nil
}

func (r *Repository) DeleteMusic(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.music[id]; !exists {
		return musicmeta.ErrMusicNotFound
	}
	delete(r.music, id)
	return nil
}

func (r *Repository) ListMusic(ctx context.Context, filter musicmeta.MusicFilter, page musicmeta.PageOptions) (*musicmeta.MusicPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page = page.Normalize()

	var matched []*musicmeta.MusicRecord
	needle := strings.ToLower(filter.Text)
	for _, record := range r.music {
		if needle == "" || matchesFilter(record, needle) {
			matched = append(matched, copyRecord(record))
		}
	}

	sortRecords(matched, page.SortBy)

	total := len(matched)
	totalPages := (total + page.Limit - 1) / page.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page.Page - 1) * page.Limit
	if start >= total {
		matched = []*musicmeta.MusicRecord{}
	} else {
		end := start + page.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}

	return &musicmeta.MusicPage{
		Results:      matched,
		Page:         page.Page,
		Limit:        page.Limit,
		TotalPages:   totalPages,
		TotalResults: total,
	}, nil
}

func (r *Repository) ListMusicByOwner(ctx context.Context, ownerID uuid.UUID) ([]*musicmeta.MusicRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*musicmeta.MusicRecord
	for _, record := range r.music {
		if record.CreatedBy == ownerID {
			result = append(result, copyRecord(record))
		}
	}

	sortRecords(result, musicmeta.DefaultSortBy)
	return result, nil
}

func (r *Repository) ListMusicByStyle(ctx context.Context, style string, exclude uuid.UUID) ([]*musicmeta.MusicRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*musicmeta.MusicRecord
	for _, record := range r.music {
		if record.ID != exclude && record.MusicStyle == style {
			result = append(result, copyRecord(record))
		}
	}

	sortRecords(result, musicmeta.DefaultSortBy)
	return result, nil
}

// Interaction primitives

func (r *Repository) AddLike(ctx context.Context, musicID, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.music[musicID]
	if !exists {
		return 0, musicmeta.ErrMusicNotFound
	}

	for _, id := range record.Likes {
		if id == userID {
			return 0, musicmeta.ErrAlreadyLiked
		}
	}

	record.Likes = append(record.Likes, userID)
	record.UpdatedAt = time.Now().UTC()
	return len(record.Likes), nil
}

func (r *Repository) UpsertRating(ctx context.Context, musicID uuid.UUID, rating musicmeta.Rating) ([]musicmeta.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.music[musicID]
	if !exists {
		return nil, musicmeta.ErrMusicNotFound
	}

	updated := false
	for i := range record.Ratings {
		if record.Ratings[i].UserID == rating.UserID {
			// Overwrite in place so the sequence position survives.
			record.Ratings[i].Value = rating.Value
			record.Ratings[i].CreatedAt = rating.CreatedAt
			updated = true
			break
		}
	}
	if !updated {
		record.Ratings = append(record.Ratings, rating)
	}
	record.UpdatedAt = time.Now().UTC()

	ratings := make([]musicmeta.Rating, len(record.Ratings))
	copy(ratings, record.Ratings)
	return ratings, nil
}

func (r *Repository) AppendComment(ctx context.Context, musicID uuid.UUID, comment musicmeta.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.music[musicID]
	if !exists {
		return musicmeta.ErrMusicNotFound
	}

	record.Comments = append(record.Comments, comment)
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) ProjectSongs(ctx context.Context, ids []uuid.UUID) ([]musicmeta.LikedSong, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]musicmeta.LikedSong, 0, len(ids))
	for _, id := range ids {
		record, exists := r.music[id]
		if !exists {
			continue
		}
		result = append(result, musicmeta.LikedSong{
			ID:         record.ID,
			SongName:   record.SongName,
			SingerName: record.SingerName,
		})
	}
	return result, nil
}

// User profile operations

func (r *Repository) CreateUser(ctx context.Context, user *musicmeta.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userCopy := copyUser(user)
	r.users[user.ID] = userCopy
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*musicmeta.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, musicmeta.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (r *Repository) AddLikedSong(ctx context.Context, userID, musicID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return nil, musicmeta.ErrUserNotFound
	}

	present := false
	for _, id := range user.LikedSongs {
		if id == musicID {
			present = true
			break
		}
	}
	if !present {
		user.LikedSongs = append(user.LikedSongs, musicID)
		user.UpdatedAt = time.Now().UTC()
	}

	liked := make([]uuid.UUID, len(user.LikedSongs))
	copy(liked, user.LikedSongs)
	return liked, nil
}

func (r *Repository) SetProfilePicture(ctx context.Context, userID uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return musicmeta.ErrUserNotFound
	}

	user.ProfilePicture = url
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Helpers

func matchesFilter(record *musicmeta.MusicRecord, needle string) bool {
	return strings.Contains(strings.ToLower(record.SongName), needle) ||
		strings.Contains(strings.ToLower(record.SingerName), needle) ||
		strings.Contains(strings.ToLower(record.UserName), needle)
}

func sortRecords(records []*musicmeta.MusicRecord, sortBy string) {
	field, desc := parseSortBy(sortBy)

	sort.SliceStable(records, func(i, j int) bool {
		var less bool
		switch field {
		case "songName":
			less = records[i].SongName < records[j].SongName
		case "singerName":
			less = records[i].SingerName < records[j].SingerName
		case "userName":
			less = records[i].UserName < records[j].UserName
		default:
			less = records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		if desc {
			return !less && !equalByField(records[i], records[j], field)
		}
		return less
	})
}

func parseSortBy(sortBy string) (field string, desc bool) {
	field = "createdAt"
	parts := strings.SplitN(sortBy, ":", 2)
	if parts[0] != "" {
		field = parts[0]
	}
	desc = len(parts) == 2 && parts[1] == "desc"
	return field, desc
}

func equalByField(a, b *musicmeta.MusicRecord, field string) bool {
	switch field {
	case "songName":
		return a.SongName == b.SongName
	case "singerName":
		return a.SingerName == b.SingerName
	case "userName":
		return a.UserName == b.UserName
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

// Copies protect the stored documents from external mutation.

func copyRecord(record *musicmeta.MusicRecord) *musicmeta.MusicRecord {
	recordCopy := *record
	recordCopy.Likes = append([]uuid.UUID{}, record.Likes...)
	recordCopy.Ratings = append([]musicmeta.Rating{}, record.Ratings...)
	recordCopy.Comments = append([]musicmeta.Comment{}, record.Comments...)
	return &recordCopy
}

func copyUser(user *musicmeta.UserProfile) *musicmeta.UserProfile {
	userCopy := *user
	userCopy.LikedSongs = append([]uuid.UUID{}, user.LikedSongs...)
	return &userCopy
}
