package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tunebox/music-meta/pkg/musicmeta"
)

// multipartMemoryLimit is the in-memory threshold for parsing uploads;
// larger parts spill to temp files. The per-asset size cap is enforced by
// the service.
const multipartMemoryLimit = 32 << 20

// MusicHandler handles HTTP requests for music records and their assets.
type MusicHandler struct {
	service musicmeta.Service
}

// NewMusicHandler creates a new music handler
func NewMusicHandler(service musicmeta.Service) *MusicHandler {
	return &MusicHandler{service: service}
}

// Routes returns the routes for music records
func (h *MusicHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMusic)
	r.Get("/{id}", h.GetMusic)
	r.Get("/{id}/popup", h.GetMusicPopup)

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Post("/", h.UploadMusic)
		r.Put("/{id}", h.UpdateMusic)
		r.Delete("/{id}", h.DeleteMusic)

		r.Post("/{id}/like", h.LikeMusic)
		r.Post("/{id}/rate", h.RateMusic)
		r.Post("/{id}/comments", h.CommentOnMusic)

		r.Get("/liked", h.LikedSongs)
		r.Get("/mine", h.MyMusic)
	})

	return r
}

// ProfileRoutes returns the routes for user profile assets
func (h *MusicHandler) ProfileRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequireIdentity)
	r.Post("/picture", h.UploadProfilePicture)
	return r
}

// UploadMusic stores the submitted assets and creates the record
func (h *MusicHandler) UploadMusic(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	files, closeFiles, err := collectAssetFiles(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFiles()

	record, err := h.service.UploadMusic(r.Context(), musicmeta.UploadMusicRequest{
		Metadata: musicmeta.MusicMetadata{
			SongName:   r.FormValue("songName"),
			SingerName: r.FormValue("singerName"),
			MusicStyle: r.FormValue("musicStyle"),
		},
		Files:     files,
		OwnerID:   userID,
		OwnerName: UserNameFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, "upload music", err)
		return
	}

	slog.Info("Music uploaded", "music_id", record.ID.String(), "user_id", userID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, record)
}

// ListMusic returns a filtered, paginated page of records
func (h *MusicHandler) ListMusic(w http.ResponseWriter, r *http.Request) {
	req := musicmeta.ListMusicRequest{
		Filter: musicmeta.MusicFilter{Text: r.URL.Query().Get("search")},
		Page: musicmeta.PageOptions{
			SortBy: r.URL.Query().Get("sortBy"),
			Limit:  queryInt(r, "limit"),
			Page:   queryInt(r, "page"),
		},
	}

	page, err := h.service.ListMusic(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "list music", err)
		return
	}

	render.JSON(w, r, page)
}

// GetMusic retrieves a record by ID
func (h *MusicHandler) GetMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetMusic(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get music", err)
		return
	}

	render.JSON(w, r, record)
}

// GetMusicPopup retrieves a record together with same-style recommendations
func (h *MusicHandler) GetMusicPopup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	record, related, err := h.service.GetMusicWithRecommendations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get music popup", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"music":           record,
		"recommendations": related,
	})
}

// UpdateMusic replaces a record's metadata and any resubmitted assets
func (h *MusicHandler) UpdateMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	files, closeFiles, err := collectAssetFiles(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFiles()

	uploads, err := h.service.UploadAssets(r.Context(), userID, files)
	if err != nil {
		writeServiceError(w, r, "upload assets", err)
		return
	}

	record, err := h.service.UpdateMusic(r.Context(), musicmeta.UpdateMusicRequest{
		ID: id,
		Metadata: musicmeta.MusicMetadata{
			SongName:   r.FormValue("songName"),
			SingerName: r.FormValue("singerName"),
			MusicStyle: r.FormValue("musicStyle"),
		},
		Uploads: uploads,
	})
	if err != nil {
		writeServiceError(w, r, "update music", err)
		return
	}

	slog.Info("Music updated", "music_id", id.String())
	render.JSON(w, r, record)
}

// DeleteMusic removes a record and evicts its locally cached assets
func (h *MusicHandler) DeleteMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMusic(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete music", err)
		return
	}

	slog.Info("Music deleted", "music_id", id.String())
	render.JSON(w, r, map[string]string{"message": "Music deleted successfully"})
}

// LikeMusic registers the caller's like on a record
func (h *MusicHandler) LikeMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	result, err := h.service.LikeMusic(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, r, "like music", err)
		return
	}

	render.JSON(w, r, result)
}

// RateMusicRequest is the request body for rating a record
type RateMusicRequest struct {
	Value int `json:"value"`
}

// RateMusic registers or replaces the caller's rating
func (h *MusicHandler) RateMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	var req RateMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.service.RateMusic(r.Context(), id, userID, req.Value)
	if err != nil {
		writeServiceError(w, r, "rate music", err)
		return
	}

	render.JSON(w, r, summary)
}

// CommentRequest is the request body for commenting on a record
type CommentRequest struct {
	Body string `json:"body"`
}

// CommentOnMusic appends the caller's comment to a record
func (h *MusicHandler) CommentOnMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.service.CommentOnMusic(r.Context(), id, userID, req.Body)
	if err != nil {
		writeServiceError(w, r, "comment on music", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, comment)
}

// LikedSongs returns the projection of songs the caller has liked
func (h *MusicHandler) LikedSongs(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	songs, err := h.service.LikedSongs(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "liked songs", err)
		return
	}

	render.JSON(w, r, songs)
}

// MyMusic returns the caller's own records
func (h *MusicHandler) MyMusic(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	records, err := h.service.ListMyMusic(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "my music", err)
		return
	}

	render.JSON(w, r, records)
}

// UploadProfilePicture stores the caller's new profile picture
func (h *MusicHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("profilePicture")
	if err != nil {
		http.Error(w, "Missing profilePicture file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.service.UploadProfilePicture(r.Context(), userID, fileFromHeader(file, header))
	if err != nil {
		writeServiceError(w, r, "upload profile picture", err)
		return
	}

	render.JSON(w, r, map[string]string{"profilePicture": url})
}

// collectAssetFiles extracts the enumerated asset slots from a parsed
// multipart form. Missing slots are simply absent from the map.
func collectAssetFiles(r *http.Request) (map[musicmeta.AssetSlot]musicmeta.File, func(), error) {
	files := make(map[musicmeta.AssetSlot]musicmeta.File)
	var opened []multipart.File

	closeFiles := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, slot := range musicmeta.SlotOrder {
		headers := r.MultipartForm.File[string(slot)]
		if len(headers) == 0 {
			continue
		}

		file, err := headers[0].Open()
		if err != nil {
			closeFiles()
			return nil, nil, errors.New("failed to read " + string(slot) + " part")
		}
		opened = append(opened, file)
		files[slot] = fileFromHeader(file, headers[0])
	}

	return files, closeFiles, nil
}

func fileFromHeader(file multipart.File, header *multipart.FileHeader) musicmeta.File {
	return musicmeta.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   file,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid music ID", "music_id", idStr, "error", err)
		http.Error(w, "Invalid music ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, musicmeta.ErrMusicNotFound), errors.Is(err, musicmeta.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, musicmeta.ErrInvalidAsset),
		errors.Is(err, musicmeta.ErrInvalidRating),
		errors.Is(err, musicmeta.ErrAlreadyLiked):
		status = http.StatusBadRequest
	case errors.Is(err, musicmeta.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "op", op, "error", err)
	} else {
		slog.Warn("Request rejected", "op", op, "status", status, "error", err)
	}

	http.Error(w, err.Error(), status)
}
