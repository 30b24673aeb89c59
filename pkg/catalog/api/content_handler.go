// Package api exposes the catalog over HTTP. Handlers decode JSON bodies,
// delegate to the catalog and discovery services and render JSON responses.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-catalog/pkg/catalog"
)

// ContentHandler handles HTTP requests for content and its media record.
type ContentHandler struct {
	service catalog.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service catalog.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateContent)
	r.Get("/", h.ListContent)
	r.Get("/{id}", h.GetContent)
	r.Patch("/{id}", h.UpdateContent)
	r.Delete("/{id}", h.DeleteContent)

	r.Put("/{id}/media", h.SetMedia)
	r.Get("/{id}/media", h.GetMedia)
	r.Delete("/{id}/media", h.DeleteMedia)
	r.Post("/{id}/media/upload", h.UploadMediaFile)

	return r
}

// CreateContentRequest is the request body for creating a content
type CreateContentRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Language        string     `json:"language"`
	Duration        int        `json:"duration"`
	PublicationDate *time.Time `json:"publication_date"`
	Status          string     `json:"status,omitempty"` // Optional initial status (defaults to "draft")
	Categories      []string   `json:"categories"`
}

// UpdateContentRequest is the request body for a partial content update.
// Absent fields keep their stored values; "categories": [] clears the set
// and "publication_date": null clears the stored date.
type UpdateContentRequest struct {
	Title           *string              `json:"title"`
	Description     *string              `json:"description"`
	Language        *string              `json:"language"`
	Duration        *int                 `json:"duration"`
	PublicationDate catalog.NullableTime `json:"publication_date"`
	Status          *string              `json:"status"`
	Categories      *[]string            `json:"categories"`
}

// SetMediaRequest is the request body for attaching or replacing media
type SetMediaRequest struct {
	MediaType   string `json:"media_type"`
	Source      string `json:"source"`
	Provider    string `json:"provider"`
	MediaFile   string `json:"media_file,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

// CreateContent creates a new content
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	detail, err := h.service.CreateContent(r.Context(), catalog.CreateContentRequest{
		Title:           req.Title,
		Description:     req.Description,
		Language:        req.Language,
		Duration:        req.Duration,
		PublicationDate: req.PublicationDate,
		Status:          catalog.ContentStatus(req.Status),
		Categories:      req.Categories,
	})
	if err != nil {
		slog.Error("Failed to create content", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Content created", "content_id", detail.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, detail)
}

// GetContent retrieves a content by ID
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, detail)
}

// UpdateContent applies a partial update to a content
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := catalog.UpdateContentRequest{
		Title:           req.Title,
		Description:     req.Description,
		Language:        req.Language,
		Duration:        req.Duration,
		PublicationDate: req.PublicationDate,
		Categories:      req.Categories,
	}
	if req.Status != nil {
		status := catalog.ContentStatus(*req.Status)
		update.Status = &status
	}

	detail, err := h.service.UpdateContent(r.Context(), id, update)
	if err != nil {
		slog.Error("Failed to update content", "content_id", id.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Content updated", "content_id", id.String())
	render.JSON(w, r, detail)
}

// DeleteContent deletes a content by ID
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteContent(r.Context(), id)
	if err != nil {
		slog.Error("Failed to delete content", "content_id", id.String(), "error", err)
		writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "Content not found", http.StatusNotFound)
		return
	}

	slog.Info("Content deleted", "content_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// ListContent lists contents with optional filters
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := catalog.ListContentFilters{
		Query:    q.Get("query"),
		Language: q.Get("language"),
		Status:   catalog.ContentStatus(q.Get("status")),
		Category: q.Get("category"),
		Limit:    intParam(q, "limit"),
		Offset:   intParam(q, "offset"),
	}

	details, err := h.service.ListContent(r.Context(), filters)
	if err != nil {
		slog.Error("Failed to list content", "error", err)
		writeError(w, err)
		return
	}

	if details == nil {
		details = []*catalog.ContentDetail{}
	}
	render.JSON(w, r, details)
}

// SetMedia attaches or replaces the media record of a content
func (h *ContentHandler) SetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req SetMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	media, err := h.service.SetMedia(r.Context(), id, catalog.SetMediaRequest{
		MediaType:   catalog.MediaType(req.MediaType),
		Source:      catalog.MediaSource(req.Source),
		Provider:    catalog.MediaProvider(req.Provider),
		MediaFile:   req.MediaFile,
		ExternalURL: req.ExternalURL,
	})
	if err != nil {
		slog.Error("Failed to set media", "content_id", id.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Media set", "content_id", id.String(), "media_id", media.ID.String())
	render.JSON(w, r, media)
}

// GetMedia retrieves the media record of a content
func (h *ContentHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	media, err := h.service.GetMedia(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, media)
}

// DeleteMedia detaches the media record of a content
func (h *ContentHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteMedia(r.Context(), id)
	if err != nil {
		slog.Error("Failed to delete media", "content_id", id.String(), "error", err)
		writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}

	slog.Info("Media deleted", "content_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

const maxUploadBytes = 512 << 20

// UploadMediaFile accepts a multipart upload, stores the bytes in the blob
// store and attaches them as the content's media record.
func (h *ContentHandler) UploadMediaFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mediaType := catalog.MediaType(r.FormValue("media_type"))
	if mediaType == "" {
		mediaType = catalog.MediaTypeVideo
	}

	media, err := h.service.UploadMediaFile(r.Context(), id, header.Filename, mediaType, file)
	if err != nil {
		slog.Error("Failed to upload media file", "content_id", id.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Media file uploaded", "content_id", id.String(), "file", header.Filename)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid content ID", "content_id", idStr, "error", err)
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func intParam(q url.Values, name string) int {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrContentNotFound), errors.Is(err, catalog.ErrMediaNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidMedia), errors.Is(err, catalog.ErrInvalidContent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrCategoryConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
