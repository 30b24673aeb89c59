package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-catalog/pkg/catalog"
	"github.com/tendant/content-catalog/pkg/catalog/discovery"
)

// DiscoveryHandler serves the public read side: search-backed browsing and
// cached detail lookups.
type DiscoveryHandler struct {
	service *discovery.Service
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(service *discovery.Service) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

// Routes returns the routes for discovery
func (h *DiscoveryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/browse", h.Browse)
	r.Get("/contents/{id}", h.GetContentDetail)

	return r
}

// BrowseResponse is the response body for a browse query. Total is the
// index's hit count and can exceed len(results) when rows were deleted after
// indexing.
type BrowseResponse struct {
	Total   int                      `json:"total"`
	Results []*catalog.ContentDetail `json:"results"`
}

// Browse runs a search query and hydrates the ranked results
func (h *DiscoveryHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.SearchQuery{
		Query:     q.Get("query"),
		MediaType: q.Get("media_type"),
		Category:  q.Get("category"),
		Language:  q.Get("language"),
		Status:    q.Get("status"),
		DateFrom:  dateParam(q, "date_from"),
		DateTo:    dateParam(q, "date_to"),
		Limit:     intParam(q, "limit"),
		Offset:    intParam(q, "offset"),
	}

	total, results, err := h.service.Browse(r.Context(), query)
	if err != nil {
		slog.Error("Browse failed", "query", query.Query, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []*catalog.ContentDetail{}
	}
	render.JSON(w, r, BrowseResponse{Total: total, Results: results})
}

// GetContentDetail resolves a single content through the discovery cache
func (h *DiscoveryHandler) GetContentDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.ContentDetailByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, detail)
}

func dateParam(q url.Values, name string) *time.Time {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		if t, err = time.Parse("2006-01-02", v); err != nil {
			return nil
		}
	}
	return &t
}
