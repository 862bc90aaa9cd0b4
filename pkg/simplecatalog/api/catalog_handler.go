package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// CatalogHandler serves the public browse endpoints
type CatalogHandler struct {
	service simplecatalog.Service
}

func NewCatalogHandler(service simplecatalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// GetCatalog returns a single enriched entry when slug is given, otherwise
// a filtered, sorted page of the catalog.
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if slug := strings.TrimSpace(q.Get("slug")); slug != "" {
		entry, err := h.service.GetEntry(r.Context(), slug)
		if err != nil {
			writeError(w, r, "Failed to get entry", err)
			return
		}
		render.JSON(w, r, entry)
		return
	}

	page, err := h.service.Query(r.Context(), simplecatalog.QueryRequest{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     simplecatalog.ParseSortOrder(q.Get("sort")),
		Page:     intParam(q.Get("page"), 1),
		PageSize: intParam(q.Get("limit"), simplecatalog.DefaultPageSize),
	})
	if err != nil {
		writeError(w, r, "Failed to query catalog", err)
		return
	}
	render.JSON(w, r, page)
}

// GetCategories returns every known category with its entry count
func (h *CatalogHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeError(w, r, "Failed to count categories", err)
		return
	}
	render.JSON(w, r, categories)
}

// GetKeywords returns the most frequent keywords among matching entries
func (h *CatalogHandler) GetKeywords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keywords, err := h.service.Keywords(r.Context(), simplecatalog.KeywordsRequest{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    intParam(q.Get("limit"), simplecatalog.DefaultKeywordLimit),
	})
	if err != nil {
		writeError(w, r, "Failed to collect keywords", err)
		return
	}
	render.JSON(w, r, keywords)
}

// intParam parses a numeric query parameter, using def when absent or malformed
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
