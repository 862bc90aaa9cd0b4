package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/admin"
)

// Cache lifetimes, in seconds, of the public endpoints
const (
	CatalogMaxAge    = 60
	CategoriesMaxAge = 300
	AssetMaxAge      = 86400
)

// Options configures the catalog HTTP surface
type Options struct {
	Service        simplecatalog.Service
	AdminKey       string
	PlaceholderURL string
	MaxUploadBytes int64

	// Reported by /health
	Environment  string
	DatabaseType string
	StorageType  string

	// Optional request metrics; MetricsHandler is mounted at /metrics when set
	Metrics        MetricsCollector
	MetricsHandler http.Handler
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
	Database    string `json:"database,omitempty"`
	Storage     string `json:"storage,omitempty"`
}

// NewRouter builds the router serving every catalog endpoint
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Admin-Key", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}

	catalog := NewCatalogHandler(opts.Service)
	assets := NewAssetHandler(opts.Service, opts.PlaceholderURL)
	adminHandler := NewAdminHandler(opts.Service, admin.New(opts.Service), opts.AdminKey, opts.MaxUploadBytes)

	r.With(CacheMiddleware(CatalogMaxAge)).Get("/catalog", catalog.GetCatalog)
	r.With(CacheMiddleware(CategoriesMaxAge)).Get("/categories", catalog.GetCategories)
	r.With(CacheMiddleware(CatalogMaxAge)).Get("/keywords", catalog.GetKeywords)
	r.With(CacheMiddleware(AssetMaxAge)).Get("/asset", assets.GetAsset)
	r.Get("/download", assets.Download)

	r.Mount("/admin", adminHandler.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		render.JSON(w, r, HealthResponse{
			Status:      "ok",
			Environment: opts.Environment,
			Database:    opts.DatabaseType,
			Storage:     opts.StorageType,
		})
	})
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	return r
}
