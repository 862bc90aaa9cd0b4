package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/admin"
)

// Multipart field names of an upload
const (
	FieldMetadata = "json"
	FieldImage    = "jpeg"
	FieldPackage  = "zip"
)

// maxMemory is the part of a multipart upload kept in memory; the rest spills to disk
const maxMemory = 32 << 20

// AdminHandler serves the authenticated management endpoints
type AdminHandler struct {
	service        simplecatalog.Service
	admin          admin.AdminService
	adminKey       string
	maxUploadBytes int64
}

func NewAdminHandler(service simplecatalog.Service, adminService admin.AdminService, adminKey string, maxUploadBytes int64) *AdminHandler {
	return &AdminHandler{
		service:        service,
		admin:          adminService,
		adminKey:       adminKey,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the router for /admin, guarded by the admin key
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(AdminKeyMiddleware(h.adminKey))
	r.Use(RequestSizeLimitMiddleware(h.maxUploadBytes))
	r.Get("/", h.Get)
	r.Post("/", h.Upload)
	r.Delete("/", h.Delete)
	return r
}

// MutationResponse is returned by upload and delete
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Slug    string `json:"slug,omitempty"`
}

// Get answers ?action=stats and ?action=list
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	switch action := r.URL.Query().Get("action"); action {
	case "stats":
		stats, err := h.admin.GetStatistics(r.Context())
		if err != nil {
			writeError(w, r, "Failed to compute statistics", err)
			return
		}
		render.JSON(w, r, stats)
	case "list":
		list, err := h.admin.ListAll(r.Context())
		if err != nil {
			writeError(w, r, "Failed to list entries", err)
			return
		}
		render.JSON(w, r, list)
	default:
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput,
			fmt.Sprintf("unknown action %q, expected stats or list", action))
	}
}

// Upload ingests a multipart upload carrying metadata, preview image and package
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorCode(w, r, http.StatusRequestEntityTooLarge, CodeMissingInput,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput, "expected a multipart form with json, jpeg and zip parts")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var missing []string
	open := func(field string) (multipart.File, *multipart.FileHeader) {
		f, header, err := r.FormFile(field)
		if err != nil {
			missing = append(missing, field)
			return nil, nil
		}
		return f, header
	}

	metadata, metaHeader := open(FieldMetadata)
	image, _ := open(FieldImage)
	pkg, _ := open(FieldPackage)
	for _, f := range []multipart.File{metadata, image, pkg} {
		if f != nil {
			defer f.Close()
		}
	}
	if len(missing) > 0 {
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput,
			"missing parts: "+strings.Join(missing, ", "))
		return
	}

	entry, err := h.service.Ingest(r.Context(), simplecatalog.IngestRequest{
		MetadataName: metaHeader.Filename,
		Metadata:     metadata,
		Image:        image,
		Package:      pkg,
	})
	if err != nil {
		writeError(w, r, "Failed to ingest upload", err)
		return
	}

	render.JSON(w, r, MutationResponse{
		Success: true,
		Message: "Uploaded: " + entry.Slug,
		Slug:    entry.Slug,
	})
}

// Delete retracts the entry named by ?slug=
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput, "slug is required")
		return
	}

	if err := h.service.Retract(r.Context(), slug); err != nil {
		writeError(w, r, "Failed to retract entry", err)
		return
	}

	render.JSON(w, r, MutationResponse{Success: true, Slug: slug})
}
