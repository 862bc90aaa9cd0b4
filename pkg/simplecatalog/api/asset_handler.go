package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// AssetHandler streams stored blobs: thumbnails, packages and counted downloads
type AssetHandler struct {
	service        simplecatalog.Service
	placeholderURL string
}

func NewAssetHandler(service simplecatalog.Service, placeholderURL string) *AssetHandler {
	return &AssetHandler{service: service, placeholderURL: placeholderURL}
}

// GetAsset streams the object stored under ?key=. Missing images redirect to
// the placeholder when one is configured; packages are sent as attachments.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput, "key is required")
		return
	}

	asset, err := h.service.OpenAsset(r.Context(), key)
	if err != nil {
		if errors.Is(err, simplecatalog.ErrNotFound) && h.placeholderURL != "" && isImageKey(key) {
			w.Header().Set("Cache-Control", "no-cache")
			http.Redirect(w, r, h.placeholderURL, http.StatusFound)
			return
		}
		writeError(w, r, "Failed to open asset", err)
		return
	}

	if objectkey.Ext(key) == objectkey.PackageExt {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", packageFileName(key)))
	}
	h.stream(w, r, asset)
}

// packageFileName returns the unescaped last key segment, e.g. "red-car.zip"
func packageFileName(key string) string {
	name := path.Base(key)
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// Download streams the package for ?slug= as an attachment and counts it
func (h *AssetHandler) Download(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		writeErrorCode(w, r, http.StatusBadRequest, CodeMissingInput, "slug is required")
		return
	}

	asset, err := h.service.Download(r.Context(), slug)
	if err != nil {
		writeError(w, r, "Failed to download package", err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug+".zip"))
	w.Header().Set("Cache-Control", "no-cache")
	h.stream(w, r, asset)
}

func (h *AssetHandler) stream(w http.ResponseWriter, r *http.Request, asset *simplecatalog.Asset) {
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	if asset.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, asset.Body); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Warn("asset stream interrupted", "key", asset.Key, "error", err)
	}
}

func isImageKey(key string) bool {
	switch objectkey.Ext(key) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
