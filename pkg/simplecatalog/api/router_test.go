package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/admin"
	memoryrepo "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

const testAdminKey = "s3cret"

const testPlaceholder = "https://cdn.example.com/placeholder.png"

// setupRouterTest creates a router over in-memory stores
func setupRouterTest(t *testing.T, mutate ...func(*Options)) (http.Handler, simplecatalog.Service, *memorystorage.Backend) {
	t.Helper()
	blobs := memorystorage.New()
	svc, err := simplecatalog.New(
		simplecatalog.WithRepository(memoryrepo.New()),
		simplecatalog.WithBlobStore(blobs),
		simplecatalog.WithClock(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	opts := Options{
		Service:        svc,
		AdminKey:       testAdminKey,
		PlaceholderURL: testPlaceholder,
		MaxUploadBytes: 1 << 20,
		Environment:    "test",
		DatabaseType:   "memory",
		StorageType:    "memory",
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewRouter(opts), svc, blobs
}

func seed(t *testing.T, svc simplecatalog.Service, slug, category string) {
	t.Helper()
	_, err := svc.Ingest(context.Background(), simplecatalog.IngestRequest{
		MetadataName: slug + ".json",
		Metadata:     strings.NewReader(`{"category":"` + category + `","title":"` + slug + `","keywords":"vector, ` + slug + `"}`),
		Image:        strings.NewReader("jpeg-" + slug),
		Package:      strings.NewReader("zip-" + slug),
	})
	require.NoError(t, err)
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCatalog_Page(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")
	seed(t, svc, "blue-boat", "Transportation")
	seed(t, svc, "green-tree", "Nature")

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?limit=2&page=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	var page simplecatalog.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "green-tree", page.Items[0].Slug)
	assert.Equal(t, "/asset?key=assets%2FNature%2Fgreen-tree.jpg", page.Items[0].Thumbnail)
}

func TestCatalog_FilterAndSearch(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")
	seed(t, svc, "blue-boat", "Transportation")
	seed(t, svc, "green-tree", "Nature")

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?category=transportation&search=BOAT", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var page simplecatalog.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "blue-boat", page.Items[0].Slug)
}

func TestCatalog_EmptyPageHasItemsArray(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?page=abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"totalPages":1}`, w.Body.String())
}

func TestCatalog_BySlug(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?slug=red-car", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var entry simplecatalog.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "Transportation", entry.Category)
	assert.Equal(t, []string{"vector", "red-car"}, entry.Keywords)
	assert.Equal(t, "/asset?key=assets%2FTransportation%2Fred-car.zip", entry.ZipURL)
}

func TestCatalog_BySlugNotFound(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?slug=nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, CodeNotFound, decodeError(t, w).Error)
}

func TestCategories(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	var categories []simplecatalog.CategoryCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	counts := map[string]int{}
	for _, c := range categories {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, 1, counts["Transportation"])
	count, ok := counts["Logo"]
	assert.True(t, ok, "known categories are listed even when empty")
	assert.Zero(t, count)
}

func TestKeywords(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")
	seed(t, svc, "blue-boat", "Transportation")

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/keywords?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"keyword":"vector","count":2}]`, w.Body.String())
}

func TestAsset(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")

	t.Run("streams image", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Transportation/red-car.jpg", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
		assert.Equal(t, "jpeg-red-car", w.Body.String())
	})

	t.Run("missing key", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeMissingInput, decodeError(t, w).Error)
	})

	t.Run("outside prefix", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=catalog/index", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, CodeForbidden, decodeError(t, w).Error)
	})

	t.Run("traversal", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/../catalog/index", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing image redirects to placeholder", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Nature/ghost.jpg", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, testPlaceholder, w.Header().Get("Location"))
	})

	t.Run("package served as attachment", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Transportation/red-car.zip", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="red-car.zip"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "zip-red-car", w.Body.String())
	})

	t.Run("image served inline", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Transportation/red-car.jpg", nil))
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	})

	t.Run("missing package is not found", func(t *testing.T) {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Nature/ghost.zip", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAsset_NoPlaceholderConfigured(t *testing.T) {
	h, _, _ := setupRouterTest(t, func(o *Options) { o.PlaceholderURL = "" })

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/asset?key=assets/Nature/ghost.jpg", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownload(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")

	for i := 0; i < 3; i++ {
		w := do(t, h, httptest.NewRequest(http.MethodGet, "/download?slug=red-car", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="red-car.zip"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		assert.Equal(t, "zip-red-car", w.Body.String())
	}

	svc.Wait()
	entry, err := svc.GetEntry(context.Background(), "red-car")
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Downloads)
}

func TestDownload_Errors(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/download", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/download?slug=ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Error)
}

func uploadRequest(t *testing.T, parts map[string]string, names map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range parts {
		fw, err := mw.CreateFormFile(field, names[field])
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Admin-Key", testAdminKey)
	return req
}

var uploadNames = map[string]string{
	FieldMetadata: "blue-boat.json",
	FieldImage:    "blue-boat.jpg",
	FieldPackage:  "blue-boat.zip",
}

func TestAdmin_Unauthorized(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"no key", "", ""},
		{"wrong key", "X-Admin-Key", "nope"},
		{"wrong bearer", "Authorization", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin?action=stats", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := do(t, h, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, CodeUnauthorized, decodeError(t, w).Error)
		})
	}
}

func TestAdmin_Stats(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")
	seed(t, svc, "green-tree", "Nature")

	req := httptest.NewRequest(http.MethodGet, "/admin?action=stats", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	w := do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats admin.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalVectors)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, "Nature", stats.Categories[0].Name)
}

func TestAdmin_List(t *testing.T) {
	h, svc, _ := setupRouterTest(t)
	seed(t, svc, "red-car", "Transportation")

	req := httptest.NewRequest(http.MethodGet, "/admin?action=list", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list admin.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Vectors, 1)
	assert.Equal(t, "red-car", list.Vectors[0].Slug)
}

func TestAdmin_UnknownAction(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodGet, "/admin?action=reindex", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_UploadAndDelete(t *testing.T) {
	h, svc, blobs := setupRouterTest(t)

	parts := map[string]string{
		FieldMetadata: `{"category":"Transportation","title":"Blue Boat","keywords":["boat"]}`,
		FieldImage:    "jpeg-bytes",
		FieldPackage:  "zip-bytes",
	}

	w := do(t, h, uploadRequest(t, parts, uploadNames))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Uploaded: blue-boat", resp.Message)
	assert.ElementsMatch(t, []string{
		"assets/Transportation/blue-boat.jpg",
		"assets/Transportation/blue-boat.zip",
	}, blobs.Keys())

	// duplicate
	w = do(t, h, uploadRequest(t, parts, uploadNames))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeDuplicate, decodeError(t, w).Error)

	entries, err := svc.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// delete
	req := httptest.NewRequest(http.MethodDelete, "/admin?slug=blue-boat", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w = do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"slug":"blue-boat"}`, w.Body.String())
	assert.Empty(t, blobs.Keys())

	// delete again
	req = httptest.NewRequest(http.MethodDelete, "/admin?slug=blue-boat", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w = do(t, h, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_UploadMissingPart(t *testing.T) {
	h, svc, _ := setupRouterTest(t)

	w := do(t, h, uploadRequest(t, map[string]string{
		FieldMetadata: `{"category":"Nature"}`,
		FieldImage:    "jpeg-bytes",
	}, uploadNames))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, CodeMissingInput, body.Error)
	assert.Contains(t, body.Message, FieldPackage)

	entries, err := svc.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdmin_UploadInvalidMetadata(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	w := do(t, h, uploadRequest(t, map[string]string{
		FieldMetadata: `{"category":`,
		FieldImage:    "jpeg-bytes",
		FieldPackage:  "zip-bytes",
	}, uploadNames))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidMetadata, decodeError(t, w).Error)
}

func TestAdmin_UploadTooLarge(t *testing.T) {
	h, _, _ := setupRouterTest(t, func(o *Options) { o.MaxUploadBytes = 64 })

	w := do(t, h, uploadRequest(t, map[string]string{
		FieldMetadata: `{"category":"Nature"}`,
		FieldImage:    strings.Repeat("j", 256),
		FieldPackage:  "zip-bytes",
	}, uploadNames))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealth(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","environment":"test","database":"memory","storage":"memory"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	h, _, _ := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("Origin", "https://vectors.example.com")
	w := do(t, h, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeCollector struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (c *fakeCollector) RecordRequest(method, route string, statusCode int, _ time.Duration, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, recordedRequest{method, route, statusCode})
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	collector := &fakeCollector{}
	h, _, _ := setupRouterTest(t, func(o *Options) {
		o.Metrics = collector
		o.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("metrics"))
		})
	})

	do(t, h, httptest.NewRequest(http.MethodGet, "/catalog?slug=ghost", nil))
	w := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", w.Body.String())

	require.Len(t, collector.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/catalog", http.StatusNotFound}, collector.requests[0])
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w = do(t, h, req)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeStoreFailure, decodeError(t, w).Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{simplecatalog.ErrMissingInput, http.StatusBadRequest, CodeMissingInput},
		{simplecatalog.ErrInvalidMetadata, http.StatusBadRequest, CodeInvalidMetadata},
		{simplecatalog.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{simplecatalog.ErrForbiddenKey, http.StatusForbidden, CodeForbidden},
		{simplecatalog.ErrObjectNotFound, http.StatusNotFound, CodeNotFound},
		{&simplecatalog.EntryError{Slug: "x", Op: "ingest", Err: simplecatalog.ErrDuplicateSlug}, http.StatusConflict, CodeDuplicate},
		{&simplecatalog.StoreError{Store: "repository", Op: "get", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, CodeStoreUnavailable},
		{&simplecatalog.StoreError{Store: "blob", Op: "upload", Err: assert.AnError}, http.StatusInternalServerError, CodeStoreFailure},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestValidAdminKey(t *testing.T) {
	assert.True(t, validAdminKey("k", "k"))
	assert.False(t, validAdminKey("k", "K"))
	assert.False(t, validAdminKey("", ""))
	assert.False(t, validAdminKey("k", ""))
}
