package simplecatalog

import (
	"io"
	"time"
)

// DefaultCategory is assigned when the metadata document names none
const DefaultCategory = "Miscellaneous"

// DateLayout is the layout of Entry.Date
const DateLayout = "2006-01-02"

// Entry is one published asset in the catalog
type Entry struct {
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Date        string   `json:"date"`
	Downloads   int64    `json:"downloads"`
	FileSize    string   `json:"fileSize"`

	// Derived on read, never persisted
	Thumbnail string `json:"thumbnail,omitempty"`
	ZipURL    string `json:"zipUrl,omitempty"`
}

// Clone returns a deep copy of the entry
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Keywords != nil {
		c.Keywords = append([]string(nil), e.Keywords...)
	}
	return &c
}

// Record returns a copy of the entry without the derived reference fields,
// suitable for persisting.
func (e *Entry) Record() *Entry {
	c := e.Clone()
	c.Thumbnail = ""
	c.ZipURL = ""
	return c
}

// Time parses Date. Missing or malformed dates yield the zero Unix time.
func (e *Entry) Time() time.Time {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// CategoryCount is one row of the category listing
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// KeywordCount is one row of the popular keyword listing
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Asset is an opened blob ready to be streamed to a client
type Asset struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadCloser
	Entry       *Entry
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
